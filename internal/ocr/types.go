package ocr

// SourcePass identifies which recognition pass produced an observation.
type SourcePass string

const (
	PassFast     SourcePass = "fast"
	PassAccurate SourcePass = "accurate"
)

// Rect is a normalized bounding box in image coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Observation is one OCR guess for one frame. Immutable once created; the
// resolver folds it into a corrected candidate and the original is not
// consulted again.
type Observation struct {
	Text             string     `json:"text"`
	Confidence       float64    `json:"confidence"`
	BoundingBox      Rect       `json:"bounding_box"`
	SourcePass       SourcePass `json:"source_pass"`
	ImageIndex       int        `json:"image_index"`
	Inverted         bool       `json:"inverted"`
	AlternativeRank  int        `json:"alternative_rank"`
	ObservationIndex int        `json:"observation_index"`
}

// MotionHint is the capture front-end's report of device stability for a
// frame. An empty hint means no motion data, which the tracker treats as
// stable.
type MotionHint string

const (
	MotionUnknown  MotionHint = ""
	MotionStable   MotionHint = "stable"
	MotionUnstable MotionHint = "unstable"
)

// Frame bundles everything the pipeline needs for one camera frame.
type Frame struct {
	// OffsetSeconds is the frame timestamp relative to scan start.
	OffsetSeconds float64       `json:"offset_seconds"`
	Motion        MotionHint    `json:"motion,omitempty"`
	Observations  []Observation `json:"observations"`
}
