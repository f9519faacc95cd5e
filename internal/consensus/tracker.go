package consensus

import (
	"fmt"
	"time"

	"serialscan/internal/ocr"
	"serialscan/internal/validate"
)

// State is the tracker's stability verdict. Progression is monotonic:
// seeking -> candidate -> stabilizing -> locked, with locked -> seeking only
// on lock expiry or forced unlock.
type State string

const (
	StateSeeking     State = "seeking"
	StateCandidate   State = "candidate"
	StateStabilizing State = "stabilizing"
	StateLocked      State = "locked"
)

// Guidance strings surfaced to the UI layer alongside each verdict.
const (
	GuidanceSearching   = "Point the camera at the serial number"
	GuidanceHoldSteady  = "Hold the device steady"
	GuidanceCandidate   = "Possible serial found, keep the label in view"
	GuidanceStabilizing = "Hold steady to confirm"
	GuidanceLocked      = "Serial number locked"
)

// Config holds tracker tuning. Zero values are invalid; start from
// DefaultConfig.
type Config struct {
	BufferCapacity       int
	RequiredStableFrames int
	ClusterWindow        int
	StabilityWindow      time.Duration
	LockDuration         time.Duration
	// ConfidenceThreshold is the stability ratio a cluster must reach before
	// the lock countdown starts.
	ConfidenceThreshold float64
	MaxEditDistance     int
	// RecencySpan and RecencyBonus reward clusters whose observations spread
	// over real time rather than one burst.
	RecencySpan  time.Duration
	RecencyBonus float64
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{
		BufferCapacity:       10,
		RequiredStableFrames: 3,
		ClusterWindow:        5,
		StabilityWindow:      time.Second,
		LockDuration:         2 * time.Second,
		ConfidenceThreshold:  0.8,
		MaxEditDistance:      1,
		RecencySpan:          500 * time.Millisecond,
		RecencyBonus:         0.1,
	}
}

// StabilityResult is the tracker's per-frame verdict.
type StabilityResult struct {
	State      State
	StableText string
	Guidance   string
	ShouldLock bool
	Confidence float64
}

// Snapshot is the tracker's running belief, for status reporting.
type Snapshot struct {
	SerialText        string
	OverallConfidence float64
	StabilityDuration time.Duration
	FrameCount        int
}

type entry struct {
	text  string
	score float64
	at    time.Time
}

// Tracker drives the temporal consensus state machine. Calls are serialized
// by the pipeline's single-flight guard, so no internal locking is needed.
type Tracker struct {
	cfg Config

	buf []entry

	consensusText  string
	stabilityStart time.Time
	lastConfidence float64

	locked     bool
	lockedText string
	lockedAt   time.Time
	lockedConf float64
}

// New constructs a Tracker, failing fast on misconfiguration.
func New(cfg Config) (*Tracker, error) {
	if cfg.BufferCapacity <= 0 {
		return nil, fmt.Errorf("tracker buffer capacity must be positive, got %d", cfg.BufferCapacity)
	}
	if cfg.RequiredStableFrames <= 0 || cfg.RequiredStableFrames > cfg.BufferCapacity {
		return nil, fmt.Errorf("tracker required stable frames must be in [1, %d], got %d", cfg.BufferCapacity, cfg.RequiredStableFrames)
	}
	if cfg.ClusterWindow <= 0 || cfg.ClusterWindow > cfg.BufferCapacity {
		return nil, fmt.Errorf("tracker cluster window must be in [1, %d], got %d", cfg.BufferCapacity, cfg.ClusterWindow)
	}
	if cfg.StabilityWindow <= 0 {
		return nil, fmt.Errorf("tracker stability window must be positive, got %v", cfg.StabilityWindow)
	}
	if cfg.LockDuration <= 0 {
		return nil, fmt.Errorf("tracker lock duration must be positive, got %v", cfg.LockDuration)
	}
	if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("tracker confidence threshold must be in (0, 1], got %v", cfg.ConfidenceThreshold)
	}
	if cfg.MaxEditDistance < 0 {
		return nil, fmt.Errorf("tracker max edit distance must be >= 0, got %d", cfg.MaxEditDistance)
	}
	return &Tracker{cfg: cfg, buf: make([]entry, 0, cfg.BufferCapacity)}, nil
}

// Track folds one validated candidate into the consensus window and returns
// the stability verdict for this frame.
func (t *Tracker) Track(candidate validate.Candidate, now time.Time, motion ocr.MotionHint) StabilityResult {
	if t.locked {
		if now.Sub(t.lockedAt) < t.cfg.LockDuration {
			return StabilityResult{
				State:      StateLocked,
				StableText: t.lockedText,
				Guidance:   GuidanceLocked,
				ShouldLock: true,
				Confidence: t.lockedConf,
			}
		}
		t.Reset()
	}

	t.append(entry{text: candidate.Cleaned, score: candidate.CompositeScore, at: now})

	// Motion instability short-circuits after the append so the reading still
	// counts once the device settles, but consensus bookkeeping stays put.
	if motion == ocr.MotionUnstable {
		return StabilityResult{State: StateSeeking, Guidance: GuidanceHoldSteady}
	}

	if len(t.buf) < t.cfg.RequiredStableFrames {
		return StabilityResult{State: StateSeeking, Guidance: GuidanceSearching}
	}

	window := t.recentWindow()
	consensus := largestCluster(buildClusters(window, t.cfg.MaxEditDistance))

	stability := float64(consensus.size()) / float64(len(window))
	if consensus.span() >= t.cfg.RecencySpan {
		stability += t.cfg.RecencyBonus
	}
	if stability > 1 {
		stability = 1
	}

	representative := consensus.representative()
	confidence := clamp01((stability + consensus.meanScore()) / 2)
	t.lastConfidence = confidence

	if stability < t.cfg.ConfidenceThreshold {
		return StabilityResult{
			State:      StateCandidate,
			StableText: representative,
			Guidance:   GuidanceCandidate,
			Confidence: confidence,
		}
	}

	if representative != t.consensusText {
		t.consensusText = representative
		t.stabilityStart = now
		return StabilityResult{
			State:      StateStabilizing,
			StableText: representative,
			Guidance:   GuidanceStabilizing,
			Confidence: confidence,
		}
	}

	if now.Sub(t.stabilityStart) >= t.cfg.StabilityWindow {
		t.locked = true
		t.lockedText = representative
		t.lockedAt = now
		t.lockedConf = confidence
		return StabilityResult{
			State:      StateLocked,
			StableText: representative,
			Guidance:   GuidanceLocked,
			ShouldLock: true,
			Confidence: confidence,
		}
	}

	return StabilityResult{
		State:      StateStabilizing,
		StableText: representative,
		Guidance:   GuidanceStabilizing,
		Confidence: confidence,
	}
}

// IsLocked reports whether a lock is active at now. An expired lock
// implicitly resets the tracker.
func (t *Tracker) IsLocked(now time.Time) bool {
	if !t.locked {
		return false
	}
	if now.Sub(t.lockedAt) >= t.cfg.LockDuration {
		t.Reset()
		return false
	}
	return true
}

// ForceUnlock clears all consensus state regardless of the current state.
// This is the manual re-scan path; a fresh lock requires a full stability
// window.
func (t *Tracker) ForceUnlock() {
	t.Reset()
}

// Reset returns the tracker to seeking with an empty window.
func (t *Tracker) Reset() {
	t.buf = t.buf[:0]
	t.consensusText = ""
	t.stabilityStart = time.Time{}
	t.lastConfidence = 0
	t.locked = false
	t.lockedText = ""
	t.lockedAt = time.Time{}
	t.lockedConf = 0
}

// Snapshot reports the current running belief.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		SerialText:        t.consensusText,
		OverallConfidence: t.lastConfidence,
		FrameCount:        len(t.buf),
	}
	if t.locked {
		s.SerialText = t.lockedText
		s.OverallConfidence = t.lockedConf
	}
	if !t.stabilityStart.IsZero() {
		s.StabilityDuration = now.Sub(t.stabilityStart)
	}
	return s
}

func (t *Tracker) append(e entry) {
	if len(t.buf) >= t.cfg.BufferCapacity {
		copy(t.buf, t.buf[1:])
		t.buf = t.buf[:len(t.buf)-1]
	}
	t.buf = append(t.buf, e)
}

func (t *Tracker) recentWindow() []entry {
	if len(t.buf) <= t.cfg.ClusterWindow {
		return t.buf
	}
	return t.buf[len(t.buf)-t.cfg.ClusterWindow:]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
