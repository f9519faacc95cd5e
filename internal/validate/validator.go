package validate

import (
	"fmt"

	"serialscan/internal/resolve"
	"serialscan/internal/textutil"
)

// Reason classifies why a candidate was rejected.
type Reason string

const (
	ReasonLength     Reason = "invalid_length"
	ReasonCharacters Reason = "invalid_characters"
	ReasonPattern    Reason = "pattern_mismatch"
)

// Candidate is a validated (or rejected) serial reading.
type Candidate struct {
	Corrected         resolve.Corrected
	Cleaned           string
	Valid             bool
	Reason            Reason
	InvalidChars      string
	Pattern           string
	PatternConfidence float64
	CompositeScore    float64
}

// Outcome bundles one frame's validation results. Best is nil when nothing
// in the frame validated.
type Outcome struct {
	Best     *Candidate
	Valid    []Candidate
	Rejected []Candidate
}

// Options configures a Validator.
type Options struct {
	MinimumLength int
	MaximumLength int
	// Strict narrows accepted lengths to 11-12 characters regardless of the
	// configured range.
	Strict bool
	// Cache memoizes string-derived verdicts. Nil disables caching.
	Cache Cache
}

const (
	weightOCR          = 0.6
	weightPattern      = 0.4
	invertedPenalty    = 0.1
	alternativePenalty = 0.05

	strictMinimumLength = 11
	strictMaximumLength = 12
)

// Validator checks corrected candidates against the serial rules. Apart from
// the transparent verdict cache it holds no cross-call state.
type Validator struct {
	minLen int
	maxLen int
	cache  Cache
}

// New constructs a Validator, failing fast on a misconfigured length range.
func New(opts Options) (*Validator, error) {
	if opts.MinimumLength <= 0 || opts.MaximumLength <= 0 {
		return nil, fmt.Errorf("validator lengths must be positive, got [%d, %d]", opts.MinimumLength, opts.MaximumLength)
	}
	if opts.MinimumLength > opts.MaximumLength {
		return nil, fmt.Errorf("validator minimum length %d exceeds maximum %d", opts.MinimumLength, opts.MaximumLength)
	}

	minLen, maxLen := opts.MinimumLength, opts.MaximumLength
	if opts.Strict {
		minLen, maxLen = strictMinimumLength, strictMaximumLength
	}

	cache := opts.Cache
	if cache == nil {
		cache = NopCache{}
	}

	return &Validator{minLen: minLen, maxLen: maxLen, cache: cache}, nil
}

// Validate judges each candidate and selects the best valid one. Identical
// inputs always produce identical outcomes.
func (v *Validator) Validate(candidates []resolve.Corrected) Outcome {
	outcome := Outcome{}
	for _, corrected := range candidates {
		candidate := v.validateOne(corrected)
		if candidate.Valid {
			outcome.Valid = append(outcome.Valid, candidate)
		} else {
			outcome.Rejected = append(outcome.Rejected, candidate)
		}
	}

	for i := range outcome.Valid {
		if outcome.Best == nil || better(&outcome.Valid[i], outcome.Best) {
			outcome.Best = &outcome.Valid[i]
		}
	}
	return outcome
}

// ResetCache clears the verdict cache.
func (v *Validator) ResetCache() {
	v.cache.Reset()
}

func (v *Validator) validateOne(corrected resolve.Corrected) Candidate {
	cleaned := textutil.CleanSerial(corrected.Text)
	verdict := v.verdictFor(cleaned)

	candidate := Candidate{
		Corrected:         corrected,
		Cleaned:           cleaned,
		Valid:             verdict.Valid,
		Reason:            verdict.Reason,
		InvalidChars:      verdict.InvalidChars,
		Pattern:           verdict.Pattern,
		PatternConfidence: verdict.PatternConfidence,
	}
	if candidate.Valid {
		candidate.CompositeScore = compositeScore(corrected, verdict.PatternConfidence)
	}
	return candidate
}

func (v *Validator) verdictFor(cleaned string) Verdict {
	if cached, ok := v.cache.Get(cleaned); ok {
		return cached
	}
	verdict := v.computeVerdict(cleaned)
	v.cache.Put(cleaned, verdict)
	return verdict
}

func (v *Validator) computeVerdict(cleaned string) Verdict {
	if n := len(cleaned); n < v.minLen || n > v.maxLen {
		return Verdict{Reason: ReasonLength}
	}
	if bad := invalidChars(cleaned); bad != "" {
		return Verdict{Reason: ReasonCharacters, InvalidChars: bad}
	}
	name, ok := matchPattern(cleaned)
	if !ok {
		return Verdict{Reason: ReasonPattern}
	}
	return Verdict{
		Valid:             true,
		Pattern:           name,
		PatternConfidence: patternConfidence(cleaned),
	}
}

func compositeScore(corrected resolve.Corrected, patternConf float64) float64 {
	score := weightOCR*corrected.AdjustedConfidence + weightPattern*patternConf
	if corrected.Source.Inverted {
		score -= invertedPenalty
	}
	score -= alternativePenalty * float64(corrected.Source.AlternativeRank)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// better reports whether a should outrank b: higher composite score, then
// lower alternative rank, then earlier observation index.
func better(a, b *Candidate) bool {
	if a.CompositeScore != b.CompositeScore {
		return a.CompositeScore > b.CompositeScore
	}
	ra, rb := a.Corrected.Source.AlternativeRank, b.Corrected.Source.AlternativeRank
	if ra != rb {
		return ra < rb
	}
	return a.Corrected.Source.ObservationIndex < b.Corrected.Source.ObservationIndex
}
