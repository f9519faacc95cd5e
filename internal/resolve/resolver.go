package resolve

import (
	"serialscan/internal/ocr"
)

// Correction records one per-position substitution.
type Correction struct {
	Original    rune
	Replacement rune
	Position    int
}

// Corrected is the resolver's output for one observation. The resolved text
// always has the same rune count as the source text.
type Corrected struct {
	Source             ocr.Observation
	Text               string
	AdjustedConfidence float64
	Corrections        []Correction
}

// HasAdjustments reports whether any character was substituted.
func (c Corrected) HasAdjustments() bool {
	return len(c.Corrections) > 0
}

const (
	invalidCharPenalty = 0.1
	adjustmentPenalty  = 0.05
)

// Resolver applies confusion-table corrections. It is stateless; one
// instance serves the whole pipeline.
type Resolver struct{}

// NewResolver constructs a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve corrects each observation in order. Output preserves input order
// and cardinality, and an empty input yields an empty output rather than an
// error. Non-serial text resolves mostly unchanged and is left for the
// validator to reject.
func (r *Resolver) Resolve(observations []ocr.Observation) []Corrected {
	out := make([]Corrected, 0, len(observations))
	for _, obs := range observations {
		out = append(out, resolveOne(obs))
	}
	return out
}

func resolveOne(obs ocr.Observation) Corrected {
	runes := []rune(obs.Text)
	resolved := make([]rune, len(runes))
	var corrections []Correction
	stillInvalid := 0

	for i, ch := range runes {
		switch {
		case InAlphabet(ch):
			resolved[i] = ch
		default:
			if alt, ok := bestAlternate(ch); ok {
				resolved[i] = alt.replacement
				corrections = append(corrections, Correction{Original: ch, Replacement: alt.replacement, Position: i})
				continue
			}
			if direct, ok := directMap[ch]; ok {
				resolved[i] = direct
				corrections = append(corrections, Correction{Original: ch, Replacement: direct, Position: i})
				continue
			}
			resolved[i] = ch
			stillInvalid++
		}
	}

	adjusted := obs.Confidence -
		invalidCharPenalty*float64(stillInvalid) -
		adjustmentPenalty*float64(len(corrections))
	if adjusted < 0 {
		adjusted = 0
	}

	return Corrected{
		Source:             obs,
		Text:               string(resolved),
		AdjustedConfidence: adjusted,
		Corrections:        corrections,
	}
}
