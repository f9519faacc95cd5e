package resolve

// The serial alphabet is A-Z without I, O, Q, plus digits: 33 characters
// chosen to avoid visually ambiguous glyphs. Membership is case-sensitive;
// lowercase glyphs go through the confusion table or count as invalid until
// the validator's cleaning pass uppercases what survives.
const Alphabet = "0123456789ABCDEFGHJKLMNPRSTUVWXYZ"

var alphabetSet = func() map[rune]struct{} {
	set := make(map[rune]struct{}, len(Alphabet))
	for _, r := range Alphabet {
		set[r] = struct{}{}
	}
	return set
}()

// InAlphabet reports whether r is a permitted serial character.
func InAlphabet(r rune) bool {
	_, ok := alphabetSet[r]
	return ok
}

type alternate struct {
	replacement rune
	penalty     float64
}

// confusionTable maps glyphs outside the serial alphabet to permitted
// alternates with misread penalties. Lower penalty means the misread is more
// likely, so the lowest-penalty permitted alternate wins. Keys inside the
// alphabet never reach the table.
var confusionTable = map[rune][]alternate{
	'O': {{'0', 0.15}, {'D', 0.35}},
	'o': {{'0', 0.20}},
	'Q': {{'0', 0.20}},
	'q': {{'0', 0.25}, {'9', 0.40}},
	'I': {{'1', 0.15}},
	'i': {{'1', 0.25}},
	'l': {{'1', 0.10}},
	'|': {{'1', 0.30}},
	'!': {{'1', 0.40}},
}

// directMap is the fallback heuristic for glyphs the table does not cover
// with a confident entry. Substitutions from here carry a flat 0.5
// per-character confidence.
var directMap = map[rune]rune{
	'I': '1',
	'i': '1',
	'O': '0',
	'o': '0',
	'Q': '0',
	'q': '0',
	'l': '1',
}

// bestAlternate returns the lowest-penalty permitted alternate for r.
func bestAlternate(r rune) (alternate, bool) {
	entries, ok := confusionTable[r]
	if !ok {
		return alternate{}, false
	}
	best := alternate{}
	found := false
	for _, entry := range entries {
		if !InAlphabet(entry.replacement) {
			continue
		}
		if !found || entry.penalty < best.penalty {
			best = entry
			found = true
		}
	}
	return best, found
}
