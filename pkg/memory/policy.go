package memory

import "unicode/utf8"

// DefaultRetentionThreshold is the baseline character threshold: inputs must
// be strictly longer than this to be retained.
const DefaultRetentionThreshold = 20

// LengthPolicy retains a turn iff its text is strictly longer than Threshold
// characters (runes, not bytes). An input of exactly Threshold characters is
// rejected; the strict boundary is load-bearing for compatibility.
type LengthPolicy struct {
	Threshold int
}

func NewLengthPolicy(threshold int) *LengthPolicy {
	return &LengthPolicy{Threshold: threshold}
}

func (p *LengthPolicy) Accepts(turnText string) bool {
	return utf8.RuneCountInString(turnText) > p.Threshold
}

// DefaultFactFormat derives the stored fact from an accepted input.
func DefaultFactFormat(turnText string) string {
	return "User said: " + turnText
}
