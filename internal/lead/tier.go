// Package lead qualifies contacts from their conversation and gates
// high-commitment actions on the resulting tier.
package lead

import "strings"

// Tier is the qualification level of a contact. A is ready to buy or book,
// B is warming up, C is still in discovery.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// ParseTier normalizes free-text model output into a Tier. The classifier is
// instructed to answer with the bare letter, but older phrasings still show
// up and are mapped leniently. Unrecognized input parses as TierC.
func ParseTier(raw string) Tier {
	token := strings.ToLower(strings.TrimSpace(raw))
	switch token {
	case "a", "tier a":
		return TierA
	case "b", "tier b":
		return TierB
	case "c", "tier c":
		return TierC
	}

	for _, hot := range []string{"quente", "qualificado", "hot", "qualified"} {
		if strings.Contains(token, hot) {
			return TierA
		}
	}
	for _, warm := range []string{"morno", "warm", "matura", "nurtur"} {
		if strings.Contains(token, warm) {
			return TierB
		}
	}
	return TierC
}

// AllowHighCommitment reports whether payment and booking links may be
// offered. It is a pure function of the stored tier.
func AllowHighCommitment(tier Tier) bool {
	return tier == TierA
}
