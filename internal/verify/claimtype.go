package verify

import (
	"unicode"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/textutil"
)

// Hedging language
var speculativeMarkers = []string{
	"might", "may", "could", "would", "possibly", "perhaps", "maybe",
	"likely", "unlikely", "probably", "potentially", "suggests", "suggest",
	"appears", "seems", "speculated", "rumored", "expected to", "believed to",
}

// Assertive language
var factualMarkers = []string{
	"is", "are", "was", "were", "has", "have", "had", "contains",
	"measured", "reported", "confirmed", "announced", "according to",
	"published", "released", "founded", "consists",
}

// DetectClaimType classifies a statement by the markers it carries. It is
// telemetry only and never affects acceptance.
func DetectClaimType(statement string) model.ClaimType {
	speculative := countMarkers(statement, speculativeMarkers)
	factual := countMarkers(statement, factualMarkers)
	if hasDigit(statement) {
		factual++
	}

	switch {
	case speculative == 0:
		return model.ClaimTypeFactual
	case factual == 0 || speculative > factual:
		return model.ClaimTypeSpeculative
	default:
		return model.ClaimTypeMixed
	}
}

func countMarkers(text string, markers []string) int {
	n := 0
	for _, m := range markers {
		if textutil.ContainsPhrase(text, m) {
			n++
		}
	}
	return n
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
