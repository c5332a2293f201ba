// Package heuristic implements the structural pre-filter that rejects
// unverifiable claims before any model inference is spent on them.
package heuristic

import (
	"strings"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/textutil"
)

// Result is the outcome of running the gate on one claim
type Result struct {
	Passed         bool
	Code           model.ReasonCode // Empty when Passed
	GroundingRatio float64          // Only set once the grounding check ran
}

// Gate applies the ordered structural checks. It is stateless and safe for
// concurrent use.
type Gate struct {
	minTokens      int
	groundingFloor float64
}

// NewGate creates a gate from the heuristic configuration
func NewGate(cfg model.HeuristicConfig) *Gate {
	minTokens := cfg.MinTokens
	if minTokens <= 0 {
		minTokens = 5
	}
	return &Gate{
		minTokens:      minTokens,
		groundingFloor: cfg.GroundingFloor,
	}
}

// Check runs the checks in order and stops at the first failure
func (g *Gate) Check(claim model.Claim) Result {
	// 1. Source URL
	if strings.TrimSpace(claim.SourceURL) == "" {
		return reject(model.ReasonMissingSource)
	}

	// 2. Support snippet
	if !claim.HasSupport() {
		return reject(model.ReasonMissingSupport)
	}

	// 3. Extraction timestamp
	if strings.TrimSpace(claim.ExtractedAt) == "" {
		return reject(model.ReasonMissingTimestamp)
	}
	if _, err := ParseTimestamp(claim.ExtractedAt); err != nil {
		return reject(model.ReasonInvalidTimestamp)
	}

	// 4. Hedged language
	if IsVague(claim.Statement) {
		return reject(model.ReasonVague)
	}

	// 5. Length
	if textutil.CountTokens(claim.Statement) < g.minTokens {
		return reject(model.ReasonTooShort)
	}

	// 6. Reasoning the source never states
	if UnsupportedConnective(claim.Statement, claim.SupportText) != "" {
		return reject(model.ReasonUnsupportedInference)
	}

	// 7. Lexical grounding
	ratio := GroundingRatio(claim.Statement, claim.SupportText)
	if ratio < g.groundingFloor {
		return Result{Code: model.ReasonLowGrounding, GroundingRatio: ratio}
	}

	// 8. Verbatim containment
	if !strings.Contains(claim.SupportText, claim.Statement) {
		return Result{Code: model.ReasonNotVerbatim, GroundingRatio: ratio}
	}

	return Result{Passed: true, GroundingRatio: ratio}
}

func reject(code model.ReasonCode) Result {
	return Result{Code: code}
}

// IsVague reports whether the statement contains a modal hedge
func IsVague(statement string) bool {
	for _, marker := range vagueMarkers {
		if textutil.ContainsPhrase(statement, marker) {
			return true
		}
	}
	return false
}

// UnsupportedConnective returns the first inference connective that appears
// in the statement but not in the support text, or "" if there is none.
func UnsupportedConnective(statement, support string) string {
	for _, conn := range inferenceConnectives {
		if textutil.ContainsPhrase(statement, conn) && !textutil.ContainsPhrase(support, conn) {
			return conn
		}
	}
	return ""
}

// GroundingRatio is the fraction of the statement's distinct words that
// also occur in the support text. An empty statement has ratio 0.
func GroundingRatio(statement, support string) float64 {
	stmt := textutil.WordSet(statement)
	if len(stmt) == 0 {
		return 0
	}
	sup := textutil.WordSet(support)
	shared := 0
	for w := range stmt {
		if sup[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(stmt))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp with or without a zone
// designator. Timestamps without a zone are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
