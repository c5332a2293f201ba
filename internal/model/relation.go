package model

import "math"

// RelationScore is the raw three-way output of an entailment model for one
// (premise, hypothesis) pair. Backends do not agree on normalization, so
// consumers compare channels against fixed thresholds and never rank them.
type RelationScore struct {
	Entailment    float64 `json:"entailment"`
	Contradiction float64 `json:"contradiction"`
	Neutral       float64 `json:"neutral"`
}

// Clamp01 limits v to the closed unit interval (NaN maps to 0)
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
