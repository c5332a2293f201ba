package verify

import "github.com/ppiankov/claimgate/internal/model"

// blendConfidence moves extraction confidence toward the entailment score:
// (1-w)*confidence + w*entailment
func blendConfidence(confidence, entailment, weight float64) float64 {
	w := model.Clamp01(weight)
	return model.Clamp01((1-w)*model.Clamp01(confidence) + w*model.Clamp01(entailment))
}
