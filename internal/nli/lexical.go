package nli

import (
	"context"
	"strings"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/textutil"
)

// negations flip the polarity of an otherwise matching statement
var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "neither": true,
	"nor": true, "cannot": true, "without": true, "isn": true, "wasn": true,
	"aren": true, "weren": true, "doesn": true, "didn": true, "don": true,
}

// LexicalBackend is a deterministic, model-free scorer for offline runs.
// A hypothesis found word for word in the premise is fully entailed;
// otherwise entailment is the share of hypothesis words found in the best
// matching premise sentence, and a polarity mismatch against that sentence
// is read as contradiction.
type LexicalBackend struct{}

// NewLexicalBackend creates a lexical backend
func NewLexicalBackend() *LexicalBackend {
	return &LexicalBackend{}
}

// Score implements Backend
func (b *LexicalBackend) Score(ctx context.Context, pairs []Pair) ([]model.RelationScore, error) {
	scores := make([]model.RelationScore, len(pairs))
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i] = lexicalScore(pair)
	}
	return scores, nil
}

func lexicalScore(pair Pair) model.RelationScore {
	hyp := textutil.Words(pair.Hypothesis)
	if len(hyp) == 0 {
		return model.RelationScore{Neutral: 1}
	}
	if textutil.ContainsPhrase(pair.Premise, pair.Hypothesis) {
		return model.RelationScore{Entailment: 1}
	}

	// Judge against the premise sentence that covers the hypothesis best
	best := model.RelationScore{Neutral: 1}
	bestCoverage := -1.0
	for _, sentence := range splitSentences(pair.Premise) {
		words := textutil.WordSet(sentence)
		covered := 0
		for _, w := range hyp {
			if words[w] {
				covered++
			}
		}
		coverage := float64(covered) / float64(len(hyp))
		if coverage <= bestCoverage {
			continue
		}
		bestCoverage = coverage

		if coverage >= 0.5 && hasNegation(hyp) != hasNegationSet(words) {
			best = model.RelationScore{
				Entailment:    (1 - coverage) / 2,
				Contradiction: coverage,
				Neutral:       (1 - coverage) / 2,
			}
			continue
		}
		best = model.RelationScore{
			Entailment: coverage,
			Neutral:    1 - coverage,
		}
	}
	return best
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func hasNegation(words []string) bool {
	for _, w := range words {
		if negations[w] {
			return true
		}
	}
	return false
}

func hasNegationSet(words map[string]bool) bool {
	for w := range negations {
		if words[w] {
			return true
		}
	}
	return false
}
