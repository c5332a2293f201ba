package nli

import (
	"context"
	"testing"
)

func TestLexicalBackend_Score(t *testing.T) {
	tests := []struct {
		name              string
		pair              Pair
		wantEntailment    float64
		wantContradiction float64
	}{
		{
			name:           "verbatim sentence",
			pair:           Pair{Premise: "The sky is blue. The ocean is also blue.", Hypothesis: "The sky is blue."},
			wantEntailment: 1,
		},
		{
			name:              "negated",
			pair:              Pair{Premise: "The sky is blue.", Hypothesis: "The sky is not blue."},
			wantEntailment:    0.1,
			wantContradiction: 0.8,
		},
		{
			name:           "unrelated",
			pair:           Pair{Premise: "The sky is blue.", Hypothesis: "Paris is in France."},
			wantEntailment: 0.25,
		},
	}

	backend := NewLexicalBackend()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := backend.Score(context.Background(), []Pair{tt.pair})
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			got := scores[0]
			if !approx(got.Entailment, tt.wantEntailment) {
				t.Errorf("Expected entailment %.2f, got %.2f", tt.wantEntailment, got.Entailment)
			}
			if !approx(got.Contradiction, tt.wantContradiction) {
				t.Errorf("Expected contradiction %.2f, got %.2f", tt.wantContradiction, got.Contradiction)
			}
		})
	}
}

func TestLexicalBackend_Deterministic(t *testing.T) {
	pairs := []Pair{
		{Premise: "RSA relies on the difficulty of factoring.", Hypothesis: "RSA relies on factoring."},
		{Premise: "", Hypothesis: "anything"},
	}
	backend := NewLexicalBackend()

	first, _ := backend.Score(context.Background(), pairs)
	second, _ := backend.Score(context.Background(), pairs)
	for i := range pairs {
		if first[i] != second[i] {
			t.Errorf("pair %d: scores differ between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestLexicalBackend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLexicalBackend().Score(ctx, []Pair{{Premise: "a", Hypothesis: "a"}}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
