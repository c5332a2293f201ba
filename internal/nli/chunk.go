package nli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/claimgate/internal/model"
)

// Aggregation combines per-window scores into one score per channel
type Aggregation string

const (
	AggregateMax    Aggregation = "max"    // Any supporting window counts
	AggregateMean   Aggregation = "mean"
	AggregateMedian Aggregation = "median"
)

// ChunkingPolicy splits overlong premises into overlapping token windows
type ChunkingPolicy struct {
	Enabled       bool
	MaxTokens     int // Longest premise scored in one piece
	ChunkTokens   int
	OverlapTokens int
	Aggregation   Aggregation
}

// PolicyFromConfig builds the policy from configuration
func PolicyFromConfig(chunking model.ChunkingConfig, maxSeqLength int) ChunkingPolicy {
	return ChunkingPolicy{
		Enabled:       chunking.Enabled,
		MaxTokens:     maxSeqLength,
		ChunkTokens:   chunking.ChunkTokens,
		OverlapTokens: chunking.OverlapTokens,
		Aggregation:   Aggregation(chunking.Aggregation),
	}
}

// Windows returns the premise pieces to score. A premise that fits, or any
// premise when chunking is disabled, is returned unchanged as one window.
func (p ChunkingPolicy) Windows(premise string) []string {
	tokens := strings.Fields(premise)
	if !p.Enabled || len(tokens) <= p.MaxTokens || p.ChunkTokens <= 0 {
		return []string{premise}
	}

	size := p.ChunkTokens
	step := size - p.OverlapTokens
	if step <= 0 {
		step = size
	}

	var windows []string
	start := 0
	for ; start+size < len(tokens); start += step {
		windows = append(windows, strings.Join(tokens[start:start+size], " "))
	}

	// Right-align the final window so the trailing fragment is scored in full context
	last := len(tokens) - size
	if last < 0 {
		last = 0
	}
	windows = append(windows, strings.Join(tokens[last:], " "))

	return windows
}

// Aggregate combines window scores channel by channel
func (p ChunkingPolicy) Aggregate(scores []model.RelationScore) model.RelationScore {
	if len(scores) == 1 {
		return scores[0]
	}
	if len(scores) == 0 {
		return model.RelationScore{}
	}

	channel := func(get func(model.RelationScore) float64) []float64 {
		values := make([]float64, len(scores))
		for i, s := range scores {
			values[i] = get(s)
		}
		return values
	}

	combine := aggregator(p.Aggregation)
	return model.RelationScore{
		Entailment:    combine(channel(func(s model.RelationScore) float64 { return s.Entailment })),
		Contradiction: combine(channel(func(s model.RelationScore) float64 { return s.Contradiction })),
		Neutral:       combine(channel(func(s model.RelationScore) float64 { return s.Neutral })),
	}
}

func aggregator(mode Aggregation) func([]float64) float64 {
	switch mode {
	case AggregateMean:
		return mean
	case AggregateMedian:
		return median
	default:
		return maximum
	}
}

func maximum(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Scorer produces one RelationScore per pair for arbitrarily long premises
type Scorer struct {
	backend Backend
	policy  ChunkingPolicy
}

// NewScorer wraps a backend with a chunking policy
func NewScorer(backend Backend, policy ChunkingPolicy) *Scorer {
	return &Scorer{backend: backend, policy: policy}
}

// Score expands every pair into its windows, scores all windows in a single
// backend call and aggregates back to one score per input pair
func (s *Scorer) Score(ctx context.Context, pairs []Pair) ([]model.RelationScore, error) {
	if len(pairs) == 0 {
		return []model.RelationScore{}, nil
	}

	var expanded []Pair
	spans := make([][2]int, len(pairs))
	for i, pair := range pairs {
		start := len(expanded)
		for _, window := range s.policy.Windows(pair.Premise) {
			expanded = append(expanded, Pair{Premise: window, Hypothesis: pair.Hypothesis})
		}
		spans[i] = [2]int{start, len(expanded)}
	}

	scores, err := s.backend.Score(ctx, expanded)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(expanded) {
		return nil, fmt.Errorf("backend returned %d scores for %d pairs", len(scores), len(expanded))
	}

	results := make([]model.RelationScore, len(pairs))
	for i, span := range spans {
		results[i] = s.policy.Aggregate(scores[span[0]:span[1]])
	}
	return results, nil
}
