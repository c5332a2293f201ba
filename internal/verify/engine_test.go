package verify

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/claimgate/internal/heuristic"
	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/nli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fixedScorer returns a preset score per hypothesis, entailed by default
type fixedScorer struct {
	scores map[string]model.RelationScore
	calls  atomic.Int32
	err    error
}

func (s *fixedScorer) Score(ctx context.Context, pairs []nli.Pair) ([]model.RelationScore, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.RelationScore, len(pairs))
	for i, p := range pairs {
		if score, ok := s.scores[p.Hypothesis]; ok {
			out[i] = score
			continue
		}
		out[i] = model.RelationScore{Entailment: 0.95, Contradiction: 0.01, Neutral: 0.04}
	}
	return out, nil
}

func newTestEngine(scorer Scorer) *Engine {
	cfg := model.DefaultConfig()
	return NewEngine(heuristic.NewGate(cfg.Heuristics), scorer, cfg.Thresholds, zap.NewNop())
}

func claim(id, statement, support string, entities ...string) model.Claim {
	return model.Claim{
		ID:                 id,
		Statement:          statement,
		SupportText:        support,
		SourceURL:          "https://example.com/" + id,
		SourceTitle:        "Example " + id,
		SourceRank:         1,
		Confidence:         0.6,
		DiscoveredEntities: entities,
		ExtractedAt:        "2024-01-15T10:30:00Z",
	}
}

const (
	statementA = "RSA is a public key cryptosystem for secure transmission."
	supportA   = statementA + " It is widely deployed."
	statementB = "RSA was described in 1977 by Rivest, Shamir and Adleman."
	supportB   = statementB + " It was named after them."
	rsaTask    = "public key cryptography"
)

func TestVerify_SkyScenario(t *testing.T) {
	engine := newTestEngine(nli.NewLexicalBackend())
	c := claim("sky", "The sky is blue.", "The sky is blue.")

	verdicts, err := engine.Verify(context.Background(), []model.Claim{c}, "sky color")
	require.NoError(t, err)
	require.Len(t, verdicts, 1)

	v := verdicts[0]
	assert.True(t, v.IsValid)
	assert.Equal(t, model.ReasonVerified, v.Code)
	assert.NotContains(t, v.Reason, "REJECTED")
	assert.Equal(t, 1.0, v.EntailmentScore)
	assert.InDelta(t, 0.8, v.Claim.Confidence, 1e-9, "confidence should move toward entailment")
	assert.Equal(t, model.ClaimTypeFactual, v.ClaimType)
}

func TestVerify_MissingSourceExactReason(t *testing.T) {
	scorer := &fixedScorer{}
	engine := newTestEngine(scorer)
	c := claim("sky", "The sky is blue.", "The sky is blue.")
	c.SourceURL = ""

	verdicts, err := engine.Verify(context.Background(), []model.Claim{c}, "sky color")
	require.NoError(t, err)

	assert.False(t, verdicts[0].IsValid)
	assert.Equal(t, "REJECTED: Missing source URL", verdicts[0].Reason)
	assert.Equal(t, 0.0, verdicts[0].EntailmentScore)
	assert.Nil(t, verdicts[0].ContradictionScore)
	assert.Equal(t, int32(0), scorer.calls.Load(), "gate rejections must not reach the model")
}

func TestVerify_MissingFieldsAlwaysRejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Claim)
		want   model.ReasonCode
	}{
		{"no source", func(c *model.Claim) { c.SourceURL = "" }, model.ReasonMissingSource},
		{"no support", func(c *model.Claim) { c.SupportText = "" }, model.ReasonMissingSupport},
		{"blank support", func(c *model.Claim) { c.SupportText = "   " }, model.ReasonMissingSupport},
		{"no timestamp", func(c *model.Claim) { c.ExtractedAt = "" }, model.ReasonMissingTimestamp},
		{"bad timestamp", func(c *model.Claim) { c.ExtractedAt = "last tuesday" }, model.ReasonInvalidTimestamp},
	}

	engine := newTestEngine(&fixedScorer{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := claim("a", statementA, supportA, "RSA")
			c.Confidence = 1
			tt.mutate(&c)

			verdicts, err := engine.Verify(context.Background(), []model.Claim{c}, rsaTask)
			require.NoError(t, err)
			assert.False(t, verdicts[0].IsValid)
			assert.Equal(t, tt.want, verdicts[0].Code)
			assert.True(t, strings.HasPrefix(verdicts[0].Reason, model.RejectedPrefix))
		})
	}
}

func TestVerify_UnsupportedInference(t *testing.T) {
	engine := newTestEngine(nli.NewLexicalBackend())
	c := claim("inf", "The sky is blue therefore the ocean is blue.", "The sky is blue. The ocean is blue.")

	verdicts, err := engine.Verify(context.Background(), []model.Claim{c}, "sky color")
	require.NoError(t, err)
	assert.Equal(t, model.ReasonUnsupportedInference, verdicts[0].Code)
}

func TestVerify_NotVerbatimDominatesEntailment(t *testing.T) {
	scorer := &fixedScorer{}
	engine := newTestEngine(scorer)
	c := claim("para", "The blue sky is clear today.", "The sky is blue and clear today.")

	verdicts, err := engine.Verify(context.Background(), []model.Claim{c}, "sky color")
	require.NoError(t, err)
	assert.Equal(t, model.ReasonNotVerbatim, verdicts[0].Code)
	assert.False(t, verdicts[0].IsValid)
	assert.Equal(t, int32(0), scorer.calls.Load())
}

func TestVerify_Idempotent(t *testing.T) {
	claims := []model.Claim{
		claim("a", statementA, supportA, "RSA"),
		claim("b", statementB, supportB, "RSA"),
		claim("c", "Maybe it works.", "Maybe it works."),
	}

	first, err := newTestEngine(nli.NewLexicalBackend()).Verify(context.Background(), claims, rsaTask)
	require.NoError(t, err)
	second, err := newTestEngine(nli.NewLexicalBackend()).Verify(context.Background(), claims, rsaTask)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestVerify_SubtopicBridging(t *testing.T) {
	engine := newTestEngine(nli.NewLexicalBackend())
	a := claim("a", statementA, supportA, "RSA")
	b := claim("b", statementB, supportB, "rsa")

	together, err := engine.Verify(context.Background(), []model.Claim{a, b}, rsaTask)
	require.NoError(t, err)
	require.Len(t, together, 2)

	assert.True(t, together[0].IsValid)
	assert.False(t, together[0].Rescued)
	assert.True(t, together[1].IsValid, "B should be rescued through RSA")
	assert.True(t, together[1].Rescued)
	assert.Equal(t, "rsa", together[1].BridgeEntity)
	assert.Equal(t, model.ReasonVerified, together[1].Code)
	assert.NotContains(t, together[1].Reason, "REJECTED")

	alone, err := engine.Verify(context.Background(), []model.Claim{b}, rsaTask)
	require.NoError(t, err)
	assert.False(t, alone[0].IsValid)
	assert.Equal(t, model.ReasonNotRelevant, alone[0].Code)
}

func TestVerify_BridgingIgnoresBatchOrder(t *testing.T) {
	engine := newTestEngine(nli.NewLexicalBackend())
	a := claim("a", statementA, supportA, "RSA")
	b := claim("b", statementB, supportB, "RSA")

	verdicts, err := engine.Verify(context.Background(), []model.Claim{b, a}, rsaTask)
	require.NoError(t, err)

	assert.Equal(t, "b", verdicts[0].Claim.ID)
	assert.True(t, verdicts[0].Rescued, "Pass 1 completes before Pass 2 regardless of position")
	assert.True(t, verdicts[1].IsValid)
}

func TestVerify_BridgedClaimStillNeedsThresholds(t *testing.T) {
	scorer := &fixedScorer{scores: map[string]model.RelationScore{
		statementB: {Entailment: 0.2, Contradiction: 0.1, Neutral: 0.7},
	}}
	engine := newTestEngine(scorer)

	verdicts, err := engine.Verify(context.Background(), []model.Claim{
		claim("a", statementA, supportA, "RSA"),
		claim("b", statementB, supportB, "RSA"),
	}, rsaTask)
	require.NoError(t, err)

	assert.True(t, verdicts[0].IsValid)
	assert.Equal(t, model.ReasonLowEntailment, verdicts[1].Code)
	assert.False(t, verdicts[1].Rescued)
	assert.Equal(t, 0.2, verdicts[1].EntailmentScore)
}

func TestVerify_RejectedClaimsDoNotRegisterEntities(t *testing.T) {
	scorer := &fixedScorer{scores: map[string]model.RelationScore{
		statementA: {Entailment: 0.9, Contradiction: 0.8},
	}}
	engine := newTestEngine(scorer)

	verdicts, err := engine.Verify(context.Background(), []model.Claim{
		claim("a", statementA, supportA, "RSA"),
		claim("b", statementB, supportB, "RSA"),
	}, rsaTask)
	require.NoError(t, err)

	assert.Equal(t, model.ReasonContradicted, verdicts[0].Code)
	require.NotNil(t, verdicts[0].ContradictionScore)
	assert.Equal(t, 0.8, *verdicts[0].ContradictionScore)
	assert.Equal(t, 0.6, verdicts[0].Claim.Confidence, "rejected claims keep extraction confidence")
	assert.Equal(t, model.ReasonNotRelevant, verdicts[1].Code)
}

func TestVerify_ThresholdBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		score model.RelationScore
		want  model.ReasonCode
	}{
		{"entailment at threshold", model.RelationScore{Entailment: 0.5}, model.ReasonVerified},
		{"entailment below threshold", model.RelationScore{Entailment: 0.49}, model.ReasonLowEntailment},
		{"contradiction at threshold", model.RelationScore{Entailment: 0.9, Contradiction: 0.5}, model.ReasonContradicted},
		{"contradiction below threshold", model.RelationScore{Entailment: 0.9, Contradiction: 0.49}, model.ReasonVerified},
		{"out of range clamped", model.RelationScore{Entailment: 3}, model.ReasonVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fixedScorer{scores: map[string]model.RelationScore{statementA: tt.score}})
			verdicts, err := engine.Verify(context.Background(), []model.Claim{claim("a", statementA, supportA)}, rsaTask)
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdicts[0].Code)
			assert.GreaterOrEqual(t, verdicts[0].EntailmentScore, 0.0)
			assert.LessOrEqual(t, verdicts[0].EntailmentScore, 1.0)
		})
	}
}

func TestVerify_PropagatesScorerError(t *testing.T) {
	runtimeErr := errors.New("CUDA device lost")
	engine := newTestEngine(&fixedScorer{err: runtimeErr})

	verdicts, err := engine.Verify(context.Background(), []model.Claim{claim("a", statementA, supportA)}, rsaTask)
	require.Error(t, err)
	assert.ErrorIs(t, err, runtimeErr)
	assert.Nil(t, verdicts)
}

func TestVerify_PreservesOrder(t *testing.T) {
	engine := newTestEngine(nli.NewLexicalBackend())
	missing := claim("missing", statementA, supportA)
	missing.SourceURL = ""

	claims := []model.Claim{
		claim("short", "Too short.", "Too short."),
		claim("a", statementA, supportA, "RSA"),
		missing,
		claim("b", statementB, supportB, "RSA"),
	}

	verdicts, err := engine.Verify(context.Background(), claims, rsaTask)
	require.NoError(t, err)
	require.Len(t, verdicts, len(claims))

	for i, v := range verdicts {
		assert.Equal(t, claims[i].ID, v.Claim.ID)
	}
	assert.Equal(t, model.ReasonTooShort, verdicts[0].Code)
	assert.Equal(t, model.ReasonMissingSource, verdicts[2].Code)
}

func TestVerify_EmptyBatch(t *testing.T) {
	scorer := &fixedScorer{}
	verdicts, err := newTestEngine(scorer).Verify(context.Background(), nil, "anything")
	require.NoError(t, err)
	assert.Empty(t, verdicts)
	assert.Equal(t, int32(0), scorer.calls.Load())
}
