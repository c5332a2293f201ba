// Package verify decides whether extracted claims are supported by their
// source and relevant to the research task.
//
// Verify runs every claim through the heuristic gate, scores the survivors
// in one batched entailment call, then decides in two passes: Pass 1 accepts
// directly relevant claims and registers their entities; Pass 2 rescues
// claims that mention an entity registered in Pass 1.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/claimgate/internal/heuristic"
	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/nli"
	"github.com/ppiankov/claimgate/internal/textutil"
	"go.uber.org/zap"
)

// Scorer produces one relation score per pair, in order
type Scorer interface {
	Score(ctx context.Context, pairs []nli.Pair) ([]model.RelationScore, error)
}

// Engine is the claim verification engine. It holds no per-batch state and
// is safe for concurrent Verify calls if its Scorer is.
type Engine struct {
	gate       *heuristic.Gate
	scorer     Scorer
	thresholds model.ThresholdConfig
	logger     *zap.Logger
}

// NewEngine creates an engine
func NewEngine(gate *heuristic.Gate, scorer Scorer, thresholds model.ThresholdConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		gate:       gate,
		scorer:     scorer,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Verify returns one verdict per claim in input order. A scoring failure
// aborts the whole batch; heuristic rejections are ordinary verdicts.
func (e *Engine) Verify(ctx context.Context, claims []model.Claim, task string) ([]model.Verdict, error) {
	start := time.Now()
	verdicts, err := e.verify(ctx, claims, task)
	recordVerify(ctx, time.Since(start), len(claims), err == nil)
	if err != nil {
		return nil, err
	}

	for _, v := range verdicts {
		recordVerdict(ctx, string(v.Code))
		if v.IsValid {
			continue
		}
		// Statement text stays out of the event
		e.logger.Info("claim rejected",
			zap.String("claim_id", v.Claim.ID),
			zap.String("code", string(v.Code)),
			zap.String("reason", v.Reason),
			zap.String("source_url", v.Claim.SourceURL),
			zap.String("source_title", v.Claim.SourceTitle),
		)
	}
	return verdicts, nil
}

func (e *Engine) verify(ctx context.Context, claims []model.Claim, task string) ([]model.Verdict, error) {
	verdicts := make([]model.Verdict, len(claims))
	types := make([]model.ClaimType, len(claims))

	// Heuristic gate
	var survivors []int
	for i, claim := range claims {
		types[i] = DetectClaimType(claim.Statement)
		result := e.gate.Check(claim)
		if !result.Passed {
			verdicts[i] = model.NewVerdict(claim, result.Code, types[i])
			continue
		}
		survivors = append(survivors, i)
	}

	if len(survivors) == 0 {
		return verdicts, nil
	}

	// Score every survivor in one call
	pairs := make([]nli.Pair, len(survivors))
	for j, i := range survivors {
		pairs[j] = nli.Pair{Premise: claims[i].SupportText, Hypothesis: claims[i].Statement}
	}
	scores, err := e.scorer.Score(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("score %d claims: %w", len(pairs), err)
	}
	if len(scores) != len(pairs) {
		return nil, fmt.Errorf("scorer returned %d scores for %d claims", len(scores), len(pairs))
	}

	taskTerms := textutil.KeyTerms(task)
	registry := NewRegistry()

	// Pass 1: direct relevance
	var deferred []int
	for j, i := range survivors {
		claim := claims[i]
		if len(relevantTerms(claim.Statement, taskTerms)) == 0 {
			deferred = append(deferred, j)
			continue
		}

		verdict := e.decide(claim, scores[j], types[i])
		if verdict.IsValid {
			registry.Register(claim.DiscoveredEntities)
		}
		verdicts[i] = verdict
	}

	// Pass 2: subtopic bridging, against the registry as Pass 1 left it
	for _, j := range deferred {
		i := survivors[j]
		claim := claims[i]

		entity, bridged := registry.Bridge(claim.DiscoveredEntities)
		if !bridged {
			verdicts[i] = model.NewVerdict(claim, model.ReasonNotRelevant, types[i]).WithScore(scores[j])
			continue
		}

		verdict := e.decide(claim, scores[j], types[i])
		if verdict.IsValid {
			verdict.Rescued = true
			verdict.BridgeEntity = entity
			verdict.Reason = bridgedReason(entity)
			recordRescue(ctx)
			e.logger.Info("claim rescued by subtopic bridging",
				zap.String("claim_id", claim.ID),
				zap.String("entity", entity),
				zap.Float64("entailment", verdict.EntailmentScore),
			)
		}
		verdicts[i] = verdict
	}

	e.logger.Debug("verification complete",
		zap.Int("claims", len(claims)),
		zap.Int("scored", len(survivors)),
		zap.Int("deferred", len(deferred)),
		zap.Int("registry_entities", registry.Len()),
		zap.Strings("subtopics", registry.Entities()),
	)

	return verdicts, nil
}

// decide applies the entailment and contradiction thresholds. Accepted
// claims get verification-informed confidence.
func (e *Engine) decide(claim model.Claim, score model.RelationScore, claimType model.ClaimType) model.Verdict {
	code := model.ReasonVerified
	switch {
	case score.Contradiction >= e.thresholds.Contradiction:
		code = model.ReasonContradicted
	case score.Entailment < e.thresholds.Entailment:
		code = model.ReasonLowEntailment
	}

	if code == model.ReasonVerified {
		claim.Confidence = blendConfidence(claim.Confidence, score.Entailment, e.thresholds.ConfidenceBlend)
	}
	return model.NewVerdict(claim, code, claimType).WithScore(score)
}

func bridgedReason(entity string) string {
	return fmt.Sprintf("VERIFIED: Supported by source; relevant via subtopic %q", entity)
}
