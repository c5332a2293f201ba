package nli

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type batchFunc func(ctx context.Context, batch []Pair) ([]model.RelationScore, error)

// batcher splits pairs into fixed-size batches and runs up to parallelism
// of them at once, throttled per endpoint
type batcher struct {
	name        string
	endpoint    string
	batchSize   int
	parallelism int
	limiter     *worker.Limiter
	logger      *zap.Logger
}

func newBatcher(name string, cfg model.BackendConfig, logger *zap.Logger) batcher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	return batcher{
		name:        name,
		endpoint:    cfg.Endpoint,
		batchSize:   batchSize,
		parallelism: parallelism,
		limiter:     worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:      logger,
	}
}

func (b batcher) run(ctx context.Context, pairs []Pair, fn batchFunc) ([]model.RelationScore, error) {
	results := make([]model.RelationScore, len(pairs))
	if len(pairs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)

	for start := 0; start < len(pairs); start += b.batchSize {
		end := start + b.batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		start := start
		g.Go(func() error {
			if err := b.limiter.Wait(gctx, b.endpoint); err != nil {
				return fmt.Errorf("%s rate limit: %w", b.name, err)
			}

			began := time.Now()
			scores, err := fn(gctx, pairs[start:end])
			recordBatch(gctx, b.name, end-start, time.Since(began), err == nil)
			if err != nil {
				return fmt.Errorf("%s batch [%d:%d]: %w", b.name, start, end, err)
			}
			if len(scores) != end-start {
				return fmt.Errorf("%s batch [%d:%d]: got %d scores", b.name, start, end, len(scores))
			}
			for i, s := range scores {
				if s.Entailment < 0 || s.Contradiction < 0 || s.Neutral < 0 {
					return fmt.Errorf("%s batch [%d:%d]: negative score at index %d", b.name, start, end, start+i)
				}
			}
			copy(results[start:end], scores)

			b.logger.Debug("scored batch",
				zap.String("backend", b.name),
				zap.Int("pairs", end-start),
				zap.Duration("elapsed", time.Since(began)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
