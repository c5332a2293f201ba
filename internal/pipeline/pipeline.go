// Package pipeline wires configuration into a ready verification engine and
// runs claim batches through it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/claimgate/internal/audit"
	"github.com/ppiankov/claimgate/internal/cache"
	"github.com/ppiankov/claimgate/internal/heuristic"
	"github.com/ppiankov/claimgate/internal/ingest"
	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/nli"
	"github.com/ppiankov/claimgate/internal/verify"
	"go.uber.org/zap"
)

// ErrNoTask is returned for a batch without a research task
var ErrNoTask = errors.New("batch has no task")

// Pipeline owns the backend, cache, engine and audit log for one process
type Pipeline struct {
	backend nli.Backend
	store   cache.Store
	cache   *cache.ScoreCache // nil when caching is disabled
	engine  *verify.Engine
	audit   *audit.Store // nil when auditing is disabled
	config  *model.Config
	logger  *zap.Logger
}

// NewPipeline validates cfg and builds every component. Backend
// construction errors are returned as *nli.ConfigError.
func NewPipeline(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	backend, err := nli.NewBackend(ctx, cfg.Backend, logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		backend: backend,
		config:  cfg,
		logger:  logger,
	}

	var scorer verify.Scorer = nli.NewScorer(backend, nli.PolicyFromConfig(cfg.Chunking, cfg.Backend.MaxSeqLength))

	if cfg.Cache.Enabled {
		store, err := cache.NewStore(cfg.Cache)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("score cache: %w", err)
		}
		p.store = store
		p.cache = cache.NewScoreCache(store, scorer, CacheNamespace(cfg), logger)
		scorer = p.cache
	}

	if cfg.Audit.Enabled {
		if cfg.Audit.Path == "" {
			_ = p.Close()
			return nil, fmt.Errorf("audit.path is required when audit is enabled")
		}
		store, err := audit.NewStore(cfg.Audit.Path)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("audit store: %w", err)
		}
		p.audit = store
	}

	p.engine = verify.NewEngine(heuristic.NewGate(cfg.Heuristics), scorer, cfg.Thresholds, logger)
	return p, nil
}

// CacheNamespace identifies everything that changes a pair's score: the
// model and the windowing applied before it
func CacheNamespace(cfg *model.Config) string {
	ns := fmt.Sprintf("%s|len=%d", nli.Identity(cfg.Backend), cfg.Backend.MaxSeqLength)
	if cfg.Chunking.Enabled {
		ns += fmt.Sprintf("|chunk=%d/%d/%s", cfg.Chunking.ChunkTokens, cfg.Chunking.OverlapTokens, cfg.Chunking.Aggregation)
	}
	return ns
}

// VerifyFile loads a batch file and verifies it with the task it carries
func (p *Pipeline) VerifyFile(ctx context.Context, path string) (*model.RunReport, error) {
	batch, err := ingest.Load(path)
	if err != nil {
		return nil, err
	}
	return p.VerifyBatch(ctx, batch, path)
}

// VerifyBatch verifies one batch. Rejections are written to the audit log
// when it is enabled; an audit failure is logged, not returned.
func (p *Pipeline) VerifyBatch(ctx context.Context, batch *ingest.Batch, source string) (*model.RunReport, error) {
	if batch.Task == "" {
		return nil, ErrNoTask
	}

	report := &model.RunReport{
		RunID:     uuid.NewString(),
		Source:    source,
		Task:      batch.Task,
		StartedAt: time.Now().UTC(),
	}

	verdicts, err := p.engine.Verify(ctx, batch.Claims, batch.Task)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	report.Verdicts = verdicts
	report.Duration = time.Since(report.StartedAt).Round(time.Millisecond).String()
	report.Summary = model.Summarize(verdicts)

	if p.cache != nil {
		stats := p.cache.Stats()
		rate := stats.HitRate()
		report.Summary.CacheHitRate = &rate
		p.logger.Debug("score cache",
			zap.Int64("hits", stats.Hits),
			zap.Int64("misses", stats.Misses),
			zap.Int("entries", stats.Entries),
		)
	}

	if p.audit != nil {
		if _, err := p.audit.Record(ctx, report.RunID, verdicts); err != nil {
			p.logger.Warn("audit write failed", zap.String("run_id", report.RunID), zap.Error(err))
		}
	}

	return report, nil
}

// CacheStats returns score cache counters, or false when caching is off
func (p *Pipeline) CacheStats() (cache.Stats, bool) {
	if p.cache == nil {
		return cache.Stats{}, false
	}
	return p.cache.Stats(), true
}

// Audit returns the audit store, or nil when auditing is disabled
func (p *Pipeline) Audit() *audit.Store {
	return p.audit
}

// Close releases the backend connection, persistent cache and audit log
func (p *Pipeline) Close() error {
	var errs []error
	if closer, ok := p.backend.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if closer, ok := p.store.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if p.audit != nil {
		errs = append(errs, p.audit.Close())
	}
	return errors.Join(errs...)
}
