package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/nli"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Scorer is anything that scores pairs in order (a backend or nli.Scorer)
type Scorer interface {
	Score(ctx context.Context, pairs []nli.Pair) ([]model.RelationScore, error)
}

// Stats is a snapshot of cache effectiveness
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// HitRate returns hits over lookups, or 0 before the first lookup
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ScoreCache memoizes a Scorer. A cached score is returned bit-for-bit as
// first computed. Failed computations are never stored.
type ScoreCache struct {
	store     Store
	scorer    Scorer
	namespace string
	flight    singleflight.Group
	hits      atomic.Int64
	misses    atomic.Int64
	logger    *zap.Logger
}

// NewScoreCache wraps scorer with store. namespace must identify the model
// and any parameter that changes its output.
func NewScoreCache(store Store, scorer Scorer, namespace string, logger *zap.Logger) *ScoreCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreCache{
		store:     store,
		scorer:    scorer,
		namespace: namespace,
		logger:    logger,
	}
}

// NewStore builds the store described by cfg: LRU when bounded, otherwise
// an unbounded memory map, with a badger layer underneath when Dir is set
func NewStore(cfg model.CacheConfig) (Store, error) {
	var memory Store = NewMemoryCache()
	if cfg.MaxEntries > 0 {
		bounded, err := NewBoundedCache(cfg.MaxEntries)
		if err != nil {
			return nil, err
		}
		memory = bounded
	}

	if cfg.Dir == "" {
		return memory, nil
	}

	persistent, err := NewBadgerCache(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return NewLayeredCache(memory, persistent), nil
}

// Score implements Scorer. Cached pairs are answered from the store; all
// misses go to the underlying scorer in one call, duplicates collapsed.
// Only the first occurrence of an uncached pair counts as a miss.
func (c *ScoreCache) Score(ctx context.Context, pairs []nli.Pair) ([]model.RelationScore, error) {
	results := make([]model.RelationScore, len(pairs))

	pending := make(map[string][]int)
	var missKeys []string
	var missPairs []nli.Pair
	hits := 0

	for i, pair := range pairs {
		key := PairKey(c.namespace, pair.Premise, pair.Hypothesis)
		if score, ok := c.lookup(key); ok {
			results[i] = score
			hits++
			continue
		}
		// A repeat of a pending key is answered by the first computation
		if _, seen := pending[key]; seen {
			hits++
		} else {
			missKeys = append(missKeys, key)
			missPairs = append(missPairs, pair)
		}
		pending[key] = append(pending[key], i)
	}

	c.hits.Add(int64(hits))
	c.misses.Add(int64(len(missPairs)))
	recordLookups(ctx, hits, len(missPairs))

	if len(missPairs) == 0 {
		return results, nil
	}

	scores, err := c.scorer.Score(ctx, missPairs)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(missPairs) {
		return nil, fmt.Errorf("scorer returned %d scores for %d pairs", len(scores), len(missPairs))
	}

	for j, key := range missKeys {
		if err := c.store.Set(key, encodeScore(scores[j])); err != nil {
			c.logger.Warn("score cache write failed", zap.Error(err))
		}
		for _, i := range pending[key] {
			results[i] = scores[j]
		}
	}

	c.logger.Debug("score cache batch",
		zap.Int("pairs", len(pairs)),
		zap.Int("hits", hits),
		zap.Int("computed", len(missPairs)),
	)
	return results, nil
}

// GetOrCompute scores a single pair. Concurrent callers asking for the same
// uncached pair share one computation.
func (c *ScoreCache) GetOrCompute(ctx context.Context, pair nli.Pair) (model.RelationScore, error) {
	key := PairKey(c.namespace, pair.Premise, pair.Hypothesis)
	if score, ok := c.lookup(key); ok {
		c.hits.Add(1)
		recordLookups(ctx, 1, 0)
		return score, nil
	}
	c.misses.Add(1)
	recordLookups(ctx, 0, 1)

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		if score, ok := c.lookup(key); ok {
			return score, nil
		}
		scores, err := c.scorer.Score(ctx, []nli.Pair{pair})
		if err != nil {
			return nil, err
		}
		if len(scores) != 1 {
			return nil, fmt.Errorf("scorer returned %d scores for 1 pair", len(scores))
		}
		if err := c.store.Set(key, encodeScore(scores[0])); err != nil {
			c.logger.Warn("score cache write failed", zap.Error(err))
		}
		return scores[0], nil
	})
	if err != nil {
		return model.RelationScore{}, err
	}
	return v.(model.RelationScore), nil
}

// Stats returns current counters
func (c *ScoreCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.store.Len(),
	}
}

func (c *ScoreCache) lookup(key string) (model.RelationScore, bool) {
	raw, ok := c.store.Get(key)
	if !ok {
		return model.RelationScore{}, false
	}
	score, err := decodeScore(raw)
	if err != nil {
		_ = c.store.Delete(key)
		return model.RelationScore{}, false
	}
	return score, true
}

const encodedScoreSize = 24

// encodeScore stores the raw float bits so cached values round-trip exactly
func encodeScore(s model.RelationScore) []byte {
	buf := make([]byte, encodedScoreSize)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(s.Entailment))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(s.Contradiction))
	binary.BigEndian.PutUint64(buf[16:24], math.Float64bits(s.Neutral))
	return buf
}

func decodeScore(buf []byte) (model.RelationScore, error) {
	if len(buf) != encodedScoreSize {
		return model.RelationScore{}, fmt.Errorf("corrupt score entry: %d bytes", len(buf))
	}
	return model.RelationScore{
		Entailment:    math.Float64frombits(binary.BigEndian.Uint64(buf[0:8])),
		Contradiction: math.Float64frombits(binary.BigEndian.Uint64(buf[8:16])),
		Neutral:       math.Float64frombits(binary.BigEndian.Uint64(buf[16:24])),
	}, nil
}
