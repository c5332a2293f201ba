package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("claimgate.cache")

var (
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		cacheHits, err = meter.Int64Counter(
			"claimgate_score_cache_hits_total",
			metric.WithDescription("Entailment score lookups answered from cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheMisses, err = meter.Int64Counter(
			"claimgate_score_cache_misses_total",
			metric.WithDescription("Entailment score lookups sent to the model"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordLookups(ctx context.Context, hits, misses int) {
	if err := initMetrics(); err != nil {
		return
	}
	if hits > 0 {
		cacheHits.Add(ctx, int64(hits))
	}
	if misses > 0 {
		cacheMisses.Add(ctx, int64(misses))
	}
}
