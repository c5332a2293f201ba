package nli

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("claimgate.nli")

var (
	batchLatency metric.Float64Histogram
	pairsTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		batchLatency, err = meter.Float64Histogram(
			"claimgate_backend_batch_duration_seconds",
			metric.WithDescription("Duration of one backend batch request"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pairsTotal, err = meter.Int64Counter(
			"claimgate_backend_pairs_total",
			metric.WithDescription("Premise/hypothesis pairs sent to a backend"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBatch(ctx context.Context, backend string, pairs int, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("success", success),
	)
	batchLatency.Record(ctx, duration.Seconds(), attrs)
	pairsTotal.Add(ctx, int64(pairs), attrs)
}
