package verify

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("claimgate.verify")

var (
	verifyLatency metric.Float64Histogram
	verdictsTotal metric.Int64Counter
	rescuesTotal  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		verifyLatency, err = meter.Float64Histogram(
			"claimgate_verify_duration_seconds",
			metric.WithDescription("Duration of one Verify call"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		verdictsTotal, err = meter.Int64Counter(
			"claimgate_verdicts_total",
			metric.WithDescription("Verdicts emitted by reason code"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rescuesTotal, err = meter.Int64Counter(
			"claimgate_rescues_total",
			metric.WithDescription("Claims accepted through subtopic bridging"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordVerify(ctx context.Context, duration time.Duration, claims int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	verifyLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Int("claims", claims),
		attribute.Bool("success", success),
	))
}

func recordVerdict(ctx context.Context, code string) {
	if err := initMetrics(); err != nil {
		return
	}
	verdictsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func recordRescue(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	rescuesTotal.Add(ctx, 1)
}
