package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_runs_total",
			Help: "Total settlement runs by result",
		},
		[]string{"result"},
	)

	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_ms",
			Help:    "Settlement run duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		},
		[]string{"result"},
	)

	settlementBets = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_bets_per_draw",
			Help:    "Number of bets settled per draw",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	settlementPayoutCents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_payout_cents_total",
			Help: "Total payout credited in cents",
		},
	)
)

// RecordSettlement 记录一次结算运行的业务指标
// result: "success" | "fail" | "skipped_locked" | "success_idempotent"
func RecordSettlement(result string, betsSettled int, payoutCents int64, started time.Time) {
	if result == "" {
		result = "fail"
	}
	settlementTotal.WithLabelValues(result).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	settlementDuration.WithLabelValues(result).Observe(durMs)
	if result == "success" {
		settlementBets.Observe(float64(betsSettled))
		settlementPayoutCents.Add(float64(payoutCents))
	}
}
