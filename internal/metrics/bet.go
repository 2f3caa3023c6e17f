package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	betTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bet_requests_total",
			Help: "Total bet requests by result and modality",
		},
		[]string{"result", "modality"},
	)

	betDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bet_request_duration_ms",
			Help:    "Bet request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "modality"},
	)

	betStakeCents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bet_stake_cents_total",
			Help: "Accepted stake in cents by modality",
		},
		[]string{"modality"},
	)
)

// RecordBet records business metrics for a bet call.
// result should be "success" or "fail"; modality is normalized to lower-case.
func RecordBet(result, modality string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	m := strings.ToLower(modality)
	if m == "" {
		m = "unknown"
	}
	betTotal.WithLabelValues(res, m).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	betDuration.WithLabelValues(res, m).Observe(durMs)
}

// RecordStake 记录已受理的投注金额（分）
func RecordStake(modality string, amountCents int64) {
	m := strings.ToLower(modality)
	if m == "" {
		m = "unknown"
	}
	betStakeCents.WithLabelValues(m).Add(float64(amountCents))
}
