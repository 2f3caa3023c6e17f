package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	chelper "github.com/ThalesMilho/projeto-web/common/helper"
)

var (
	paymentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Total payment events handled by result, kind and event",
		},
		[]string{"result", "kind", "event"},
	)

	paymentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_event_duration_ms",
			Help:    "Payment event handling duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "kind"},
	)

	gatewayCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Total PIX gateway calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	_ = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gateway_http_active_connections",
			Help: "In-flight HTTP requests to the PIX gateway",
		},
		func() float64 {
			active, _ := chelper.GetConcurrencyStats()
			return float64(active)
		},
	)

	_ = promauto.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total HTTP requests issued to the PIX gateway",
		},
		func() float64 {
			_, total := chelper.GetConcurrencyStats()
			return float64(total)
		},
	)
)

// RecordPayment 记录支付事件的业务指标
// result: "success" | "fail" | "duplicate"
// kind: "deposit" | "withdraw"
func RecordPayment(result, kind, event string, started time.Time) {
	res := result
	if res == "" {
		res = "fail"
	}
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "" {
		k = "unknown"
	}
	ev := strings.ToLower(strings.TrimSpace(event))
	if ev == "" {
		ev = "unknown"
	}
	paymentTotal.WithLabelValues(res, k, ev).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	paymentDuration.WithLabelValues(res, k).Observe(durMs)
}

// RecordGatewayCall 记录网关调用结果
func RecordGatewayCall(operation, result string) {
	gatewayCallTotal.WithLabelValues(operation, result).Inc()
}
