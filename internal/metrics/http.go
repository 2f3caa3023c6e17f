package metrics

import (
	"strconv"
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in ms",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"path", "method"},
	)
)

// HTTPMetricsFilter 在路由前记下开始时间
func HTTPMetricsFilter(ctx *context.Context) {
	ctx.Input.SetData("_metrics_start", time.Now())
}

// HTTPMetricsAfter 响应完成后记录耗时与状态码。
// path 用路由模板而不是原始 URL，避免 /api/draw/:draw_id 之类把标签打爆
func HTTPMetricsAfter(ctx *context.Context) {
	v := ctx.Input.GetData("_metrics_start")
	start, _ := v.(time.Time)
	if start.IsZero() {
		return
	}
	path := ctx.Input.URL()
	if tpl, ok := ctx.Input.GetData("RouterPattern").(string); ok && tpl != "" {
		path = tpl
	}
	method := ctx.Input.Method()
	status := strconv.Itoa(ctx.ResponseWriter.Status)

	httpReqDuration.WithLabelValues(path, method).Observe(float64(time.Since(start).Milliseconds()))
	httpReqTotal.WithLabelValues(path, method, status).Inc()
}
