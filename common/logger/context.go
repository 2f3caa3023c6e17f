package logger

import "context"

type ctxKey struct{}

var traceIDKey ctxKey

// WithTraceID 把 trace_id 塞进 context，请求入口注入一次
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID 从 context 取 trace_id，取不到返回空串
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}
