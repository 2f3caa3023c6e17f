package middleware

import (
	"strings"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"

	"github.com/ThalesMilho/projeto-web/common/logger"
)

// RequestIDFilter 为每个请求注入 trace_id 并回写 X-Request-Id 响应头。
// 上游（网关/渠道方）带了就沿用，保证跨系统对账时一条链路一个 ID
func RequestIDFilter(ctx *context.Context) {
	id := strings.TrimSpace(ctx.Input.Header("X-Request-Id"))
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	ctx.Input.SetData("trace_id", id)
	// 同步写进 request context，脱离 beego 上下文的层（service/worker）也能取到
	ctx.Request = ctx.Request.WithContext(logger.WithTraceID(ctx.Request.Context(), id))
	ctx.Output.Header("X-Request-Id", id)
}
