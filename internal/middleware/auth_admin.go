package middleware

import (
	"crypto/subtle"
	"strings"

	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"
	"github.com/ThalesMilho/projeto-web/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// AdminAuthFilter 管理员认证过滤器（简单Token）
// 用于保护管理接口（如开奖、游戏事件等）
func AdminAuthFilter(ctx *beegocontext.Context) {
	cfg := config.Get()
	traceID := helper.GetTraceID(ctx)

	// 如果未启用管理员认证，跳过
	if cfg == nil || !cfg.Auth.Admin.Enabled {
		logger.Debug("admin auth disabled, skip", zap.String("trace_id", traceID))
		return
	}

	// 提取 Authorization 头
	authHeader := strings.TrimSpace(ctx.Input.Header("Authorization"))
	if authHeader == "" {
		logger.Warn("missing admin token", zap.String("trace_id", traceID))
		writeAuthError(ctx, traceID, authFailure{401, response.CodeUnauthorized, "缺少管理员认证信息"})
		return
	}

	// 解析 Bearer Token
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		logger.Warn("invalid admin token format", zap.String("trace_id", traceID))
		writeAuthError(ctx, traceID, authFailure{401, response.CodeUnauthorized, "无效的认证格式"})
		return
	}

	token := parts[1]

	if !adminTokenValid(token, cfg.Auth.Admin.Token) {
		logger.Warn("invalid admin token",
			zap.String("trace_id", traceID),
			zap.String("token_prefix", token[:min(len(token), 8)]+"..."))
		writeAuthError(ctx, traceID, authFailure{401, response.CodeUnauthorized, "无效的管理员Token"})
		return
	}

	// 标记为管理员请求
	ctx.Input.SetData("is_admin", true)

	logger.Debug("admin authentication successful", zap.String("trace_id", traceID))
}

// adminTokenValid 配置里放 bcrypt 哈希（$2 开头）或明文都支持；
// 明文比较走常量时间，避免逐字节短路
func adminTokenValid(presented, configured string) bool {
	if configured == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2") {
		return chelper.CheckPassword(presented, configured)
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}
