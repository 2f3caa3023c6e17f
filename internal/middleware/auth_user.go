package middleware

import (
	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/auth"
	"github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

var jwtAuthFailures = map[error]authFailure{
	auth.ErrMissingToken:       {401, response.CodeUnauthorized, "缺少认证Token"},
	auth.ErrInvalidTokenFormat: {401, response.CodeInvalidToken, "Token格式无效"},
	auth.ErrInvalidToken:       {401, response.CodeInvalidToken, "Token无效"},
	auth.ErrTokenExpired:       {401, response.CodeTokenExpired, "Token已过期"},
	auth.ErrTokenRevoked:       {401, response.CodeTokenRevoked, "Token已撤销"},
}

// UserAuthFilter JWT 认证，通过后把 user_id/claims 注入请求上下文。
// 与平台认证叠加使用时校验 token 与平台的一致性，
// 防止 A 平台签出的 token 打到 B 平台的路由上
func UserAuthFilter(ctx *beegocontext.Context) {
	traceID := helper.GetTraceID(ctx)

	claims, err := auth.VerifyJWTToken(ctx)
	if err != nil {
		logger.Warn("user authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))
		if f, ok := jwtAuthFailures[err]; ok {
			writeAuthError(ctx, traceID, f)
		} else {
			writeAuthError(ctx, traceID, authFailure{401, response.CodeUnauthorized, "认证失败"})
		}
		return
	}

	if platformID := ctx.Input.GetData("platform_id"); platformID != nil {
		if pid, ok := platformID.(int8); ok && claims.PlatformID != pid {
			logger.Warn("platform mismatch",
				zap.String("trace_id", traceID),
				zap.Int8("token_platform_id", claims.PlatformID),
				zap.Int8("request_platform_id", pid))
			writeAuthError(ctx, traceID, authFailure{403, response.CodeForbidden, "平台不匹配"})
			return
		}
	}

	ctx.Input.SetData("user_id", claims.UserID)
	ctx.Input.SetData("username", claims.Username)
	ctx.Input.SetData("jwt_claims", claims)

	// 纯 JWT 路由上没有平台中间件，平台信息从 token 里补
	if ctx.Input.GetData("platform_id") == nil {
		ctx.Input.SetData("platform_id", claims.PlatformID)
		ctx.Input.SetData("app_key", claims.AppKey)
	}

	logger.Debug("user authentication successful",
		zap.String("trace_id", traceID),
		zap.Int64("user_id", claims.UserID),
		zap.String("username", claims.Username),
		zap.Int8("platform_id", claims.PlatformID))
}
