package middleware

import (
	"time"

	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/auth"
	"github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"
	"github.com/ThalesMilho/projeto-web/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// 平台认证失败到业务码的映射，HTTP 状态跟着业务码走
type authFailure struct {
	httpCode int
	bizCode  int
	message  string
}

var platformAuthFailures = map[error]authFailure{
	auth.ErrMissingAuthHeaders: {401, response.CodeUnauthorized, "缺少认证信息"},
	auth.ErrTimestampExpired:   {401, response.CodeTimestampExpired, "时间戳已过期"},
	auth.ErrNonceReused:        {401, response.CodeNonceReused, "Nonce已被使用"},
	auth.ErrInvalidSignature:   {401, response.CodeInvalidSignature, "签名验证失败"},
	auth.ErrInvalidPlatform:    {401, response.CodeInvalidPlatform, "无效的平台"},
	auth.ErrPlatformDisabled:   {403, response.CodePlatformDisabled, "平台已禁用"},
	auth.ErrIPNotAllowed:       {403, response.CodeIPNotAllowed, "IP不在白名单"},
}

func writeAuthError(ctx *beegocontext.Context, traceID string, f authFailure) {
	ctx.Output.SetStatus(f.httpCode)
	ctx.Output.JSON(response.APIResponse{
		Code:      f.bizCode,
		Message:   f.message,
		Data:      nil,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}, false, false)
}

// injectDemoIdentity 演示模式身份注入：
// 联调环境不要求上游会算签名，头或参数里给个用户ID就行
func injectDemoIdentity(ctx *beegocontext.Context, cfg *config.Config, traceID string) {
	platformUserID := ctx.Input.Header("X-Platform-User-Id")
	if platformUserID == "" {
		platformUserID = ctx.Input.Query("user_id")
	}
	if platformUserID == "" {
		platformUserID = "demo_user_001"
	}

	platformUserName := ctx.Input.Header("X-Platform-User-Name")
	if platformUserName == "" {
		platformUserName = "Demo User"
	}

	ctx.Input.SetData("platform_id", cfg.Auth.DemoPlatform.PlatformID)
	ctx.Input.SetData("platform_user_id", platformUserID)
	ctx.Input.SetData("platform_user_name", platformUserName)
	ctx.Input.SetData("demo_mode", true)

	logger.Debug("demo mode authentication",
		zap.String("trace_id", traceID),
		zap.String("platform_user_id", platformUserID))
}

// PlatformAuthFilter 平台签名认证，通过后把平台与平台侧用户注入请求上下文
func PlatformAuthFilter(ctx *beegocontext.Context) {
	cfg := config.Get()
	traceID := helper.GetTraceID(ctx)

	if cfg != nil && cfg.Auth.DemoMode {
		injectDemoIdentity(ctx, cfg, traceID)
		return
	}

	platform, err := auth.VerifyPlatformSignature(ctx)
	if err != nil {
		logger.Warn("platform authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))
		if f, ok := platformAuthFailures[err]; ok {
			writeAuthError(ctx, traceID, f)
		} else {
			writeAuthError(ctx, traceID, authFailure{401, response.CodeUnauthorized, "认证失败"})
		}
		return
	}

	platformUserID := ctx.Input.Header("X-Platform-User-Id")
	if platformUserID == "" {
		logger.Warn("missing platform user id",
			zap.String("trace_id", traceID),
			zap.String("platform", platform.AppKey))
		writeAuthError(ctx, traceID, authFailure{400, response.CodeBadRequest, "X-Platform-User-Id is required"})
		return
	}
	if !auth.IsValidPlatformUserID(platformUserID) {
		logger.Warn("invalid platform user id format",
			zap.String("trace_id", traceID),
			zap.String("platform_user_id", platformUserID))
		writeAuthError(ctx, traceID, authFailure{400, response.CodeBadRequest, "invalid platform_user_id format"})
		return
	}

	ctx.Input.SetData("platform", platform)
	ctx.Input.SetData("platform_id", platform.PlatformID)
	ctx.Input.SetData("platform_user_id", platformUserID)
	ctx.Input.SetData("platform_user_name", ctx.Input.Header("X-Platform-User-Name"))

	logger.Debug("platform authentication successful",
		zap.String("trace_id", traceID),
		zap.String("platform", platform.AppKey),
		zap.Int8("platform_id", platform.PlatformID),
		zap.String("platform_user_id", platformUserID))
}

// DemoAuthFilter 只在演示模式下生效的简化认证；
// 生产配置下是空操作，已认证的请求也不重复注入
func DemoAuthFilter(ctx *beegocontext.Context) {
	cfg := config.Get()
	if cfg == nil || !cfg.Auth.DemoMode {
		return
	}
	if ctx.Input.GetData("platform_id") != nil {
		return
	}
	injectDemoIdentity(ctx, cfg, helper.GetTraceID(ctx))
}
