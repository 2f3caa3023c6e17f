package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ThalesMilho/projeto-web/internal/auth"
	"github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	"github.com/ThalesMilho/projeto-web/internal/model"

	beego "github.com/beego/beego/v2/server/web"
)

// SessionController 会话令牌接口：
// 渠道方通过平台签名换玩家 JWT，之后钱包/支付接口都走 Bearer 令牌
type SessionController struct{ beego.Controller }

type tokenRequestParam struct {
	AccountId int64 `json:"account_id"`
}

// Token 签发令牌：POST /api/session/token（平台签名保护）
func (c *SessionController) Token() {
	traceID := helper.GetTraceID(c.Ctx)

	var rp tokenRequestParam
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &rp); err != nil || rp.AccountId <= 0 {
		response.BadRequest(&c.Controller, "account_id is required", traceID)
		return
	}

	acc, err := model.GetAccountByID(c.Ctx.Request.Context(), infmysql.SQLX(), rp.AccountId)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	if acc == nil {
		response.NotFound(&c.Controller, "账户不存在", traceID)
		return
	}
	if acc.Status != 1 {
		response.ErrorWithMessage(&c.Controller, 403, response.CodeForbidden, "账户已禁用", traceID)
		return
	}

	platformID, _ := c.Ctx.Input.GetData("platform_id").(int8)
	var appKey string
	if p, ok := c.Ctx.Input.GetData("platform").(*auth.Platform); ok {
		appKey = p.AppKey
	}

	access, err := auth.GenerateAccessToken(acc.ID, acc.Username, platformID, appKey)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	refresh, err := auth.GenerateRefreshToken(acc.ID, acc.Username, platformID, appKey)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"account_id":    acc.ID,
		"access_token":  access,
		"refresh_token": refresh,
	}, traceID)
}

// Refresh 用刷新令牌换新的访问令牌：POST /api/session/refresh
// Authorization 头带 refresh 令牌；access 令牌在这里不认
func (c *SessionController) Refresh() {
	traceID := helper.GetTraceID(c.Ctx)

	claims, err := auth.VerifyJWTToken(c.Ctx)
	if err != nil {
		response.Error(&c.Controller, 401, response.CodeInvalidToken, traceID)
		return
	}
	if claims.TokenType != "refresh" {
		response.ErrorWithMessage(&c.Controller, 401, response.CodeInvalidToken, "需要 refresh 令牌", traceID)
		return
	}

	access, err := auth.GenerateAccessToken(claims.UserID, claims.Username, claims.PlatformID, claims.AppKey)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"account_id":   claims.UserID,
		"access_token": access,
	}, traceID)
}

// Logout 注销：当前令牌进黑名单，剩余有效期内不再可用
func (c *SessionController) Logout() {
	traceID := helper.GetTraceID(c.Ctx)

	var claims *auth.JWTClaims
	if v, ok := c.Ctx.Input.GetData("jwt_claims").(*auth.JWTClaims); ok {
		claims = v
	} else {
		parsed, err := auth.VerifyJWTToken(c.Ctx)
		if err != nil {
			response.Error(&c.Controller, 401, response.CodeInvalidToken, traceID)
			return
		}
		claims = parsed
	}

	expiresAt := jwtExpiry(claims)
	token := bearerToken(c.Ctx.Input.Header("Authorization"))
	if token != "" {
		if err := auth.RevokeToken(c.Ctx.Request.Context(), token, expiresAt); err != nil {
			response.InternalError(&c.Controller, traceID)
			return
		}
	}
	response.Success(&c.Controller, nil, traceID)
}

func bearerToken(authHeader string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return token
}

func jwtExpiry(claims *auth.JWTClaims) time.Time {
	if claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Time{}
}
