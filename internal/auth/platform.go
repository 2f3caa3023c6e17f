package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/config"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// 平台接入走服务端对服务端签名：上游白标站点拿着 app_secret
// 对 app_key+timestamp+nonce+body 做 HMAC-SHA256。
// 时间窗 5 分钟，nonce 进 Redis 防重放，Redis 挂了降级放行（签名仍校验）。
const (
	signatureWindowSec = 300
	nonceTTL           = 10 * time.Minute
)

// Platform 接入平台，来源于配置，不落库
type Platform struct {
	PlatformID int8     `json:"platform_id"`
	AppKey     string   `json:"app_key"`
	AppSecret  string   `json:"app_secret"`
	Name       string   `json:"name"`
	Status     int8     `json:"status"`
	RateLimit  int      `json:"rate_limit"`
	AllowedIPs []string `json:"allowed_ips"`
}

// VerifyPlatformSignature 校验平台请求头里的签名四件套，
// 通过返回平台信息，失败返回 Err* 系列错误交给中间件映射状态码
func VerifyPlatformSignature(ctx *beegocontext.Context) (*Platform, error) {
	appKey := strings.TrimSpace(ctx.Input.Header("X-Platform-Key"))
	timestamp := strings.TrimSpace(ctx.Input.Header("X-Timestamp"))
	nonce := strings.TrimSpace(ctx.Input.Header("X-Nonce"))
	signature := strings.TrimSpace(ctx.Input.Header("X-Signature"))

	if appKey == "" || timestamp == "" || nonce == "" || signature == "" {
		logger.Warn("missing authentication headers",
			zap.String("app_key", appKey),
			zap.Bool("has_timestamp", timestamp != ""),
			zap.Bool("has_nonce", nonce != ""),
			zap.Bool("has_signature", signature != ""))
		return nil, ErrMissingAuthHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		logger.Warn("invalid timestamp format", zap.String("timestamp", timestamp))
		return nil, ErrTimestampExpired
	}
	now := time.Now().Unix()
	if diff := math.Abs(float64(now - ts)); diff > signatureWindowSec {
		logger.Warn("timestamp expired",
			zap.Int64("timestamp", ts),
			zap.Int64("now", now),
			zap.Float64("diff_seconds", diff))
		return nil, ErrTimestampExpired
	}

	if err := checkAndSetNonce(ctx.Request.Context(), appKey, nonce); err != nil {
		logger.Warn("nonce check failed",
			zap.String("app_key", appKey),
			zap.String("nonce", nonce),
			zap.Error(err))
		return nil, err
	}

	platform, err := GetPlatformByAppKey(appKey)
	if err != nil {
		logger.Warn("platform not found", zap.String("app_key", appKey))
		return nil, ErrInvalidPlatform
	}
	if platform.Status != 1 {
		logger.Warn("platform is disabled",
			zap.String("app_key", appKey),
			zap.Int8("status", platform.Status))
		return nil, ErrPlatformDisabled
	}

	if len(platform.AllowedIPs) > 0 {
		clientIP := chelper.ClientIP(ctx.Request)
		if !chelper.IpInList(clientIP, platform.AllowedIPs) {
			logger.Warn("ip not allowed",
				zap.String("app_key", appKey),
				zap.String("client_ip", clientIP),
				zap.Strings("allowed_ips", platform.AllowedIPs))
			return nil, ErrIPNotAllowed
		}
	}

	body := readRequestBody(ctx)
	expectedSig := generateSignature(appKey, timestamp, nonce, body, platform.AppSecret)

	// 恒定时间比较，签名内容绝不整条进日志
	if !secureCompare(signature, expectedSig) {
		logger.Warn("signature verification failed",
			zap.String("app_key", appKey),
			zap.String("expected", truncateSig(expectedSig)),
			zap.String("received", truncateSig(signature)))
		return nil, ErrInvalidSignature
	}

	logger.Debug("platform authentication successful",
		zap.String("app_key", appKey),
		zap.Int8("platform_id", platform.PlatformID))

	return platform, nil
}

// GetPlatformByAppKey 按 app_key 查配置里的平台
func GetPlatformByAppKey(appKey string) (*Platform, error) {
	cfg := config.Get()
	if cfg == nil || cfg.Auth.Platforms == nil {
		return nil, ErrInvalidPlatform
	}

	for _, p := range cfg.Auth.Platforms {
		if p.AppKey == appKey {
			return &Platform{
				PlatformID: p.PlatformID,
				AppKey:     p.AppKey,
				AppSecret:  p.AppSecret,
				Name:       p.Name,
				Status:     p.Status,
				RateLimit:  p.RateLimit,
				AllowedIPs: p.AllowedIPs,
			}, nil
		}
	}

	return nil, ErrInvalidPlatform
}

// checkAndSetNonce nonce 查重并占位；Redis 不可用只告警不阻断
func checkAndSetNonce(ctx context.Context, appKey, nonce string) error {
	rdb := infrds.Client()
	if rdb == nil {
		logger.Warn("redis not available, skip nonce check")
		return nil
	}

	nonceKey := fmt.Sprintf("nonce:%s:%s", appKey, nonce)

	exists, err := rdb.Exists(ctx, nonceKey).Result()
	if err != nil {
		logger.Warn("redis exists check failed", zap.Error(err))
		return nil
	}
	if exists > 0 {
		return ErrNonceReused
	}

	if err := rdb.SetEx(ctx, nonceKey, "1", nonceTTL).Err(); err != nil {
		logger.Warn("redis setex failed", zap.Error(err))
	}
	return nil
}

// generateSignature HMAC-SHA256(app_key + timestamp + nonce + body, app_secret)
func generateSignature(appKey, timestamp, nonce, body, secret string) string {
	signString := appKey + timestamp + nonce + body
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(signString))
	return hex.EncodeToString(h.Sum(nil))
}

func truncateSig(s string) string {
	if len(s) > 16 {
		return s[:16] + "..."
	}
	return s
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return hmac.Equal([]byte(a), []byte(b))
}

// readRequestBody 取签名用的原始body；beego 开了 CopyRequestBody，
// 这里再在 Input data 里缓存一份避免重复转串
func readRequestBody(ctx *beegocontext.Context) string {
	if ctx.Request.Method == "GET" || ctx.Request.Method == "DELETE" {
		return ""
	}

	if body := ctx.Input.GetData("request_body"); body != nil {
		if bodyStr, ok := body.(string); ok {
			return bodyStr
		}
	}

	bodyStr := string(ctx.Input.RequestBody)
	ctx.Input.SetData("request_body", bodyStr)
	return bodyStr
}

// IsValidPlatformUserID 平台侧用户ID只收字母数字下划线连字符，64位封顶
func IsValidPlatformUserID(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '_' || c == '-') {
			return false
		}
	}
	return true
}
