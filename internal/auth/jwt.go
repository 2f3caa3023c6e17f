package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/config"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWTClaims 玩家会话令牌的载荷
type JWTClaims struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	PlatformID int8   `json:"platform_id"`
	AppKey     string `json:"app_key"`
	TokenType  string `json:"token_type"` // access / refresh
	jwt.RegisteredClaims
}

func signToken(userID int64, username string, platformID int8, appKey, tokenType string, ttlSeconds int) (string, error) {
	cfg := config.Get()
	if cfg == nil {
		return "", fmt.Errorf("config not loaded")
	}

	now := time.Now()
	claims := JWTClaims{
		UserID:     userID,
		Username:   username,
		PlatformID: platformID,
		AppKey:     appKey,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSeconds) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    cfg.Auth.JWT.Issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.JWT.Secret))
}

// GenerateAccessToken 生成访问令牌
func GenerateAccessToken(userID int64, username string, platformID int8, appKey string) (string, error) {
	cfg := config.Get()
	if cfg == nil {
		return "", fmt.Errorf("config not loaded")
	}
	return signToken(userID, username, platformID, appKey, "access", cfg.Auth.JWT.AccessTokenTTL)
}

// GenerateRefreshToken 生成刷新令牌
func GenerateRefreshToken(userID int64, username string, platformID int8, appKey string) (string, error) {
	cfg := config.Get()
	if cfg == nil {
		return "", fmt.Errorf("config not loaded")
	}
	return signToken(userID, username, platformID, appKey, "refresh", cfg.Auth.JWT.RefreshTokenTTL)
}

// VerifyJWTToken 校验 Authorization 头里的 Bearer 令牌。
// 签名算法锁死 HMAC，拒绝 alg=none 一类的降级攻击
func VerifyJWTToken(ctx *beegocontext.Context) (*JWTClaims, error) {
	authHeader := strings.TrimSpace(ctx.Input.Header("Authorization"))
	if authHeader == "" {
		return nil, ErrMissingToken
	}
	scheme, tokenString, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || strings.ContainsRune(tokenString, ' ') {
		return nil, ErrInvalidTokenFormat
	}

	cfg := config.Get()
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return []byte(cfg.Auth.JWT.Secret), nil
	})
	if err != nil {
		logger.Warn("jwt parse failed", zap.Error(err))
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if IsTokenBlacklisted(ctx.Request.Context(), tokenString) {
		logger.Warn("token is blacklisted",
			zap.Int64("user_id", claims.UserID),
			zap.String("token_type", claims.TokenType))
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// 黑名单键存令牌摘要，不把原始令牌落进 Redis
func blacklistKey(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return "token:blacklist:" + hex.EncodeToString(sum[:])
}

// RevokeToken 撤销令牌：登出/封号时加黑名单，TTL 对齐令牌剩余有效期
func RevokeToken(ctx context.Context, tokenString string, expiresAt time.Time) error {
	rdb := infrds.Client()
	if rdb == nil {
		logger.Warn("redis not available, cannot revoke token")
		return nil
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := rdb.SetEx(ctx, blacklistKey(tokenString), "1", ttl).Err(); err != nil {
		logger.Warn("failed to add token to blacklist", zap.Error(err))
		return err
	}
	return nil
}

// IsTokenBlacklisted Redis 不可用或出错时放行，黑名单是尽力而为的防线
func IsTokenBlacklisted(ctx context.Context, tokenString string) bool {
	rdb := infrds.Client()
	if rdb == nil {
		return false
	}

	exists, err := rdb.Exists(ctx, blacklistKey(tokenString)).Result()
	if err != nil {
		logger.Warn("failed to check token blacklist", zap.Error(err))
		return false
	}
	return exists > 0
}
