package auth

import "errors"

// 渠道方（平台）签名认证错误
var (
	ErrMissingAuthHeaders = errors.New("missing authentication headers")
	ErrInvalidPlatform    = errors.New("invalid platform")
	ErrPlatformDisabled   = errors.New("platform is disabled")
	ErrTimestampExpired   = errors.New("timestamp expired")
	ErrNonceReused        = errors.New("nonce already used")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrIPNotAllowed       = errors.New("ip address not allowed")
)

// 玩家 JWT 会话错误
var (
	ErrMissingToken         = errors.New("missing authorization token")
	ErrInvalidTokenFormat   = errors.New("invalid token format")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
)
