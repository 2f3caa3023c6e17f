package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/auth"
	"github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"
	"github.com/ThalesMilho/projeto-web/internal/config"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 单个限流维度：dimension 进 Redis key，key 是维度内的具体对象
type limitCheck struct {
	dimension string
	key       string
	limit     int
	windowSec int
}

// RateLimitFilter 多维度滑动窗口限流：全局、IP、平台、用户。
// 平台配置里带了 rate_limit 时覆盖全局的平台档位。
// Redis 不可用时整体降级放行，投注下单的幂等仍在服务层兜底
func RateLimitFilter(ctx *beegocontext.Context) {
	cfg := config.Get()
	if cfg == nil || !cfg.RateLimit.Enabled {
		return
	}

	traceID := helper.GetTraceID(ctx)
	rdb := infrds.Client()
	if rdb == nil {
		logger.Warn("redis not available, skip rate limit", zap.String("trace_id", traceID))
		return
	}

	rl := cfg.RateLimit
	var checks []limitCheck

	if rl.Global.RequestsPerSecond > 0 {
		checks = append(checks, limitCheck{"global", "all", rl.Global.RequestsPerSecond, 1})
	}
	if rl.ByIP.RequestsPerSecond > 0 {
		checks = append(checks, limitCheck{"ip", chelper.ClientIP(ctx.Request), rl.ByIP.RequestsPerSecond, rl.ByIP.WindowSeconds})
	}
	if rl.ByPlatform.RequestsPerSecond > 0 {
		if platformID, ok := ctx.Input.GetData("platform_id").(int8); ok {
			limit := rl.ByPlatform.RequestsPerSecond
			if p, ok := ctx.Input.GetData("platform").(*auth.Platform); ok && p.RateLimit > 0 {
				limit = p.RateLimit
			}
			checks = append(checks, limitCheck{"platform", fmt.Sprintf("platform_%d", platformID), limit, rl.ByPlatform.WindowSeconds})
		}
	}
	if rl.ByUser.RequestsPerSecond > 0 {
		if userID, ok := ctx.Input.GetData("platform_user_id").(string); ok && userID != "" {
			checks = append(checks, limitCheck{"user", "user_" + userID, rl.ByUser.RequestsPerSecond, rl.ByUser.WindowSeconds})
		}
	}

	reqCtx := ctx.Request.Context()
	for _, c := range checks {
		if checkRateLimit(reqCtx, rdb, c) {
			continue
		}
		logger.Warn("rate limit exceeded",
			zap.String("trace_id", traceID),
			zap.String("dimension", c.dimension),
			zap.String("key", c.key))
		ctx.Output.SetStatus(429)
		ctx.Output.JSON(response.APIResponse{
			Code:      response.CodeRateLimitExceeded,
			Message:   "请求频率超限，请稍后重试",
			Data:      nil,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
		return
	}
}

// checkRateLimit 滑动窗口计数，返回是否放行。
// ZSet 按秒记请求，窗口外的成员先清掉再数
func checkRateLimit(ctx context.Context, rdb *redis.Client, c limitCheck) bool {
	windowSec := c.windowSec
	if windowSec <= 0 {
		windowSec = 1
	}

	redisKey := fmt.Sprintf("ratelimit:%s:%s", c.dimension, c.key)
	now := time.Now().Unix()
	windowStart := now - int64(windowSec)

	pipe := rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCount(ctx, redisKey, strconv.FormatInt(windowStart, 10), "+inf")
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d_%d", now, time.Now().UnixNano()),
	})
	pipe.Expire(ctx, redisKey, time.Duration(windowSec+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("rate limit check failed", zap.Error(err))
		return true
	}
	count, err := countCmd.Result()
	if err != nil {
		logger.Warn("rate limit count failed", zap.Error(err))
		return true
	}
	return count < int64(c.limit)
}
