package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis 在这里只做幂等快路径、投注锁和开奖结果缓存，
// 属可降级依赖：未配置或挂掉时核心下注/结算链路照跑
var rdb *goredis.Client

// Init 初始化客户端；addr 为空视为不启用
func Init(addr, password string, db int) {
	if addr == "" {
		return
	}
	rdb = goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

// Client 未启用时返回 nil，调用方必须判空
func Client() *goredis.Client { return rdb }

// Ping 带超时探活，未启用视为健康
func Ping(ctx context.Context, timeout time.Duration) error {
	if rdb == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(c).Err()
}
