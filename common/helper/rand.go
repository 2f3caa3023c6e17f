package helper

import (
	"time"

	"golang.org/x/exp/rand"
)

func init() {
	rand.Seed(uint64(time.Now().UnixNano()))
}

// JitterDuration 在 base 基础上叠加 [0, spread) 的随机抖动。
// 多实例部署时错开轮询节拍，避免同时打到网关/数据库
func JitterDuration(base, spread time.Duration) time.Duration {
	if spread <= 0 {
		return base
	}
	return base + time.Duration(rand.Int63n(int64(spread)))
}
