package config

import "sync/atomic"

// 当前生效配置。热更时整体替换指针，读侧无锁，
// 请求内多次 Get 可能跨到新配置，资金路径的关键参数要一次取出复用
var current atomic.Pointer[Config]

// Set 整体替换生效配置
func Set(cfg *Config) {
	current.Store(cfg)
}

// Get 取当前配置，未初始化时返回 nil
func Get() *Config {
	return current.Load()
}
