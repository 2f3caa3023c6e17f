package helper

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// 支付网关超时配置常量
// 规则：连接要快（3s），整体交换给足10s，绝不在持锁状态下发起
const (
	GatewayTimeout = 10 * time.Second // 网关整体交换超时
	FastTimeout    = 3 * time.Second  // 快速接口（余额查询等）超时
)

// 并发统计指标
var (
	activeConnections int64 // 当前活跃连接数
	totalRequests     int64 // 总请求数
)

// 专用于支付网关的客户端 - 高并发优化
var (
	gatewayClient = &fasthttp.Client{
		ReadTimeout:                   GatewayTimeout,
		WriteTimeout:                  GatewayTimeout,
		MaxIdleConnDuration:           60 * time.Second,
		MaxConnsPerHost:               100,
		MaxConnWaitTimeout:            FastTimeout, // 拿不到连接尽快失败
		DisableHeaderNamesNormalizing: true,
	}
)

// HttpDoTimeoutForGateway 支付网关专用HTTP请求，连接复用，拿不到连接快速失败
func HttpDoTimeoutForGateway(requestBody []byte, method string, requestURI string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {
	// 并发统计
	atomic.AddInt64(&activeConnections, 1)
	atomic.AddInt64(&totalRequests, 1)
	defer atomic.AddInt64(&activeConnections, -1)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURI)
	req.Header.SetMethod(method)

	if method == "POST" || method == "PUT" || method == "PATCH" {
		req.SetBody(requestBody)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	// 使用专门的网关客户端
	err := gatewayClient.DoTimeout(req, resp, timeout)

	var respBytes []byte
	statusCode := 0
	if err == nil {
		respBytes = append(respBytes, resp.Body()...)
		statusCode = resp.StatusCode()
	}

	return respBytes, statusCode, errors.WithStack(err)
}

// GetConcurrencyStats 获取并发统计信息
func GetConcurrencyStats() (activeConns int64, totalReqs int64) {
	return atomic.LoadInt64(&activeConnections), atomic.LoadInt64(&totalRequests)
}
