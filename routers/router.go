package routers

import (
	"github.com/ThalesMilho/projeto-web/internal/config"
	"github.com/ThalesMilho/projeto-web/internal/controller/api"
	"github.com/ThalesMilho/projeto-web/internal/metrics"
	"github.com/ThalesMilho/projeto-web/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register 注册HTTP路由与全局过滤器，须在配置加载完成后调用
func Register() {
	cfg := config.Get()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// Prometheus 指标
	if cfg != nil && cfg.Observability.EnableProm {
		beego.Handler("/metrics", promhttp.Handler())
	}

	// ========== 业务 API（需要认证） ==========

	// 投注接口：平台认证 + 限流
	if cfg != nil && cfg.Auth.DemoMode {
		// 演示模式：简化认证
		beego.InsertFilter("/api/bet", beego.BeforeExec, middleware.DemoAuthFilter)
	} else {
		// 生产模式：平台签名认证
		beego.InsertFilter("/api/bet", beego.BeforeExec, middleware.PlatformAuthFilter)
	}
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/bet", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/bet", &api.BetController{}, "post:Bet")

	// 会话令牌：渠道方平台签名换玩家 JWT，刷新/注销走令牌本身
	if cfg != nil && cfg.Auth.DemoMode {
		beego.InsertFilter("/api/session/token", beego.BeforeExec, middleware.DemoAuthFilter)
	} else {
		beego.InsertFilter("/api/session/token", beego.BeforeExec, middleware.PlatformAuthFilter)
	}
	beego.Router("/api/session/token", &api.SessionController{}, "post:Token")
	beego.Router("/api/session/refresh", &api.SessionController{}, "post:Refresh")
	beego.Router("/api/session/logout", &api.SessionController{}, "post:Logout")

	// 钱包查询接口：用户认证（用户只能查询自己的数据）
	if cfg != nil && cfg.Auth.DemoMode {
		beego.InsertFilter("/api/wallet/*", beego.BeforeExec, middleware.DemoAuthFilter)
	} else {
		beego.InsertFilter("/api/wallet/*", beego.BeforeExec, middleware.UserAuthFilter)
	}
	beego.Router("/api/wallet/balance", &api.WalletController{}, "get:Balance")
	beego.Router("/api/wallet/ledger", &api.WalletController{}, "get:Ledger")
	beego.Router("/api/wallet/bets", &api.WalletController{}, "get:Bets")
	beego.Router("/api/wallet/reconcile", &api.WalletController{}, "get:Reconcile")

	// 充值/提现：用户认证 + 限流
	if cfg != nil && cfg.Auth.DemoMode {
		beego.InsertFilter("/api/payment/*", beego.BeforeExec, middleware.DemoAuthFilter)
	} else {
		beego.InsertFilter("/api/payment/*", beego.BeforeExec, middleware.UserAuthFilter)
	}
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/payment/*", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/payment/deposit", &api.PaymentController{}, "post:Deposit")
	beego.Router("/api/payment/withdraw", &api.PaymentController{}, "post:Withdraw")

	// 网关回调：不走用户认证，由 IP 白名单 + HMAC 签名校验保护
	beego.Router("/api/webhook/payment", &api.PaymentController{}, "post:Webhook")

	// 期号查询接口（只读，无需认证）
	beego.Router("/api/draw/:draw_id", &api.DrawController{}, "get:GetDraw")
	beego.Router("/api/draws/open", &api.DrawController{}, "get:ListOpen")

	// ========== 管理 API（需要管理员认证） ==========

	if cfg != nil && cfg.Auth.Admin.Enabled {
		beego.InsertFilter("/api/draw/results", beego.BeforeExec, middleware.AdminAuthFilter)
		beego.InsertFilter("/api/draw/settle", beego.BeforeExec, middleware.AdminAuthFilter)
		beego.InsertFilter("/api/admin/*", beego.BeforeExec, middleware.AdminAuthFilter)
	}

	// 开奖录入与结算驱动
	beego.Router("/api/draw/results", &api.DrawController{}, "post:EnterResults")
	beego.Router("/api/draw/settle", &api.DrawController{}, "post:Settle")

	// 运营管理
	beego.Router("/api/admin/draw", &api.AdminController{}, "post:CreateDraw")
	beego.Router("/api/admin/withdraw/approve", &api.AdminController{}, "post:ApproveWithdraw")
	beego.Router("/api/admin/withdraw/cancel", &api.AdminController{}, "post:CancelWithdraw")
	beego.Router("/api/admin/payment/reconcile", &api.AdminController{}, "post:ReconcilePayment")
	beego.Router("/api/admin/gateway/balance", &api.AdminController{}, "get:GatewayBalance")
	beego.Router("/api/admin/config/reload", &api.AdminController{}, "post:ReloadConfig")
}
