package api

import (
	"context"
	"time"

	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"

	beego "github.com/beego/beego/v2/server/web"
)

// HealthController 提供健康检查端点：/healthz 与 /readyz

type HealthController struct{ beego.Controller }

// Healthz 存活探针：仅返回进程存活
func (c *HealthController) Healthz() {
	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ok"))
}

// Readyz 就绪探针：探测 MySQL 与 Redis 连通性。
// Redis 不可用只降级不拒绝流量，就绪状态只看数据库
func (c *HealthController) Readyz() {
	ctx, cancel := context.WithTimeout(c.Ctx.Request.Context(), 2*time.Second)
	defer cancel()

	db := infmysql.SQLX()
	if db == nil || db.PingContext(ctx) != nil {
		c.Ctx.Output.SetStatus(503)
		_ = c.Ctx.Output.Body([]byte("db not ready"))
		return
	}

	if err := infrds.Ping(ctx, time.Second); err != nil {
		// 降级可用，幂等快路径失效但核心链路仍可服务
		c.Ctx.Output.SetStatus(200)
		_ = c.Ctx.Output.Body([]byte("ready (redis degraded)"))
		return
	}

	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ready"))
}
