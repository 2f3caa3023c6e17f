package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ThalesMilho/projeto-web/common"
	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/config"
	"github.com/ThalesMilho/projeto-web/internal/gateway"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"
	infmq "github.com/ThalesMilho/projeto-web/internal/infra/rocketmq"
	"github.com/ThalesMilho/projeto-web/internal/rules"
	"github.com/ThalesMilho/projeto-web/internal/service"
	"github.com/ThalesMilho/projeto-web/internal/worker"
	"github.com/ThalesMilho/projeto-web/routers"

	beego "github.com/beego/beego/v2/server/web"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. 配置：Nacos 优先，本地文件兜底
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("config load failed", zap.Error(err))
	}
	config.Set(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 2. 玩法表：配置有问题宁可起不来，不能带错误赔率上线
	rs, err := rules.NewRuleset(cfg)
	if err != nil {
		logger.Fatalf("ruleset build failed", zap.Error(err))
	}
	rules.SetActive(rs)
	logger.Info("ruleset loaded", zap.Strings("modalities", rs.Codes()))

	// 3. MySQL
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	infmysql.UseDB(db.DB)
	if cfg.Database.SlaveDSN != "" {
		sdb := common.InitSlaveDB(cfg.Database.SlaveDSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
		infmysql.UseReadDB(sdb.DB)
	}

	// 4. Redis（可选，幂等锁/结果缓存降级可用）
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := infrds.Ping(ctx, 3*time.Second); err != nil {
		logger.Warn("redis unreachable, idempotency fast path degraded", zap.Error(err))
	}

	// 5. 配置热更：整体替换配置与玩法表
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		newRs, err := rules.NewRuleset(newCfg)
		if err != nil {
			logger.Error("ruleset rebuild on config change failed, keep old", zap.Error(err))
			return
		}
		config.Set(newCfg)
		rules.SetActive(newRs)
		logger.Info("config hot-reloaded", zap.Strings("modalities", newRs.Codes()))
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// 6. 后台 worker
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)
	worker.StartInboxConsumer(ctx, &wg)
	worker.StartPaymentReconciler(ctx, &wg, service.NewPaymentService(gateway.NewClient(cfg)))

	// 7. HTTP 路由与服务
	routers.Register()
	beego.BConfig.CopyRequestBody = true
	beego.BConfig.RecoverPanic = false // Recovery 由自定义过滤器处理
	if cfg.Server.Port > 0 {
		beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		logger.Info("shutdown signal received", zap.String("signal", s.String()))
		cancel()
		// beego 自带 graceful，这里只负责通知 worker 退出
	}()

	logger.Info("server starting", zap.String("addr", ":"+strconv.Itoa(beego.BConfig.Listen.HTTPPort)))
	beego.Run()

	cancel()
	wg.Wait()
	config.StopWatch()
	infmq.Shutdown()
	logger.Info("server stopped")
}
