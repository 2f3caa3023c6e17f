package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/common/logger"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	"github.com/ThalesMilho/projeto-web/internal/model"
	"github.com/ThalesMilho/projeto-web/internal/service"
)

// 对账周期与"停留多久算可疑"的阈值
const (
	reconcileInterval  = 1 * time.Minute
	reconcileStaleness = 5 * time.Minute
	reconcileBatch     = 50
)

// StartPaymentReconciler 启动支付对账器：
// 周期扫描长时间停留在网关受理中的单据，主动查网关权威状态并推进。
// 网关超时不是终态，这里是 pending 单据的唯一出口。
func StartPaymentReconciler(ctx context.Context, wg *sync.WaitGroup, ps service.PaymentService) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		// 多实例错峰轮询
		ticker := time.NewTicker(chelper.JitterDuration(reconcileInterval, 10*time.Second))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c, cancel := context.WithTimeout(ctx, 30*time.Second)
				stale, err := model.ListStalePending(c, infmysql.SQLX(), reconcileStaleness, reconcileBatch)
				if err != nil {
					cancel()
					logger.Warn("reconciler: list stale pending failed", zap.Error(err))
					continue
				}
				for _, pr := range stale {
					if err := ps.ReconcilePayment(c, pr.ExternalID, pr.TraceID); err != nil {
						logger.Warn("reconciler: reconcile payment failed",
							zap.String("external_id", pr.ExternalID), zap.Error(err))
					}
				}
				cancel()
			}
		}
	}()
}
