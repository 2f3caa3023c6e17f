package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	decimal "github.com/shopspring/decimal"

	"github.com/ThalesMilho/projeto-web/common/constant"
	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/config"
	"github.com/ThalesMilho/projeto-web/internal/model"
)

// 单层级佣金：下线产生动作时，只有直接上线拿佣金，不向上递归。
// 比例与触发事件读上线自己的配置。
// commission_trigger: 1=按下注金额 2=按下线净输

// PayCommissionTx 在下注/结算事务内给上线发佣金
// bettor 为已加锁的下注账户；baseCents 为计佣基数（分）
// 上线不存在、触发事件不匹配、比例为零、算出金额为零时静默跳过，不视为错误
func PayCommissionTx(ctx context.Context, tx *sqlx.Tx, bettor *model.Account, trigger int8, baseCents int64, ref, drawID, traceID string) (int64, error) {
	if !config.Get().Commission.Enabled {
		return 0, nil
	}
	if bettor == nil || !bettor.UplineID.Valid || bettor.UplineID.Int64 == 0 {
		return 0, nil
	}
	if baseCents <= 0 {
		return 0, nil
	}

	uplineID := bettor.UplineID.Int64
	// 锁上线行：顺带拿到它的佣金配置。bettor.ID < uplineID 时天然升序，
	// 反向引用的情况依赖期号锁把并发下注串行在同一期之内
	upline, err := model.GetAccountForUpdate(ctx, tx, uplineID)
	if err != nil {
		return 0, err
	}
	if upline == nil {
		fmt.Printf("[Commission] 上线账户不存在，跳过佣金: upline_id=%d, bettor=%d, trace_id=%s\n",
			uplineID, bettor.ID, traceID)
		return 0, nil
	}
	if upline.CommissionTrigger != trigger {
		return 0, nil
	}

	pct, err := decimal.NewFromString(upline.CommissionPct)
	if err != nil {
		fmt.Printf("[Commission] 佣金比例非法: upline_id=%d, pct=%s, trace_id=%s\n",
			uplineID, upline.CommissionPct, traceID)
		return 0, fmt.Errorf("invalid commission pct %q: %w", upline.CommissionPct, err)
	}
	if pct.LessThanOrEqual(decimal.Zero) {
		return 0, nil
	}

	// 佣金 = floor(基数 × 百分比 / 100)，分单位向下取整
	commCents := chelper.PercentFloor(baseCents, pct)
	if commCents <= 0 {
		return 0, nil
	}

	if _, err := CreditTx(ctx, tx, LedgerMove{
		AccountID:   uplineID,
		AmountCents: commCents,
		EntryType:   constant.LedgerTypeCommission,
		RelatedRef:  ref,
		DrawID:      drawID,
		Remark:      fmt.Sprintf("comissao de %d", bettor.ID),
		TraceID:     traceID,
	}, false); err != nil {
		if err == ErrAccountNotFound || err == ErrAccountDisabled {
			// 上线被禁用：跳过佣金，不影响主流程
			fmt.Printf("[Commission] 上线不可用，跳过佣金: upline_id=%d, bettor=%d, trace_id=%s\n",
				uplineID, bettor.ID, traceID)
			return 0, nil
		}
		return 0, err
	}

	fmt.Printf("[Commission] 佣金入账: upline_id=%d, bettor=%d, base=%d, pct=%s, comm=%d, trace_id=%s\n",
		uplineID, bettor.ID, baseCents, pct.String(), commCents, traceID)
	return commCents, nil
}
