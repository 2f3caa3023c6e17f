package model

import (
	"context"
	"database/sql"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ThalesMilho/projeto-web/common/logger"
)

// PaymentRequest 对应 payment_requests 表
// kind: 1=充值(PIX deposit) 2=提现(PIX payout)
// status: 1=已创建 2=网关受理中 3=已支付 4=已拒绝 5=已冲正 6=已取消
// external_id 为网关侧唯一标识，带唯一索引，回调去重靠它
type PaymentRequest struct {
	ID          int64          `db:"id"`
	ExternalID  string         `db:"external_id"`
	AccountID   int64          `db:"account_id"`
	Kind        int8           `db:"kind"`
	Status      int8           `db:"status"`
	AmountCents int64          `db:"amount_cents"`
	Currency    string         `db:"currency"`
	PixKey      string         `db:"pix_key"`  // 提现目标 PIX key，充值为空
	LedgerID    sql.NullInt64  `db:"ledger_id"` // 入账后的流水ID
	Reason      sql.NullString `db:"reason"`    // 拒绝/冲正原因
	TraceID     string         `db:"trace_id"`
	CreatedAt   int64          `db:"created_at"`
	UpdatedAt   int64          `db:"updated_at"`
}

// Insert 创建支付请求；external_id 撞唯一索引返回 duplicate=true
func (p *PaymentRequest) Insert(ctx context.Context, exec sqlx.ExtContext) (duplicate bool, err error) {
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO payment_requests (external_id, account_id, kind, status, amount_cents, currency,
		pix_key, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, sqlStr, p.ExternalID, p.AccountID, p.Kind, p.Status, p.AmountCents, p.Currency,
		p.PixKey, p.TraceID, now, now)
	if err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			return true, nil
		}
		logger.ErrorCtx(ctx, "insert payment request failed",
			zap.String("external_id", p.ExternalID),
			zap.Error(err))
		return false, err
	}
	p.ID, _ = res.LastInsertId()
	return false, nil
}

// GetPaymentByExternalIDForUpdate 按网关流水号行锁读取，回调处理必须走这里
func GetPaymentByExternalIDForUpdate(ctx context.Context, tx *sqlx.Tx, externalID string) (*PaymentRequest, error) {
	sqlStr := `SELECT id, external_id, account_id, kind, status, amount_cents, currency, pix_key,
		ledger_id, reason, trace_id, created_at, updated_at
		FROM payment_requests WHERE external_id = ? FOR UPDATE`

	var p PaymentRequest
	if err := tx.GetContext(ctx, &p, sqlStr, externalID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetPaymentByIDForUpdate 按主键行锁读取（提现审批路径）
func GetPaymentByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*PaymentRequest, error) {
	sqlStr := `SELECT id, external_id, account_id, kind, status, amount_cents, currency, pix_key,
		ledger_id, reason, trace_id, created_at, updated_at
		FROM payment_requests WHERE id = ? FOR UPDATE`

	var p PaymentRequest
	if err := tx.GetContext(ctx, &p, sqlStr, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpdatePaymentStatus 状态推进，带前置状态守卫；affected=0 说明状态已被并发推进
func UpdatePaymentStatus(ctx context.Context, exec sqlx.ExtContext, id int64, fromStatus, toStatus int8, reason string) (bool, error) {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE payment_requests SET status = ?, reason = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := exec.ExecContext(ctx, sqlStr, toStatus, sql.NullString{String: reason, Valid: reason != ""}, now, id, fromStatus)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// BindPaymentLedger 入账完成后回写流水ID
func BindPaymentLedger(ctx context.Context, exec sqlx.ExtContext, id, ledgerID int64) error {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE payment_requests SET ledger_id = ?, updated_at = ? WHERE id = ?`
	_, err := exec.ExecContext(ctx, sqlStr, ledgerID, now, id)
	return err
}

// ListStalePending 对账扫描：长时间停留在网关受理中的单子
func ListStalePending(ctx context.Context, db *sqlx.DB, olderThan time.Duration, limit int) ([]PaymentRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	sqlStr := `SELECT id, external_id, account_id, kind, status, amount_cents, currency, pix_key,
		ledger_id, reason, trace_id, created_at, updated_at
		FROM payment_requests WHERE status = 2 AND updated_at < ?
		ORDER BY updated_at ASC LIMIT ?`

	var list []PaymentRequest
	if err := db.SelectContext(ctx, &list, sqlStr, cutoff, limit); err != nil {
		return nil, err
	}
	return list, nil
}
