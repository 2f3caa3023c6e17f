package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/ThalesMilho/projeto-web/common/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Account 对应 accounts 表
// 余额一律用分（int64）存储，balance_cents 带 UNSIGNED 约束，任何负余额都进不了库。
// upline_id 自引用一级上线；commission_pct 十进制字符串（DECIMAL(5,2)），
// commission_trigger: 1=下注触发 2=充值触发。
// status: 1=正常 2=禁用
type Account struct {
	ID                int64         `db:"account_id"`  // 账户ID(主键)
	Username          string        `db:"username"`    // 用户名
	Document          string        `db:"document"`    // CPF（仅数字）
	PixKey            string        `db:"pix_key"`     // 提现PIX密钥
	BalanceCents      int64         `db:"balance_cents"`
	UplineID          sql.NullInt64 `db:"upline_id"`          // 一级上线，可空
	CommissionPct     string        `db:"commission_pct"`     // 佣金比例，如 "10.00"
	CommissionTrigger int8          `db:"commission_trigger"` // 1=按下注额 2=按净输
	Status            int8          `db:"status"`
	CreatedAt         int64         `db:"created_at"` // 13位毫秒时间戳
	UpdatedAt         int64         `db:"updated_at"`
}

const accountFields = `account_id, username, document, pix_key, balance_cents,
	upline_id, commission_pct, commission_trigger, status, created_at, updated_at`

// GetAccountByID 按ID查询账户（不加锁）
func GetAccountByID(ctx context.Context, db *sqlx.DB, accountID int64) (*Account, error) {
	query := `SELECT ` + accountFields + ` FROM accounts WHERE account_id = ? LIMIT 1`

	var acc Account
	err := db.GetContext(ctx, &acc, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("get account by id failed",
			zap.Int64("account_id", accountID),
			zap.Error(err))
		return nil, err
	}

	return &acc, nil
}

// GetAccountForUpdate 按ID加锁查询（FOR UPDATE），必须在事务中调用。
// 钱包的每次余额变更都从这里拿锁
func GetAccountForUpdate(ctx context.Context, exec sqlx.ExtContext, accountID int64) (*Account, error) {
	query := `SELECT ` + accountFields + ` FROM accounts WHERE account_id = ? FOR UPDATE`

	var acc Account
	err := sqlx.GetContext(ctx, exec, &acc, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("get account for update failed",
			zap.Int64("account_id", accountID),
			zap.Error(err))
		return nil, err
	}

	return &acc, nil
}

// Insert 插入账户
func (a *Account) Insert(ctx context.Context, db *sqlx.DB) error {
	now := getCurrentMillis()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `INSERT INTO accounts (username, document, pix_key, balance_cents,
	          upline_id, commission_pct, commission_trigger, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := db.ExecContext(ctx, query,
		a.Username, a.Document, a.PixKey, a.BalanceCents,
		a.UplineID, a.CommissionPct, a.CommissionTrigger, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		logger.Error("insert account failed",
			zap.String("username", a.Username),
			zap.Error(err))
		return err
	}

	id, _ := result.LastInsertId()
	a.ID = id

	logger.Info("account created",
		zap.Int64("account_id", a.ID),
		zap.String("username", a.Username))

	return nil
}

// UpdateAccountBalance 更新账户余额（分）
// 只允许钱包服务在持锁事务内调用
func UpdateAccountBalance(ctx context.Context, exec sqlx.ExtContext, accountID int64, newBalanceCents int64) error {
	now := getCurrentMillis()
	query := `UPDATE accounts SET balance_cents = ?, updated_at = ? WHERE account_id = ?`

	_, err := exec.ExecContext(ctx, query, newBalanceCents, now, accountID)
	if err != nil {
		logger.Error("update account balance failed",
			zap.Int64("account_id", accountID),
			zap.Int64("new_balance_cents", newBalanceCents),
			zap.Error(err))
		return err
	}

	return nil
}

// GetAccountBalance 非锁查询余额（分）
func GetAccountBalance(ctx context.Context, db *sqlx.DB, accountID int64) (int64, error) {
	query := `SELECT balance_cents FROM accounts WHERE account_id = ? LIMIT 1`

	var balance int64
	err := db.GetContext(ctx, &balance, query, accountID)
	if err != nil {
		logger.Error("get account balance failed",
			zap.Int64("account_id", accountID),
			zap.Error(err))
		return 0, err
	}

	return balance, nil
}

// getCurrentMillis 获取当前13位毫秒时间戳
func getCurrentMillis() int64 {
	return time.Now().UnixMilli()
}
