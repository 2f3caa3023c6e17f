package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// IdempotencyKey 对应 idempotency_keys 表，客户端幂等键的数据库层防线。
// 唯一键 idempotency_key：重复下注在这里撞 1062，调用方回查 ref 拿原注单号
type IdempotencyKey struct {
	ID             int64  `db:"id"`
	IdempotencyKey string `db:"idempotency_key"`
	Purpose        string `db:"purpose"` // bet / deposit / withdraw
	Ref            string `db:"ref"`     // 业务单号：ticket_no 或 external_id
	CreatedAt      int64  `db:"created_at"`
}

// Insert 在业务事务内占用幂等键，重复时返回唯一键冲突
func (k *IdempotencyKey) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := "INSERT INTO idempotency_keys (idempotency_key, purpose, ref, created_at) VALUES (?, ?, ?, ?)"
	_, err := exec.ExecContext(ctx, sqlStr, k.IdempotencyKey, k.Purpose, k.Ref, now)
	return err
}

// SelectRefByIdemKey 撞键后回查原单号，给调用方返回首次受理的结果
func SelectRefByIdemKey(ctx context.Context, db *sqlx.DB, key string) (string, error) {
	var ref string
	err := sqlx.GetContext(ctx, db, &ref,
		"SELECT ref FROM idempotency_keys WHERE idempotency_key = ? LIMIT 1", key)
	if err != nil {
		return "", err
	}
	return ref, nil
}
