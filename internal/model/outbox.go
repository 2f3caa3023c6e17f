package model

import (
	"context"
	"encoding/json"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/ThalesMilho/projeto-web/common"
)

// 事务消息表：bet_placed / draw_settled / payment_* 事件先随业务事务落库，
// 调度器再异步投递到 MQ，业务提交即事件不丢。
// status: 1=待发送 2=已发送 3=永久失败
const outboxMaxRetries = 10

type Outbox struct {
	ID         int64  `db:"id"`
	Topic      string `db:"topic"`
	BizKey     string `db:"biz_key"` // 业务键：注单号/期号/支付单号，消费侧去重用
	Payload    string `db:"payload"` // JSON 消息体
	Status     int8   `db:"status"`
	RetryCount int    `db:"retry_count"`
	LastError  string `db:"last_error"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// Insert 在业务事务内落一条待发送事件
func (o *Outbox) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := "INSERT INTO outbox (topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := exec.ExecContext(ctx, sqlStr, o.Topic, o.BizKey, o.Payload, 1, 0, "", now, now)
	return err
}

// CreateOutbox 序列化 payload 并落库，调用方保证在业务事务内
func CreateOutbox(ctx context.Context, exec sqlx.ExtContext, topic, bizKey string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	o := &Outbox{Topic: topic, BizKey: bizKey, Payload: string(b)}
	return o.Insert(ctx, exec)
}

// OutboxRow 调度器扫描用的轻量投影
type OutboxRow struct {
	ID      int64  `db:"id"`
	Topic   string `db:"topic"`
	BizKey  string `db:"biz_key"`
	Payload string `db:"payload"`
}

// ListOutboxPending 按插入顺序取一批待发送事件，重试耗尽的不再捞
func ListOutboxPending(ctx context.Context, db *sqlx.DB, limit int) ([]OutboxRow, error) {
	var list []OutboxRow
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  "outbox",
		Fields: []interface{}{"id", "topic", "biz_key", "payload"},
		Ex: []exp.Expression{
			g.C("status").Eq(1),
			g.C("retry_count").Lt(outboxMaxRetries),
		},
		Order: []exp.OrderedExpression{g.C("id").Asc()},
		Limit: uint(limit),
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// MarkOutboxSent 投递成功
func MarkOutboxSent(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()
	_, err := exec.ExecContext(ctx,
		"UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?", 2, now, id)
	return err
}

// MarkOutboxFailed 投递失败计数；重试次数耗尽转永久失败，留给人工处理
func MarkOutboxFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE outbox SET status = CASE WHEN retry_count >= ? THEN 3 ELSE 1 END, last_error = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, outboxMaxRetries-1, lastError, now, id)
	return err
}
