package model

import (
	"context"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// WebhookInbox 对应 webhook_inbox 表（网关回调落库表）
// event_id 唯一索引：同一回调事件重投时天然去重
type WebhookInbox struct {
	ID         int64  `db:"id"`
	EventID    string `db:"event_id"`    // 网关事件ID
	ExternalID string `db:"external_id"` // 网关流水号
	EventType  string `db:"event_type"`  // paid / rejected / reversed
	Payload    string `db:"payload"`     // 原始回调报文(JSON字符串)
	SourceIP   string `db:"source_ip"`
	CreatedAt  int64  `db:"created_at"`
}

// InsertWebhookInbox 回调落库；event_id 撞唯一索引返回 duplicate=true，
// 调用方据此跳过重复事件
func InsertWebhookInbox(ctx context.Context, exec sqlx.ExtContext, w *WebhookInbox) (duplicate bool, err error) {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO webhook_inbox (event_id, external_id, event_type, payload, source_ip, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	args := []interface{}{w.EventID, w.ExternalID, w.EventType, w.Payload, w.SourceIP, now}

	if _, err = exec.ExecContext(ctx, sqlStr, args...); err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
