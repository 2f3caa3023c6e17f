package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// MqInbox 对应 mq_inbox 表（MQ 消费幂等落库表）
// message_id+topic 唯一，天然去重
type MqInbox struct {
	ID        int64  `db:"id"`
	MessageID string `db:"message_id"`
	Topic     string `db:"topic"`
	Payload   string `db:"payload"`
	CreatedAt int64  `db:"created_at"`
}

// UpsertMqInbox 将消息按 message_id+topic 去重入库（存在则不变更 processed_at）
func UpsertMqInbox(ctx context.Context, exec sqlx.ExtContext, messageID, topic, payload string, processedAtMs int64) error {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO mq_inbox (message_id, topic, payload, processed_at, created_at) VALUES (?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE processed_at=processed_at"
	args := []interface{}{messageID, topic, payload, processedAtMs, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}
