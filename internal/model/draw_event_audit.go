package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// DrawEventAudit 对应 draw_event_audit 表（期号状态机审计）
// event_type 采用数值枚举（1=draw_created 2=results_entered 3=settle_start 4=settle_done 5=settle_abort）
// prev_state/next_state 使用字符串快照，便于直观查询
type DrawEventAudit struct {
	ID int64 `db:"id"`
	// 期号
	DrawID string `db:"draw_id"`
	// 事件类型（数值：1=draw_created 2=results_entered 3=settle_start 4=settle_done 5=settle_abort）
	EventType int8   `db:"event_type"`
	PrevState string `db:"prev_state"`
	NextState string `db:"next_state"`
	Operator  string `db:"operator"`
	Source    string `db:"source"`
	Payload   string `db:"payload"`
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

// Insert
func (e *DrawEventAudit) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO draw_event_audit (draw_id, event_type, prev_state, next_state, operator, source, payload, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{e.DrawID, e.EventType, e.PrevState, e.NextState, e.Operator, e.Source, e.Payload, e.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}
