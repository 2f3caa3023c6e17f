package model

import (
	"context"
	"database/sql"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// SettlementLog 对应 settlement_logs 表
// draw_id 唯一索引：一期只允许落一条结算记录，重复结算在这里被数据库挡住
type SettlementLog struct {
	ID               int64  `db:"id"`
	DrawID           string `db:"draw_id"`
	BetsSettled      int    `db:"bets_settled"`
	WinnersCount     int    `db:"winners_count"`
	TotalStakeCents  int64  `db:"total_stake_cents"`
	TotalPayoutCents int64  `db:"total_payout_cents"`
	ElapsedMs        int64  `db:"elapsed_ms"`
	TraceID          string `db:"trace_id"`
	CreatedAt        int64  `db:"created_at"`
}

// Insert 落结算记录；draw_id 撞唯一索引返回 duplicate=true
func (s *SettlementLog) Insert(ctx context.Context, exec sqlx.ExtContext) (duplicate bool, err error) {
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO settlement_logs (draw_id, bets_settled, winners_count, total_stake_cents,
		total_payout_cents, elapsed_ms, trace_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, sqlStr, s.DrawID, s.BetsSettled, s.WinnersCount, s.TotalStakeCents,
		s.TotalPayoutCents, s.ElapsedMs, s.TraceID, now)
	if err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			return true, nil
		}
		return false, err
	}
	s.ID, _ = res.LastInsertId()
	return false, nil
}

// UpdateSettlementStats 结算完成后回写统计
func UpdateSettlementStats(ctx context.Context, exec sqlx.ExtContext, drawID string, betsSettled, winnersCount int, totalStakeCents, totalPayoutCents, elapsedMs int64) error {
	sqlStr := `UPDATE settlement_logs SET bets_settled = ?, winners_count = ?, total_stake_cents = ?,
		total_payout_cents = ?, elapsed_ms = ? WHERE draw_id = ?`
	_, err := exec.ExecContext(ctx, sqlStr, betsSettled, winnersCount, totalStakeCents, totalPayoutCents, elapsedMs, drawID)
	return err
}

// GetSettlementLog 按期号查询结算记录
func GetSettlementLog(ctx context.Context, db *sqlx.DB, drawID string) (*SettlementLog, error) {
	sqlStr := `SELECT id, draw_id, bets_settled, winners_count, total_stake_cents, total_payout_cents,
		elapsed_ms, trace_id, created_at
		FROM settlement_logs WHERE draw_id = ?`

	var s SettlementLog
	if err := db.GetContext(ctx, &s, sqlStr, drawID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
