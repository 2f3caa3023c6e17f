package model

import (
	"context"
	"database/sql"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrDrawLocked 表示期号行已被其他结算事务持有（FOR UPDATE NOWAIT 快速失败）
var ErrDrawLocked = errors.New("draw is locked by another settlement")

// Draw 对应 draws 表
// status: 1=开放投注 2=结算中 3=已关闭
// 五个奖位按顺序存四位字符串，开奖前为空串
type Draw struct {
	DrawID       string `db:"draw_id"` // 期号(主键)，如 PTM-2026-08-27
	Title        string `db:"title"`   // 展示名，如 "PTM 14:20"
	Status       int8   `db:"status"`
	Prize1       string `db:"prize1"`
	Prize2       string `db:"prize2"`
	Prize3       string `db:"prize3"`
	Prize4       string `db:"prize4"`
	Prize5       string `db:"prize5"`
	IsSettled    int8   `db:"is_settled"` // 0=未结算 1=已结算
	BetOpenTime  int64  `db:"bet_open_time"`
	BetCloseTime int64  `db:"bet_close_time"`
	DrawTime     int64  `db:"draw_time"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

// Prizes 按奖位顺序返回五个开奖号码
func (d *Draw) Prizes() [5]string {
	return [5]string{d.Prize1, d.Prize2, d.Prize3, d.Prize4, d.Prize5}
}

// AcceptsBetAt 判断指定时刻是否在投注窗口内
func (d *Draw) AcceptsBetAt(t time.Time) bool {
	ms := t.UnixMilli()
	if d.Status != 1 {
		return false
	}
	return ms >= d.BetOpenTime && ms < d.BetCloseTime
}

// Insert 创建期号
func (d *Draw) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO draws (draw_id, title, status, prize1, prize2, prize3, prize4, prize5,
		is_settled, bet_open_time, bet_close_time, draw_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, d.DrawID, d.Title, d.Status, d.Prize1, d.Prize2, d.Prize3, d.Prize4, d.Prize5,
		d.IsSettled, d.BetOpenTime, d.BetCloseTime, d.DrawTime, now, now)
	return err
}

// GetDraw 按期号查询
func GetDraw(ctx context.Context, db *sqlx.DB, drawID string) (*Draw, error) {
	sqlStr := `SELECT draw_id, title, status, prize1, prize2, prize3, prize4, prize5, is_settled,
		bet_open_time, bet_close_time, draw_time, created_at, updated_at
		FROM draws WHERE draw_id = ?`

	var d Draw
	if err := db.GetContext(ctx, &d, sqlStr, drawID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// GetDrawForUpdate 行锁读取期号（普通 FOR UPDATE，下注路径用）
// 下注事务先锁期号再锁账户，与结算保持同一加锁顺序
func GetDrawForUpdate(ctx context.Context, tx *sqlx.Tx, drawID string) (*Draw, error) {
	sqlStr := `SELECT draw_id, title, status, prize1, prize2, prize3, prize4, prize5, is_settled,
		bet_open_time, bet_close_time, draw_time, created_at, updated_at
		FROM draws WHERE draw_id = ? FOR UPDATE`

	var d Draw
	if err := tx.GetContext(ctx, &d, sqlStr, drawID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// GetDrawForSettleNowait 结算专用：FOR UPDATE NOWAIT 拿不到锁立即报错，
// 不阻塞等待。MySQL 返回 3572 (ER_LOCK_NOWAIT) 时翻译为 ErrDrawLocked，
// 调用方据此直接放弃本轮结算
func GetDrawForSettleNowait(ctx context.Context, tx *sqlx.Tx, drawID string) (*Draw, error) {
	sqlStr := `SELECT draw_id, title, status, prize1, prize2, prize3, prize4, prize5, is_settled,
		bet_open_time, bet_close_time, draw_time, created_at, updated_at
		FROM draws WHERE draw_id = ? FOR UPDATE NOWAIT`

	var d Draw
	if err := tx.GetContext(ctx, &d, sqlStr, drawID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 3572 {
			// 3572 = ER_LOCK_NOWAIT
			return nil, ErrDrawLocked
		}
		return nil, err
	}
	return &d, nil
}

// SetPrizes 录入开奖号码并把状态推进到结算中
// 仅允许从开放状态录入，防止对已结算期号改号
func SetPrizes(ctx context.Context, exec sqlx.ExtContext, drawID string, prizes [5]string) error {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE draws SET prize1 = ?, prize2 = ?, prize3 = ?, prize4 = ?, prize5 = ?,
		status = 2, updated_at = ?
		WHERE draw_id = ? AND status = 1 AND is_settled = 0`
	res, err := exec.ExecContext(ctx, sqlStr, prizes[0], prizes[1], prizes[2], prizes[3], prizes[4], now, drawID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Errorf("draw %s not open for results", drawID)
	}
	return nil
}

// MarkDrawSettled 结算完成：置已结算并关闭期号
func MarkDrawSettled(ctx context.Context, exec sqlx.ExtContext, drawID string) error {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE draws SET is_settled = 1, status = 3, updated_at = ? WHERE draw_id = ? AND is_settled = 0`
	res, err := exec.ExecContext(ctx, sqlStr, now, drawID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Errorf("draw %s already settled", drawID)
	}
	return nil
}

// ListOpenDraws 查询可投注的期号列表
func ListOpenDraws(ctx context.Context, db *sqlx.DB, limit int) ([]Draw, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	now := time.Now().UnixMilli()
	sqlStr := `SELECT draw_id, title, status, prize1, prize2, prize3, prize4, prize5, is_settled,
		bet_open_time, bet_close_time, draw_time, created_at, updated_at
		FROM draws WHERE status = 1 AND bet_close_time > ?
		ORDER BY draw_time ASC LIMIT ?`

	var list []Draw
	if err := db.SelectContext(ctx, &list, sqlStr, now, limit); err != nil {
		return nil, err
	}
	return list, nil
}
