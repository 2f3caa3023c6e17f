package model

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Bet 对应 bets 表
// 说明：金额一律为分；下注/结算状态采用数值枚举（从1开始）
// bet_status: 1=创建 2=成功 3=失败
// settle_status: 1=待结算 2=已结算 3=已撤单
// won: 0=未开奖 1=中奖 2=未中奖
// picks 存 JSON 数组字符串，创建后不可变；结算只写 won/payout/settle_status
type Bet struct {
	TicketNo       string `db:"ticket_no"`     // 注单号(主键)
	DrawID         string `db:"draw_id"`       // 期号
	AccountID      int64  `db:"account_id"`    // 账户ID
	Username       string `db:"username"`      // 用户名快照
	ModalityCode   string `db:"modality_code"` // 玩法编码（稳定枚举，绝不存展示名）
	Placement      int8   `db:"placement"`     // 1=cabeça 2=1 ao 5
	Picks          string `db:"picks"`         // JSON数组，如 ["1234"]
	AmountCents    int64  `db:"amount_cents"`  // 下注金额(分)
	Multiplier     string `db:"multiplier"`    // 下注时赔率快照（十进制字符串）
	BetStatus      int8   `db:"bet_status"`
	BetTime        int64  `db:"bet_time"`
	SettleStatus   int8   `db:"settle_status"`
	Won            int8   `db:"won"`
	PayoutCents    int64  `db:"payout_cents"`
	Currency       string `db:"currency"`
	IdempotencyKey string `db:"idempotency_key"`
	TraceID        string `db:"trace_id"`
	CreatedAt      int64  `db:"created_at"`
	UpdatedAt      int64  `db:"updated_at"`
}

// Insert 插入一条注单
func (b *Bet) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	bt := b.BetTime
	if bt == 0 {
		bt = now
	}

	sqlStr := `INSERT INTO bets (ticket_no, draw_id, account_id, username, modality_code, placement, picks,
		amount_cents, multiplier, bet_status, bet_time, settle_status, won, payout_cents, currency,
		idempotency_key, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, b.TicketNo, b.DrawID, b.AccountID, b.Username, b.ModalityCode, b.Placement, b.Picks,
		b.AmountCents, b.Multiplier, b.BetStatus, bt, b.SettleStatus, b.Won, b.PayoutCents, b.Currency,
		b.IdempotencyKey, b.TraceID, now, now)
	return err
}

// SettleRow 结算扫描用的轻量投影
type SettleRow struct {
	TicketNo     string `db:"ticket_no"`
	AccountID    int64  `db:"account_id"`
	ModalityCode string `db:"modality_code"`
	Placement    int8   `db:"placement"`
	Picks        string `db:"picks"`
	AmountCents  int64  `db:"amount_cents"`
	Currency     string `db:"currency"`
}

// ListPendingByDrawBatch 按期号分批加载待结算注单（FOR UPDATE），需要在事务中调用。
// afterTicket 为上一批最后一个注单号，按主键递增翻页，批大小由调用方限定
func ListPendingByDrawBatch(ctx context.Context, exec sqlx.ExtContext, drawID, afterTicket string, limit int) ([]SettleRow, error) {
	sqlStr := `SELECT ticket_no, account_id, modality_code, placement, picks, amount_cents, currency
		FROM bets
		WHERE draw_id = ? AND settle_status = 1 AND bet_status = 2 AND ticket_no > ?
		ORDER BY ticket_no ASC
		LIMIT ? FOR UPDATE`

	var rows []SettleRow
	if err := sqlx.SelectContext(ctx, exec, &rows, sqlStr, drawID, afterTicket, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// BetOutcome 单个注单的结算结果
type BetOutcome struct {
	TicketNo    string
	Won         bool
	PayoutCents int64
}

// UpdateOutcomesBulk 按批落注单结果：一条 CASE WHEN 更新整批，
// 避免逐单 UPDATE 把结算事务拖长
func UpdateOutcomesBulk(ctx context.Context, exec sqlx.ExtContext, outcomes []BetOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()

	var wonCase, payoutCase strings.Builder
	args := make([]interface{}, 0, len(outcomes)*4+1)
	tickets := make([]interface{}, 0, len(outcomes))

	wonCase.WriteString("CASE ticket_no")
	payoutCase.WriteString("CASE ticket_no")
	for _, o := range outcomes {
		won := int8(2)
		if o.Won {
			won = 1
		}
		wonCase.WriteString(" WHEN ? THEN ?")
		args = append(args, o.TicketNo, won)
		tickets = append(tickets, o.TicketNo)
	}
	wonCase.WriteString(" END")
	for _, o := range outcomes {
		payoutCase.WriteString(" WHEN ? THEN ?")
		args = append(args, o.TicketNo, o.PayoutCents)
	}
	payoutCase.WriteString(" END")

	sqlStr := "UPDATE bets SET won = " + wonCase.String() +
		", payout_cents = " + payoutCase.String() +
		", settle_status = 2, updated_at = ? WHERE ticket_no IN (?" + strings.Repeat(",?", len(tickets)-1) + ")"
	args = append(args, now)
	args = append(args, tickets...)

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// CountUnsettledByDraw 校验用：已结算期号不允许残留待结算注单
func CountUnsettledByDraw(ctx context.Context, db *sqlx.DB, drawID string) (int, error) {
	sqlStr := `SELECT COUNT(1) FROM bets WHERE draw_id = ? AND settle_status = 1 AND bet_status = 2`
	var cnt int
	if err := db.GetContext(ctx, &cnt, sqlStr, drawID); err != nil {
		return 0, err
	}
	return cnt, nil
}

// BetRecord 投注记录（用于查询接口）
type BetRecord struct {
	TicketNo     string `db:"ticket_no" json:"ticket_no"`
	DrawID       string `db:"draw_id" json:"draw_id"`
	ModalityCode string `db:"modality_code" json:"modality_code"`
	Placement    int8   `db:"placement" json:"placement"`
	Picks        string `db:"picks" json:"picks"`
	AmountCents  int64  `db:"amount_cents" json:"amount_cents"`
	BetStatus    int8   `db:"bet_status" json:"bet_status"`
	SettleStatus int8   `db:"settle_status" json:"settle_status"`
	Won          int8   `db:"won" json:"won"`
	PayoutCents  int64  `db:"payout_cents" json:"payout_cents"`
	BetTime      int64  `db:"bet_time" json:"bet_time"`
	CreatedAt    int64  `db:"created_at" json:"created_at"`
	UpdatedAt    int64  `db:"updated_at" json:"updated_at"`
}

// ListAccountBets 查询账户的投注记录
// drawID 可选，为空则查询全部期号
func ListAccountBets(ctx context.Context, db *sqlx.DB, accountID int64, drawID string, limit int) ([]BetRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // 最多返回 100 条
	}

	var sqlStr string
	var args []interface{}

	if drawID != "" {
		sqlStr = `SELECT ticket_no, draw_id, modality_code, placement, picks, amount_cents, bet_status,
			settle_status, won, payout_cents, bet_time, created_at, updated_at
			FROM bets
			WHERE account_id = ? AND draw_id = ?
			ORDER BY bet_time DESC
			LIMIT ?`
		args = []interface{}{accountID, drawID, limit}
	} else {
		sqlStr = `SELECT ticket_no, draw_id, modality_code, placement, picks, amount_cents, bet_status,
			settle_status, won, payout_cents, bet_time, created_at, updated_at
			FROM bets
			WHERE account_id = ?
			ORDER BY bet_time DESC
			LIMIT ?`
		args = []interface{}{accountID, limit}
	}

	var records []BetRecord
	if err := db.SelectContext(ctx, &records, sqlStr, args...); err != nil {
		return nil, err
	}

	return records, nil
}
