package model

import (
	"context"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/ThalesMilho/projeto-web/common"
	"github.com/ThalesMilho/projeto-web/common/constant"
)

// LedgerEntry 对应 ledger_entries 表（追加式账本，只插入，永不更新/删除）
// amount_cents 带符号：入账为正，出账为负；
// before/after 是变更前后那一刻的余额快照，单条流水独立可对账。
// entry_type 数值码 + 冗余 entry_type_str 便于查询
type LedgerEntry struct {
	ID            int64  `db:"id"`
	AccountID     int64  `db:"account_id"`
	EntryType     int    `db:"entry_type"`
	EntryTypeStr  string `db:"entry_type_str"`
	AmountCents   int64  `db:"amount_cents"`
	BeforeCents   int64  `db:"before_cents"`
	AfterCents    int64  `db:"after_cents"`
	Currency      string `db:"currency"`
	RelatedRef    string `db:"related_ref"` // 注单号 / 支付 external_id / 结算批次
	DrawID        string `db:"draw_id"`
	Remark        string `db:"remark"`
	TraceID       string `db:"trace_id"`
	CreatedAt     int64  `db:"created_at"`
}

// Insert 新增一条账本记录（entry_type 数值码与字符串双写）
func (l *LedgerEntry) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	code := l.EntryType
	str := l.EntryTypeStr
	if str == "" && code != 0 {
		str = constant.GetLedgerTypeDesc(code)
	}
	sqlStr := "INSERT INTO ledger_entries (account_id, entry_type, entry_type_str, amount_cents, before_cents, after_cents, currency, related_ref, draw_id, remark, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{l.AccountID, code, str, l.AmountCents, l.BeforeCents, l.AfterCents, l.Currency, l.RelatedRef, l.DrawID, l.Remark, l.TraceID, now}

	result, err := exec.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	l.ID = id
	l.CreatedAt = now

	return nil
}

// ListLedgerEntries 按账户分页查询流水（只读，走从库）
func ListLedgerEntries(ctx context.Context, db *sqlx.DB, accountID int64, startTs, endTs int64, offset, limit uint) ([]LedgerEntry, error) {
	if limit == 0 || limit > 200 {
		limit = 50
	}

	// 毫秒时间戳，0 表示该端不限
	ex := []exp.Expression{g.C("account_id").Eq(accountID)}
	if startTs > 0 {
		ex = append(ex, g.C("created_at").Gte(startTs))
	}
	if endTs > 0 {
		ex = append(ex, g.C("created_at").Lt(endTs))
	}

	var list []LedgerEntry
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:    db,
		Table: "ledger_entries",
		Fields: []interface{}{"id", "account_id", "entry_type", "entry_type_str", "amount_cents",
			"before_cents", "after_cents", "currency", "related_ref", "draw_id", "remark", "trace_id", "created_at"},
		Ex:     ex,
		Order:  []exp.OrderedExpression{g.C("id").Desc()},
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// SumLedgerByAccount 对账：该账户全部流水带符号求和。
// 不变式：SUM(amount_cents) == 当前 balance_cents
func SumLedgerByAccount(db *sqlx.DB, accountID int64) (int64, error) {
	return common.SumCents(db, "ledger_entries", "amount_cents", g.C("account_id").Eq(accountID))
}

// CountLedgerByRef 按关联单号统计条数，回调重放校验用
func CountLedgerByRef(db *sqlx.DB, relatedRef string, entryType int) (int, error) {
	return common.Count(db, "ledger_entries",
		g.C("related_ref").Eq(relatedRef),
		g.C("entry_type").Eq(entryType))
}
