package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/ThalesMilho/projeto-web/common/constant"
)

var accountColumns = []string{
	"account_id", "username", "document", "pix_key", "balance_cents",
	"upline_id", "commission_pct", "commission_trigger", "status", "created_at", "updated_at",
}

func newWalletMockTx(t *testing.T) (*sqlx.Tx, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	sdb := sqlx.NewDb(db, "mysql")

	mock.ExpectBegin()
	tx, err := sdb.BeginTxx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	return tx, mock, func() { _ = db.Close() }
}

func accountRow(accountID, balanceCents int64, status int8) *sqlmock.Rows {
	return sqlmock.NewRows(accountColumns).
		AddRow(accountID, "jose", "12345678909", "jose@pix.br", balanceCents,
			nil, "0.00", 1, status, int64(1756300000000), int64(1756300000000))
}

func TestDebitTxSuccess(t *testing.T) {
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")).
		WithArgs(int64(1001)).
		WillReturnRows(accountRow(1001, 10000, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET balance_cents = ?, updated_at = ? WHERE account_id = ?")).
		WithArgs(int64(7500), sqlmock.AnyArg(), int64(1001)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WithArgs(int64(1001), constant.LedgerTypeBet, "aposta", int64(-2500), int64(10000), int64(7500),
			"BRL", "JB123", "2026-08-28-1420", "aposta grupo", "trace-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectRollback()

	entry, err := DebitTx(context.Background(), tx, LedgerMove{
		AccountID:   1001,
		AmountCents: 2500,
		EntryType:   constant.LedgerTypeBet,
		RelatedRef:  "JB123",
		DrawID:      "2026-08-28-1420",
		Remark:      "aposta grupo",
		TraceID:     "trace-1",
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if entry.AmountCents != -2500 {
		t.Errorf("amount_cents = %d, want -2500", entry.AmountCents)
	}
	if entry.BeforeCents != 10000 || entry.AfterCents != 7500 {
		t.Errorf("before/after = %d/%d, want 10000/7500", entry.BeforeCents, entry.AfterCents)
	}
	if entry.ID != 77 {
		t.Errorf("entry id = %d, want 77", entry.ID)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDebitTxInsufficientFunds(t *testing.T) {
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")).
		WithArgs(int64(1001)).
		WillReturnRows(accountRow(1001, 100, 1))
	mock.ExpectRollback()

	_, err := DebitTx(context.Background(), tx, LedgerMove{
		AccountID:   1001,
		AmountCents: 2500,
		EntryType:   constant.LedgerTypeBet,
		RelatedRef:  "JB124",
		TraceID:     "trace-2",
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	// 余额不足时不能发出任何 UPDATE / INSERT
	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDebitTxAccountNotFound(t *testing.T) {
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")).
		WithArgs(int64(9999)).
		WillReturnRows(sqlmock.NewRows(accountColumns))
	mock.ExpectRollback()

	_, err := DebitTx(context.Background(), tx, LedgerMove{
		AccountID:   9999,
		AmountCents: 100,
		EntryType:   constant.LedgerTypeBet,
		RelatedRef:  "JB125",
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDebitTxRejectsNonPositiveAmount(t *testing.T) {
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()
	mock.ExpectRollback()

	for _, amount := range []int64{0, -100} {
		_, err := DebitTx(context.Background(), tx, LedgerMove{
			AccountID:   1001,
			AmountCents: amount,
			EntryType:   constant.LedgerTypeBet,
		})
		if !errors.Is(err, ErrInvalidMoveAmount) {
			t.Errorf("amount %d: err = %v, want ErrInvalidMoveAmount", amount, err)
		}
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreditTxSuccess(t *testing.T) {
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")).
		WithArgs(int64(2002)).
		WillReturnRows(accountRow(2002, 500, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET balance_cents = ?, updated_at = ? WHERE account_id = ?")).
		WithArgs(int64(180500), sqlmock.AnyArg(), int64(2002)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WithArgs(int64(2002), constant.LedgerTypePayout, "premio", int64(180000), int64(500), int64(180500),
			"BRL", "SETTLE-X", "2026-08-28-1420", "premio milhar", "trace-3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(78, 1))
	mock.ExpectRollback()

	entry, err := CreditTx(context.Background(), tx, LedgerMove{
		AccountID:   2002,
		AmountCents: 180000,
		EntryType:   constant.LedgerTypePayout,
		RelatedRef:  "SETTLE-X",
		DrawID:      "2026-08-28-1420",
		Remark:      "premio milhar",
		TraceID:     "trace-3",
	}, false)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if entry.AmountCents != 180000 {
		t.Errorf("amount_cents = %d, want 180000", entry.AmountCents)
	}
	if entry.AfterCents != 180500 {
		t.Errorf("after_cents = %d, want 180500", entry.AfterCents)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreditTxDisabledAccount(t *testing.T) {
	// allowDisabled=false 拦截；true 放行（派彩/冲正场景）
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(3003)).
		WillReturnRows(accountRow(3003, 0, 2))

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(3003)).
		WillReturnRows(accountRow(3003, 0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET balance_cents = ?")).
		WithArgs(int64(1000), sqlmock.AnyArg(), int64(3003)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WillReturnResult(sqlmock.NewResult(79, 1))
	mock.ExpectRollback()

	mv := LedgerMove{
		AccountID:   3003,
		AmountCents: 1000,
		EntryType:   constant.LedgerTypeReversal,
		RelatedRef:  "WD-1",
	}

	if _, err := CreditTx(context.Background(), tx, mv, false); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("err = %v, want ErrAccountDisabled", err)
	}
	if _, err := CreditTx(context.Background(), tx, mv, true); err != nil {
		t.Fatalf("credit allowDisabled: %v", err)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
