package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ThalesMilho/projeto-web/common/constant"
	"github.com/ThalesMilho/projeto-web/internal/config"
	"github.com/ThalesMilho/projeto-web/internal/model"
)

func enableCommission(t *testing.T, enabled bool) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Commission.Enabled = enabled
	config.Set(cfg)
}

func uplineRow(accountID, balanceCents int64, pct string, trigger, status int8) *sqlmock.Rows {
	return sqlmock.NewRows(accountColumns).
		AddRow(accountID, "maria", "98765432100", "maria@pix.br", balanceCents,
			nil, pct, trigger, status, int64(1756300000000), int64(1756300000000))
}

func bettorWithUpline(bettorID, uplineID int64) *model.Account {
	acc := &model.Account{ID: bettorID, Status: 1}
	acc.UplineID.Int64 = uplineID
	acc.UplineID.Valid = true
	return acc
}

func TestPayCommissionTxSuccess(t *testing.T) {
	enableCommission(t, true)
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	selectUpline := regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")
	// 先锁上线读配置，CreditTx 内部再锁一次同一行
	mock.ExpectQuery(selectUpline).WithArgs(int64(2002)).
		WillReturnRows(uplineRow(2002, 40000, "10.00", 1, 1))
	mock.ExpectQuery(selectUpline).WithArgs(int64(2002)).
		WillReturnRows(uplineRow(2002, 40000, "10.00", 1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET balance_cents = ?, updated_at = ? WHERE account_id = ?")).
		WithArgs(int64(40500), sqlmock.AnyArg(), int64(2002)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WithArgs(int64(2002), constant.LedgerTypeCommission, "comissao", int64(500), int64(40000), int64(40500),
			"BRL", "JB900", "2026-08-28-1420", "comissao de 1001", "trace-c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(88, 1))
	mock.ExpectRollback()

	comm, err := PayCommissionTx(context.Background(), tx, bettorWithUpline(1001, 2002),
		1, 5000, "JB900", "2026-08-28-1420", "trace-c1")
	if err != nil {
		t.Fatalf("pay commission: %v", err)
	}
	if comm != 500 {
		t.Errorf("commission = %d, want 500", comm)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPayCommissionTxTriggerMismatch(t *testing.T) {
	enableCommission(t, true)
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	// 上线配置按净输计佣，下注触发不匹配，读完配置即跳过
	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")).
		WithArgs(int64(2002)).
		WillReturnRows(uplineRow(2002, 40000, "10.00", 2, 1))
	mock.ExpectRollback()

	comm, err := PayCommissionTx(context.Background(), tx, bettorWithUpline(1001, 2002),
		1, 5000, "JB901", "2026-08-28-1420", "trace-c2")
	if err != nil {
		t.Fatalf("pay commission: %v", err)
	}
	if comm != 0 {
		t.Errorf("commission = %d, want 0", comm)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPayCommissionTxUplineMissing(t *testing.T) {
	enableCommission(t, true)
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")).
		WithArgs(int64(9999)).
		WillReturnRows(sqlmock.NewRows(accountColumns))
	mock.ExpectRollback()

	comm, err := PayCommissionTx(context.Background(), tx, bettorWithUpline(1001, 9999),
		1, 5000, "JB902", "2026-08-28-1420", "trace-c3")
	if err != nil {
		t.Fatalf("pay commission: %v", err)
	}
	if comm != 0 {
		t.Errorf("commission = %d, want 0", comm)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPayCommissionTxUplineDisabled(t *testing.T) {
	enableCommission(t, true)
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	selectUpline := regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")
	mock.ExpectQuery(selectUpline).WithArgs(int64(2002)).
		WillReturnRows(uplineRow(2002, 40000, "10.00", 1, 2))
	mock.ExpectQuery(selectUpline).WithArgs(int64(2002)).
		WillReturnRows(uplineRow(2002, 40000, "10.00", 1, 2))
	mock.ExpectRollback()

	// 上线被禁用时跳过佣金，不报错
	comm, err := PayCommissionTx(context.Background(), tx, bettorWithUpline(1001, 2002),
		1, 5000, "JB903", "2026-08-28-1420", "trace-c4")
	if err != nil {
		t.Fatalf("pay commission: %v", err)
	}
	if comm != 0 {
		t.Errorf("commission = %d, want 0", comm)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPayCommissionTxFloorToZeroSkips(t *testing.T) {
	enableCommission(t, true)
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()

	// floor(30 × 2.50%) = 0 分，跳过入账
	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE account_id = ? FOR UPDATE")).
		WithArgs(int64(2002)).
		WillReturnRows(uplineRow(2002, 40000, "2.50", 1, 1))
	mock.ExpectRollback()

	comm, err := PayCommissionTx(context.Background(), tx, bettorWithUpline(1001, 2002),
		1, 30, "JB904", "2026-08-28-1420", "trace-c5")
	if err != nil {
		t.Fatalf("pay commission: %v", err)
	}
	if comm != 0 {
		t.Errorf("commission = %d, want 0", comm)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPayCommissionTxDisabledByConfig(t *testing.T) {
	enableCommission(t, false)
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()
	mock.ExpectRollback()

	comm, err := PayCommissionTx(context.Background(), tx, bettorWithUpline(1001, 2002),
		1, 5000, "JB905", "2026-08-28-1420", "trace-c6")
	if err != nil {
		t.Fatalf("pay commission: %v", err)
	}
	if comm != 0 {
		t.Errorf("commission = %d, want 0", comm)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPayCommissionTxNoUpline(t *testing.T) {
	enableCommission(t, true)
	tx, mock, closeFn := newWalletMockTx(t)
	defer closeFn()
	mock.ExpectRollback()

	comm, err := PayCommissionTx(context.Background(), tx, &model.Account{ID: 1001, Status: 1},
		1, 5000, "JB906", "2026-08-28-1420", "trace-c7")
	if err != nil {
		t.Fatalf("pay commission: %v", err)
	}
	if comm != 0 {
		t.Errorf("commission = %d, want 0", comm)
	}

	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
