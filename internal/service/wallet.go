package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ThalesMilho/projeto-web/common/constant"
	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	"github.com/ThalesMilho/projeto-web/internal/model"
)

// 账本资金原语：所有余额变动必须经由本文件的函数，
// 保证"锁账户 -> 改余额 -> 落流水"三步在同一事务内完成
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidMoveAmount = errors.New("amount must be positive")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountDisabled   = errors.New("account disabled")
)

// LedgerMove 一次资金变动的参数
type LedgerMove struct {
	AccountID   int64
	AmountCents int64 // 恒为正数，方向由 EntryType 决定
	EntryType   int
	RelatedRef  string // 关联单号：ticket_no / external_id / 结算批次
	DrawID      string
	Remark      string
	TraceID     string
}

// DebitTx 在事务内扣款：行锁账户、校验余额、更新余额、落流水
// 余额不足返回 ErrInsufficientFunds，事务由调用方回滚
func DebitTx(ctx context.Context, tx *sqlx.Tx, mv LedgerMove) (*model.LedgerEntry, error) {
	if mv.AmountCents <= 0 {
		return nil, ErrInvalidMoveAmount
	}
	if !constant.IsValidLedgerType(mv.EntryType) {
		return nil, fmt.Errorf("unknown ledger entry type: %d", mv.EntryType)
	}

	acc, err := model.GetAccountForUpdate(ctx, tx, mv.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	if acc.Status != 1 {
		return nil, ErrAccountDisabled
	}
	if acc.BalanceCents < mv.AmountCents {
		fmt.Printf("[Wallet] 余额不足: account_id=%d, balance=%d, debit=%d, trace_id=%s\n",
			mv.AccountID, acc.BalanceCents, mv.AmountCents, mv.TraceID)
		return nil, ErrInsufficientFunds
	}

	before := acc.BalanceCents
	after := before - mv.AmountCents
	if err := model.UpdateAccountBalance(ctx, tx, mv.AccountID, after); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		AccountID:   mv.AccountID,
		EntryType:   mv.EntryType,
		AmountCents: -mv.AmountCents, // 借记流水记负数
		BeforeCents: before,
		AfterCents:  after,
		Currency:    "BRL",
		RelatedRef:  mv.RelatedRef,
		DrawID:      mv.DrawID,
		Remark:      mv.Remark,
		TraceID:     mv.TraceID,
	}
	if err := entry.Insert(ctx, tx); err != nil {
		return nil, err
	}
	return entry, nil
}

// CreditTx 在事务内入账：行锁账户、更新余额、落流水
// 入账不校验余额，但被禁用账户照常拒绝（防止向冻结账户派彩以外的入账）
// allowDisabled 用于派彩/冲正这类必须完成的入账
func CreditTx(ctx context.Context, tx *sqlx.Tx, mv LedgerMove, allowDisabled bool) (*model.LedgerEntry, error) {
	if mv.AmountCents <= 0 {
		return nil, ErrInvalidMoveAmount
	}
	if !constant.IsValidLedgerType(mv.EntryType) {
		return nil, fmt.Errorf("unknown ledger entry type: %d", mv.EntryType)
	}

	acc, err := model.GetAccountForUpdate(ctx, tx, mv.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	if acc.Status != 1 && !allowDisabled {
		return nil, ErrAccountDisabled
	}

	before := acc.BalanceCents
	after := before + mv.AmountCents
	if err := model.UpdateAccountBalance(ctx, tx, mv.AccountID, after); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		AccountID:   mv.AccountID,
		EntryType:   mv.EntryType,
		AmountCents: mv.AmountCents,
		BeforeCents: before,
		AfterCents:  after,
		Currency:    "BRL",
		RelatedRef:  mv.RelatedRef,
		DrawID:      mv.DrawID,
		Remark:      mv.Remark,
		TraceID:     mv.TraceID,
	}
	if err := entry.Insert(ctx, tx); err != nil {
		return nil, err
	}
	return entry, nil
}

// TransferTx 在事务内账户间转账：按账户ID升序加锁，避免交叉转账死锁
// 出账/入账各落一条流水，共用同一 related_ref
func TransferTx(ctx context.Context, tx *sqlx.Tx, fromID, toID, amountCents int64, ref, remark, traceID string) error {
	if amountCents <= 0 {
		return ErrInvalidMoveAmount
	}
	if fromID == toID {
		return errors.New("cannot transfer to self")
	}

	// 升序加锁
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	if _, err := model.GetAccountForUpdate(ctx, tx, first); err != nil {
		return err
	}
	if _, err := model.GetAccountForUpdate(ctx, tx, second); err != nil {
		return err
	}

	if _, err := DebitTx(ctx, tx, LedgerMove{
		AccountID:   fromID,
		AmountCents: amountCents,
		EntryType:   constant.LedgerTypeTransferOut,
		RelatedRef:  ref,
		Remark:      remark,
		TraceID:     traceID,
	}); err != nil {
		return err
	}
	if _, err := CreditTx(ctx, tx, LedgerMove{
		AccountID:   toID,
		AmountCents: amountCents,
		EntryType:   constant.LedgerTypeTransferIn,
		RelatedRef:  ref,
		Remark:      remark,
		TraceID:     traceID,
	}, false); err != nil {
		return err
	}
	return nil
}

// WalletService 对外余额/流水查询
type WalletService interface {
	GetBalance(ctx context.Context, accountID int64) (string, error)
	ListLedger(ctx context.Context, accountID int64, startTs, endTs int64, page, pageSize uint) ([]model.LedgerEntry, error)
	Reconcile(ctx context.Context, accountID int64) (balanceCents, ledgerSumCents int64, ok bool, err error)
}

type walletService struct{}

func NewWalletService() WalletService { return &walletService{} }

func (s *walletService) GetBalance(ctx context.Context, accountID int64) (string, error) {
	cents, err := model.GetAccountBalance(ctx, infmysql.SQLX(), accountID)
	if err != nil {
		return "", err
	}
	return chelper.FormatCents(cents), nil
}

func (s *walletService) ListLedger(ctx context.Context, accountID int64, startTs, endTs int64, page, pageSize uint) ([]model.LedgerEntry, error) {
	if pageSize == 0 {
		pageSize = 50
	}
	offset := page * pageSize
	return model.ListLedgerEntries(ctx, infmysql.ReadSQLX(), accountID, startTs, endTs, offset, pageSize)
}

// Reconcile 对账：流水累计必须等于当前余额
func (s *walletService) Reconcile(ctx context.Context, accountID int64) (int64, int64, bool, error) {
	balance, err := model.GetAccountBalance(ctx, infmysql.SQLX(), accountID)
	if err != nil {
		return 0, 0, false, err
	}
	sum, err := model.SumLedgerByAccount(infmysql.SQLX(), accountID)
	if err != nil {
		return 0, 0, false, err
	}
	return balance, sum, balance == sum, nil
}
