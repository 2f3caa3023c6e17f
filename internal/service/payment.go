package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ThalesMilho/projeto-web/common/constant"
	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/gateway"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"
	"github.com/ThalesMilho/projeto-web/internal/metrics"
	"github.com/ThalesMilho/projeto-web/internal/model"
	"github.com/ThalesMilho/projeto-web/internal/state"
)

// 支付流程约束：
// 1. 网关调用一律在数据库事务/行锁之外发起
// 2. 回调按 external_id 去重，终态后的重复回调直接忽略
// 3. 提现先扣款冻结，审批通过才请求网关；网关终态拒绝时以冲正流水退回，
//    网关超时/不可达一律停在受理中等对账，绝不因超时自动退款
var (
	ErrPaymentNotFound   = errors.New("payment request not found")
	ErrUnknownEvent      = errors.New("unknown webhook event")
	ErrPaymentTerminal   = errors.New("payment already in terminal status")
	ErrWithdrawForbidden = errors.New("withdraw not allowed for this account")
)

const webhookDedupTTL = 24 * time.Hour

type DepositInput struct {
	AccountID int64
	Amount    string
	TraceID   string
}

type DepositOutput struct {
	ExternalID string
	QRCode     string
	ExpiresAt  int64
}

type WithdrawInput struct {
	AccountID int64
	Amount    string
	PixKey    string
	TraceID   string
}

type WithdrawOutput struct {
	ExternalID   string
	Status       string
	RemainAmount string
}

// WebhookInput 回调输入（签名与来源IP已在接入层校验）
type WebhookInput struct {
	EventID    string
	ExternalID string
	EventType  string // paid | rejected | reversed
	RawPayload string
	SourceIP   string
	TraceID    string
}

type PaymentService interface {
	RequestDeposit(ctx context.Context, in DepositInput) (*DepositOutput, error)
	RequestWithdraw(ctx context.Context, in WithdrawInput) (*WithdrawOutput, error)
	HandleWebhook(ctx context.Context, in WebhookInput) error
	// ApproveWithdraw 审批通过：提现单推进到受理中并提交网关出款
	ApproveWithdraw(ctx context.Context, externalID, operator, traceID string) (*WithdrawOutput, error)
	// CancelWithdraw 审批驳回/人工取消：未到终态的提现单冲正退款并置为已取消
	CancelWithdraw(ctx context.Context, externalID, operator, reason, traceID string) error
	// ReconcilePayment 对账：主动查网关状态并推进本地单据
	ReconcilePayment(ctx context.Context, externalID, traceID string) error
}

type paymentService struct {
	gw gateway.Client
}

func NewPaymentService(gw gateway.Client) PaymentService { return &paymentService{gw: gw} }

// RequestDeposit 发起充值：先问网关要收款码，再落本地单据
// 充值入账只发生在网关回调确认后
func (s *paymentService) RequestDeposit(ctx context.Context, in DepositInput) (*DepositOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordPayment(result, "deposit", "request", start) }()

	amountCents, err := chelper.ParseAmountToCents(in.Amount)
	if err != nil || amountCents <= 0 {
		return nil, errors.New("invalid deposit amount")
	}

	acc, err := model.GetAccountByID(ctx, infmysql.SQLX(), in.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	if acc.Status != 1 {
		return nil, ErrAccountDisabled
	}

	// 网关调用在任何锁之外
	dep, err := s.gw.CreateDeposit(in.AccountID, amountCents, acc.Document, in.TraceID)
	if err != nil {
		fmt.Printf("[Payment] 创建充值失败: account_id=%d, error=%v, trace_id=%s\n",
			in.AccountID, err, in.TraceID)
		return nil, err
	}

	pr := &model.PaymentRequest{
		ExternalID:  dep.ExternalID,
		AccountID:   in.AccountID,
		Kind:        constant.PaymentKindDeposit,
		Status:      1, // created
		AmountCents: amountCents,
		Currency:    "BRL",
		TraceID:     in.TraceID,
	}
	if dup, err := pr.Insert(ctx, infmysql.SQLX()); err != nil {
		return nil, err
	} else if dup {
		// 网关重复返回同一 external_id，按已存在处理
		fmt.Printf("[Payment] 充值单已存在: external_id=%s, trace_id=%s\n", dep.ExternalID, in.TraceID)
	}

	result = "success"
	fmt.Printf("[Payment] 充值单已创建: external_id=%s, account_id=%d, amount_cents=%d, trace_id=%s\n",
		dep.ExternalID, in.AccountID, amountCents, in.TraceID)
	return &DepositOutput{ExternalID: dep.ExternalID, QRCode: dep.QRCode, ExpiresAt: dep.ExpiresAt}, nil
}

// RequestWithdraw 发起提现：扣款冻结 + 落单，单据停在 created 等审批。
// 资金在这里就离开余额，审批驳回或网关拒绝时以冲正流水退回
func (s *paymentService) RequestWithdraw(ctx context.Context, in WithdrawInput) (*WithdrawOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordPayment(result, "withdraw", "request", start) }()

	amountCents, err := chelper.ParseAmountToCents(in.Amount)
	if err != nil || amountCents <= 0 {
		return nil, errors.New("invalid withdraw amount")
	}
	if in.PixKey == "" {
		return nil, errors.New("pix key required")
	}

	acc, err := model.GetAccountByID(ctx, infmysql.SQLX(), in.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	if acc.Status != 1 {
		return nil, ErrAccountDisabled
	}

	externalID := "WD-" + generateTicketNo(in.AccountID)[2:]

	// 事务1：扣款 + 落单
	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	debitEntry, err := DebitTx(ctx, tx, LedgerMove{
		AccountID:   in.AccountID,
		AmountCents: amountCents,
		EntryType:   constant.LedgerTypeWithdraw,
		RelatedRef:  externalID,
		Remark:      "saque via " + chelper.MaskPixKey(in.PixKey),
		TraceID:     in.TraceID,
	})
	if err != nil {
		return nil, err
	}

	pr := &model.PaymentRequest{
		ExternalID:  externalID,
		AccountID:   in.AccountID,
		Kind:        constant.PaymentKindWithdraw,
		Status:      1, // created
		AmountCents: amountCents,
		Currency:    "BRL",
		PixKey:      in.PixKey,
		TraceID:     in.TraceID,
	}
	if _, err := pr.Insert(ctx, tx); err != nil {
		return nil, err
	}
	if err := model.BindPaymentLedger(ctx, tx, pr.ID, debitEntry.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	result = "success"
	fmt.Printf("[Payment] 提现单已创建，等待审批: external_id=%s, account_id=%d, amount_cents=%d, trace_id=%s\n",
		externalID, in.AccountID, amountCents, in.TraceID)
	return &WithdrawOutput{ExternalID: externalID, Status: state.PayStateCreated,
		RemainAmount: chelper.FormatCents(debitEntry.AfterCents)}, nil
}

// ApproveWithdraw 审批通过提现：
// 短事务把单据推到受理中 -> 网关出款（无锁） -> 按网关结果收尾。
// 网关终态拒绝冲正退款；超时/不可达保持受理中，由对账worker拿权威结果。
func (s *paymentService) ApproveWithdraw(ctx context.Context, externalID, operator, traceID string) (*WithdrawOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordPayment(result, "withdraw", "approve", start) }()

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	pr, err := model.GetPaymentByExternalIDForUpdate(ctx, tx, externalID)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, ErrPaymentNotFound
	}
	if pr.Kind != constant.PaymentKindWithdraw {
		return nil, ErrWithdrawForbidden
	}
	if _, err := state.NextPayState(payCodeToState(pr.Status), state.EvtGatewayAccepted); err != nil {
		return nil, ErrPaymentTerminal
	}
	moved, err := model.UpdatePaymentStatus(ctx, tx, pr.ID, pr.Status, 2, "approve by "+operator)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrPaymentTerminal
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	acc, err := model.GetAccountByID(ctx, infmysql.SQLX(), pr.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}

	// 网关调用（审批事务已提交，不持有任何锁）
	payout, gwErr := s.gw.CreatePayout(externalID, pr.AmountCents, pr.PixKey, acc.Document, traceID)

	if gwErr != nil {
		if errors.Is(gwErr, gateway.ErrGatewayRejected) {
			// 终态拒绝：冲正退款
			fmt.Printf("[Payment] 提现被网关拒绝，冲正退款: external_id=%s, error=%v, trace_id=%s\n",
				externalID, gwErr, traceID)
			if err := s.refundWithdraw(ctx, pr.ID, pr.AccountID, pr.AmountCents, externalID, "gateway rejected", traceID); err != nil {
				fmt.Printf("[Payment] 冲正退款失败: external_id=%s, error=%v, trace_id=%s\n",
					externalID, err, traceID)
				return nil, err
			}
			result = "rejected"
			return &WithdrawOutput{ExternalID: externalID, Status: state.PayStateRejected}, nil
		}
		// 超时/不可达：结果存疑，单据停在受理中等对账，绝不自动退款
		fmt.Printf("[Payment] 网关出款结果存疑，等待对账: external_id=%s, error=%v, trace_id=%s\n",
			externalID, gwErr, traceID)
		result = "pending"
		return &WithdrawOutput{ExternalID: externalID, Status: state.PayStatePending}, nil
	}

	if payout.Status != "accepted" {
		fmt.Printf("[Payment] 提现被网关拒绝，冲正退款: external_id=%s, reason=%s, trace_id=%s\n",
			externalID, payout.Reason, traceID)
		if err := s.refundWithdraw(ctx, pr.ID, pr.AccountID, pr.AmountCents, externalID, payout.Reason, traceID); err != nil {
			fmt.Printf("[Payment] 冲正退款失败: external_id=%s, error=%v, trace_id=%s\n",
				externalID, err, traceID)
			return nil, err
		}
		result = "rejected"
		return &WithdrawOutput{ExternalID: externalID, Status: state.PayStateRejected}, nil
	}

	result = "success"
	fmt.Printf("[Payment] 提现已受理: external_id=%s, operator=%s, trace_id=%s\n",
		externalID, operator, traceID)
	return &WithdrawOutput{ExternalID: externalID, Status: state.PayStatePending}, nil
}

// refundWithdraw 提现失败冲正：状态从受理中推到 rejected 并退回余额
func (s *paymentService) refundWithdraw(ctx context.Context, paymentID, accountID, amountCents int64, externalID, reason, traceID string) error {
	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	moved, err := model.UpdatePaymentStatus(ctx, tx, paymentID, 2, 4, reason)
	if err != nil {
		return err
	}
	if !moved {
		// 状态已被并发推进（例如回调先到），不重复退款
		return nil
	}

	if _, err := CreditTx(ctx, tx, LedgerMove{
		AccountID:   accountID,
		AmountCents: amountCents,
		EntryType:   constant.LedgerTypeReversal,
		RelatedRef:  externalID,
		Remark:      "estorno de saque: " + reason,
		TraceID:     traceID,
	}, true); err != nil {
		return err
	}

	return tx.Commit()
}

// CancelWithdraw 运营侧取消提现。
// 仅允许 created/pending 状态；pending 单取消前应先人工确认网关侧未出款。
// 状态守卫保证与回调竞争时只有一方退款。
func (s *paymentService) CancelWithdraw(ctx context.Context, externalID, operator, reason, traceID string) error {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordPayment(result, "withdraw", "cancel", start) }()

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	pr, err := model.GetPaymentByExternalIDForUpdate(ctx, tx, externalID)
	if err != nil {
		return err
	}
	if pr == nil {
		return ErrPaymentNotFound
	}
	if pr.Kind != constant.PaymentKindWithdraw {
		return ErrWithdrawForbidden
	}
	if constant.IsTerminalPaymentStatus(int(pr.Status)) {
		return ErrPaymentTerminal
	}
	if _, err := state.NextPayState(payCodeToState(pr.Status), state.EvtManualCancel); err != nil {
		return ErrPaymentTerminal
	}

	moved, err := model.UpdatePaymentStatus(ctx, tx, pr.ID, pr.Status, 6, "cancel by "+operator+": "+reason)
	if err != nil {
		return err
	}
	if !moved {
		return ErrPaymentTerminal
	}

	if _, err := CreditTx(ctx, tx, LedgerMove{
		AccountID:   pr.AccountID,
		AmountCents: pr.AmountCents,
		EntryType:   constant.LedgerTypeReversal,
		RelatedRef:  externalID,
		Remark:      "saque cancelado: " + reason,
		TraceID:     traceID,
	}, true); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	result = "success"
	fmt.Printf("[Payment] 提现已取消并退款: external_id=%s, account_id=%d, operator=%s, trace_id=%s\n",
		externalID, pr.AccountID, operator, traceID)
	return nil
}

// HandleWebhook 处理网关回调
// 幂等三层：Redis 去重 -> webhook_inbox 唯一索引 -> 单据终态检查
func (s *paymentService) HandleWebhook(ctx context.Context, in WebhookInput) error {
	start := time.Now()
	result := "fail"
	kindLabel := "unknown"
	defer func() { metrics.RecordPayment(result, kindLabel, in.EventType, start) }()

	if in.EventID == "" || in.ExternalID == "" {
		return ErrBadRequest
	}

	evt := webhookEventToPayEvent(in.EventType)
	if evt == "" {
		fmt.Printf("[Webhook] 未知事件类型: event_type=%s, external_id=%s, trace_id=%s\n",
			in.EventType, in.ExternalID, in.TraceID)
		return ErrUnknownEvent
	}

	fmt.Printf("[Webhook] 收到网关回调: event=%s, event_id=%s, external_id=%s, source_ip=%s, trace_id=%s\n",
		in.EventType, in.EventID, in.ExternalID, in.SourceIP, in.TraceID)

	// Redis 快路径去重（降级容错，Redis 不可用时靠数据库唯一索引兜底）
	if r := infrds.Client(); r != nil {
		ok, _ := r.SetNX(ctx, infrds.WebhookDedupKey(in.EventID), 1, webhookDedupTTL).Result()
		if !ok {
			fmt.Printf("[Webhook] Redis 去重命中，跳过重复事件: event_id=%s, trace_id=%s\n",
				in.EventID, in.TraceID)
			result = "duplicate"
			return nil
		}
	}

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// 回调落库（唯一索引去重）
	dup, err := model.InsertWebhookInbox(ctx, tx, &model.WebhookInbox{
		EventID:    in.EventID,
		ExternalID: in.ExternalID,
		EventType:  in.EventType,
		Payload:    in.RawPayload,
		SourceIP:   in.SourceIP,
	})
	if err != nil {
		return err
	}
	if dup {
		fmt.Printf("[Webhook] 事件已处理过，跳过: event_id=%s, trace_id=%s\n", in.EventID, in.TraceID)
		result = "duplicate"
		return nil
	}

	pr, err := model.GetPaymentByExternalIDForUpdate(ctx, tx, in.ExternalID)
	if err != nil {
		return err
	}
	if pr == nil {
		fmt.Printf("[Webhook] 找不到对应支付单: external_id=%s, trace_id=%s\n", in.ExternalID, in.TraceID)
		return ErrPaymentNotFound
	}
	if pr.Kind == constant.PaymentKindDeposit {
		kindLabel = "deposit"
	} else {
		kindLabel = "withdraw"
	}

	// 终态检查：paid/rejected/reversed/cancelled 之后的回调一律忽略
	// 例外：paid 之后允许 reversed（网关冲正）
	if constant.IsTerminalPaymentStatus(int(pr.Status)) && !(pr.Status == 3 && evt == state.EvtReversalApplied) {
		fmt.Printf("[Webhook] 支付单已在终态，忽略回调: external_id=%s, status=%d, event=%s, trace_id=%s\n",
			in.ExternalID, pr.Status, in.EventType, in.TraceID)
		result = "duplicate"
		return tx.Commit() // inbox 记录保留
	}

	if err := s.applyWebhookEvent(ctx, tx, pr, evt, in); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	result = "success"
	fmt.Printf("[Webhook] 回调处理完成: event=%s, external_id=%s, trace_id=%s\n",
		in.EventType, in.ExternalID, in.TraceID)
	return nil
}

// applyWebhookEvent 在事务内应用回调事件：状态机推进 + 对应的资金动作
func (s *paymentService) applyWebhookEvent(ctx context.Context, tx *sqlx.Tx, pr *model.PaymentRequest, evt string, in WebhookInput) error {
	next, err := state.NextPayState(payCodeToState(pr.Status), evt)
	if err != nil {
		fmt.Printf("[Webhook] 非法状态转换: external_id=%s, status=%d, event=%s, error=%v, trace_id=%s\n",
			pr.ExternalID, pr.Status, evt, err, in.TraceID)
		return err
	}
	nextCode := payStateToCode(next)

	switch evt {
	case state.EvtGatewayPaid:
		if pr.Kind == constant.PaymentKindDeposit {
			// 充值确认：入账
			entry, err := CreditTx(ctx, tx, LedgerMove{
				AccountID:   pr.AccountID,
				AmountCents: pr.AmountCents,
				EntryType:   constant.LedgerTypeDeposit,
				RelatedRef:  pr.ExternalID,
				Remark:      "deposito PIX confirmado",
				TraceID:     in.TraceID,
			}, false)
			if err != nil {
				return err
			}
			if err := model.BindPaymentLedger(ctx, tx, pr.ID, entry.ID); err != nil {
				return err
			}
		}
		// 提现确认：钱在发起时已扣，只推状态

	case state.EvtGatewayRejected:
		if pr.Kind == constant.PaymentKindWithdraw {
			// 提现被拒：冲正退款
			if _, err := CreditTx(ctx, tx, LedgerMove{
				AccountID:   pr.AccountID,
				AmountCents: pr.AmountCents,
				EntryType:   constant.LedgerTypeReversal,
				RelatedRef:  pr.ExternalID,
				Remark:      "estorno de saque rejeitado",
				TraceID:     in.TraceID,
			}, true); err != nil {
				return err
			}
		}
		// 充值被拒：没有资金动作

	case state.EvtReversalApplied:
		if pr.Kind == constant.PaymentKindDeposit {
			// 已入账的充值被网关冲正：原路扣回
			if _, err := DebitTx(ctx, tx, LedgerMove{
				AccountID:   pr.AccountID,
				AmountCents: pr.AmountCents,
				EntryType:   constant.LedgerTypeReversal,
				RelatedRef:  pr.ExternalID,
				Remark:      "estorno de deposito pelo gateway",
				TraceID:     in.TraceID,
			}); err != nil {
				// 余额不足以扣回属于风险事件，整体回滚人工介入
				fmt.Printf("[Webhook] 充值冲正扣回失败: external_id=%s, error=%v, trace_id=%s\n",
					pr.ExternalID, err, in.TraceID)
				return err
			}
		} else {
			// 提现冲正：资金退回
			if _, err := CreditTx(ctx, tx, LedgerMove{
				AccountID:   pr.AccountID,
				AmountCents: pr.AmountCents,
				EntryType:   constant.LedgerTypeReversal,
				RelatedRef:  pr.ExternalID,
				Remark:      "estorno de saque pelo gateway",
				TraceID:     in.TraceID,
			}, true); err != nil {
				return err
			}
		}
	}

	moved, err := model.UpdatePaymentStatus(ctx, tx, pr.ID, pr.Status, nextCode, in.EventType)
	if err != nil {
		return err
	}
	if !moved {
		return errors.New("payment status moved concurrently")
	}
	return nil
}

// 支付状态码与状态机字符串互映：1=created 2=pending 3=paid 4=rejected 5=reversed 6=cancelled
func payCodeToState(c int8) string {
	switch c {
	case 1:
		return state.PayStateCreated
	case 2:
		return state.PayStatePending
	case 3:
		return state.PayStatePaid
	case 4:
		return state.PayStateRejected
	case 5:
		return state.PayStateReversed
	case 6:
		return state.PayStateCancelled
	default:
		return state.PayStateCreated
	}
}

func payStateToCode(s string) int8 {
	switch s {
	case state.PayStateCreated:
		return 1
	case state.PayStatePending:
		return 2
	case state.PayStatePaid:
		return 3
	case state.PayStateRejected:
		return 4
	case state.PayStateReversed:
		return 5
	case state.PayStateCancelled:
		return 6
	default:
		return 1
	}
}

func webhookEventToPayEvent(eventType string) string {
	switch eventType {
	case "paid":
		return state.EvtGatewayPaid
	case "rejected":
		return state.EvtGatewayRejected
	case "reversed":
		return state.EvtReversalApplied
	default:
		return ""
	}
}

// ReconcilePayment 对账：查询网关实际状态并推进本地单据
func (s *paymentService) ReconcilePayment(ctx context.Context, externalID, traceID string) error {
	st, err := s.gw.GetTransferStatus(externalID)
	if err != nil {
		return err
	}

	switch st.Status {
	case "paid":
		return s.HandleWebhook(ctx, WebhookInput{
			EventID:    "RECON-PAID-" + externalID,
			ExternalID: externalID,
			EventType:  "paid",
			RawPayload: toJSON(st),
			SourceIP:   "reconciler",
			TraceID:    traceID,
		})
	case "rejected":
		return s.HandleWebhook(ctx, WebhookInput{
			EventID:    "RECON-REJ-" + externalID,
			ExternalID: externalID,
			EventType:  "rejected",
			RawPayload: toJSON(st),
			SourceIP:   "reconciler",
			TraceID:    traceID,
		})
	case "reversed":
		return s.HandleWebhook(ctx, WebhookInput{
			EventID:    "RECON-REV-" + externalID,
			ExternalID: externalID,
			EventType:  "reversed",
			RawPayload: toJSON(st),
			SourceIP:   "reconciler",
			TraceID:    traceID,
		})
	default:
		// pending：继续等下一轮对账
		fmt.Printf("[Reconcile] 网关仍在处理中: external_id=%s, status=%s, trace_id=%s\n",
			externalID, st.Status, traceID)
		return nil
	}
}
