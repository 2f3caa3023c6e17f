package state

import "fmt"

// State 期号状态
const (
	StateOpen     = "open"     // 开放投注
	StateSettling = "settling" // 结算中(抢到期号锁)
	StateClosed   = "closed"   // 已结算，终态
)

// Event 期号事件
const (
	EvtSettleStart = "settle_start" // 结算开始
	EvtSettleDone  = "settle_done"  // 结算提交
	EvtSettleAbort = "settle_abort" // 结算回滚，期号回到可重试状态
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
func NextState(cur, evt string) (string, error) {
	switch cur {
	case StateOpen:
		if evt == EvtSettleStart {
			return StateSettling, nil
		}
	case StateSettling:
		if evt == EvtSettleDone {
			return StateClosed, nil
		}
		if evt == EvtSettleAbort {
			return StateOpen, nil
		}
	}
	// closed 是终态，什么事件都不接受
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// 支付请求状态
const (
	PayStateCreated   = "created"   // 已创建，待网关回调
	PayStatePending   = "pending"   // 网关受理中，等待对账
	PayStatePaid      = "paid"      // 成功，终态
	PayStateRejected  = "rejected"  // 网关拒绝，终态
	PayStateReversed  = "reversed"  // 已冲正，终态
	PayStateCancelled = "cancelled" // 人工驳回，终态
)

// 支付事件
const (
	EvtGatewayAccepted = "gateway_accepted" // 网关受理（含超时后的存疑态）
	EvtGatewayPaid     = "gateway_paid"     // 网关确认成功
	EvtGatewayRejected = "gateway_rejected" // 网关终态拒绝
	EvtReversalApplied = "reversal_applied" // 冲正入账完成
	EvtManualCancel    = "manual_cancel"    // 审批驳回
)

// NextPayState 支付请求状态推进；paid 之后仅接受网关冲正，其余终态不再接受任何事件。
// 网关超时不是事件：状态停在 pending 等对账worker拿权威结果。
func NextPayState(cur, evt string) (string, error) {
	switch cur {
	case PayStateCreated:
		switch evt {
		case EvtGatewayAccepted:
			return PayStatePending, nil
		case EvtGatewayPaid:
			return PayStatePaid, nil
		case EvtGatewayRejected:
			return PayStateRejected, nil
		case EvtManualCancel:
			return PayStateCancelled, nil
		}
	case PayStatePending:
		switch evt {
		case EvtGatewayPaid:
			return PayStatePaid, nil
		case EvtGatewayRejected:
			return PayStateRejected, nil
		case EvtManualCancel:
			// 人工取消受理中的提现，前提是网关侧已确认未出款
			return PayStateCancelled, nil
		}
	case PayStatePaid:
		if evt == EvtReversalApplied {
			return PayStateReversed, nil
		}
	case PayStateRejected:
		if evt == EvtReversalApplied {
			return PayStateReversed, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}
