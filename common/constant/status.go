package constant

// user status
const (
	StatusNormal  = 1 // 状态：正常
	StatusDeleted = 2 // 状态：已删除
)

// user 业务
const (
	UserBaned            = 2 //禁止登录
	UserNotAllowWithdraw = 3 //禁止提款
)

// 注单状态
const (
	BetStatusPending  = 1 // 待结算
	BetStatusSettled  = 2 // 已结算
	BetStatusCanceled = 3 // 已撤单（开奖前退款）
)

// 开奖期状态
const (
	DrawStatusOpen     = 1 // 开放投注
	DrawStatusSettling = 2 // 结算中
	DrawStatusClosed   = 3 // 已结算，终态
)

// 支付请求状态（充值/提现共用）
const (
	PaymentStatusCreated   = 1 // 已创建，待网关回调
	PaymentStatusPending   = 2 // 网关受理中，等待对账
	PaymentStatusPaid      = 3 // 成功，终态
	PaymentStatusRejected  = 4 // 网关拒绝，终态
	PaymentStatusReversed  = 5 // 已冲正，终态
	PaymentStatusCancelled = 6 // 人工驳回，终态
)

// IsTerminalPaymentStatus 终态判断，回调落在终态后不再变更
func IsTerminalPaymentStatus(status int) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusRejected, PaymentStatusReversed, PaymentStatusCancelled:
		return true
	}
	return false
}

// 提现方向/类型
const (
	PaymentKindDeposit  = 1 // 充值
	PaymentKindWithdraw = 2 // 提现
)
