package constant

// 账变类型常量定义
const (
	LedgerTypeBet         = 1 // 投注扣款
	LedgerTypePayout      = 2 // 中奖派彩
	LedgerTypeDeposit     = 3 // 充值入账
	LedgerTypeWithdraw    = 4 // 提现扣款
	LedgerTypeCommission  = 5 // 代理佣金
	LedgerTypeReversal    = 6 // 冲正（网关拒绝后的回退）
	LedgerTypeAdjust      = 7 // 人工调整
	LedgerTypeTransferIn  = 8 // 内部转入
	LedgerTypeTransferOut = 9 // 内部转出
)

// 账变类型描述映射
var LedgerTypeDesc = map[int]string{
	LedgerTypeBet:         "aposta",
	LedgerTypePayout:      "premio",
	LedgerTypeDeposit:     "deposito",
	LedgerTypeWithdraw:    "saque",
	LedgerTypeCommission:  "comissao",
	LedgerTypeReversal:    "estorno",
	LedgerTypeAdjust:      "ajuste",
	LedgerTypeTransferIn:  "transferencia_entrada",
	LedgerTypeTransferOut: "transferencia_saida",
}

// GetLedgerTypeDesc 获取账变类型描述
func GetLedgerTypeDesc(changeType int) string {
	if desc, exists := LedgerTypeDesc[changeType]; exists {
		return desc
	}
	return "desconhecido"
}

// IsValidLedgerType 验证账变类型是否有效
func IsValidLedgerType(changeType int) bool {
	_, exists := LedgerTypeDesc[changeType]
	return exists
}

// 常用账变类型分组
var (
	// 收入类型
	IncomeTypes = []int{LedgerTypePayout, LedgerTypeDeposit, LedgerTypeCommission, LedgerTypeReversal, LedgerTypeTransferIn}

	// 支出类型
	ExpenseTypes = []int{LedgerTypeBet, LedgerTypeWithdraw, LedgerTypeTransferOut}
)

// IsIncomeType 判断是否为收入类型
func IsIncomeType(changeType int) bool {
	for _, t := range IncomeTypes {
		if t == changeType {
			return true
		}
	}
	return false
}

// IsExpenseType 判断是否为支出类型
func IsExpenseType(changeType int) bool {
	for _, t := range ExpenseTypes {
		if t == changeType {
			return true
		}
	}
	return false
}
