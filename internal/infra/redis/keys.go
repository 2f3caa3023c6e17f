package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixBetIdemResult：投注幂等"结果缓存"Key 的前缀。
	// 作用：缓存某个 idempotency key 对应的第一次成功结果（BetOutput JSON），用于后续重复请求直接返回。
	PrefixBetIdemResult = "bet:idem:result:"
	// PrefixBetIdemLock：投注幂等"进行中锁"Key 的前缀。
	// 作用：使用 SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求，减轻数据库压力。
	PrefixBetIdemLock = "bet:idem:lock:"

	// PrefixDrawInfo：期号信息缓存（下注窗口、开奖时间），前端倒计时用
	PrefixDrawInfo = "draw:info:"
	// PrefixDrawResult：开奖结果缓存（五个奖位）
	PrefixDrawResult = "draw:result:"

	// PrefixWebhookDedup：网关回调去重标记，external_id 维度的短期挡板，
	// 数据库唯一键才是最终防线
	PrefixWebhookDedup = "pay:webhook:seen:"

	// KeyGatewayBalance：网关可用余额缓存，提现审批前的余量预检
	KeyGatewayBalance = "pay:gateway:balance"
)

// IdemResultKey：构造幂等"结果缓存"的完整 Key。
// 形如：bet:idem:result:{idempotency_key}
func IdemResultKey(k string) string { return PrefixBetIdemResult + k }

// IdemLockKey：构造幂等"进行中锁"的完整 Key。
// 形如：bet:idem:lock:{idempotency_key}
func IdemLockKey(k string) string { return PrefixBetIdemLock + k }

// DrawInfoKey：期号信息缓存 Key。形如：draw:info:{draw_id}
func DrawInfoKey(drawID string) string { return PrefixDrawInfo + drawID }

// DrawResultKey：开奖结果缓存 Key。形如：draw:result:{draw_id}
func DrawResultKey(drawID string) string { return PrefixDrawResult + drawID }

// WebhookDedupKey：回调去重 Key。形如：pay:webhook:seen:{external_id}
func WebhookDedupKey(externalID string) string { return PrefixWebhookDedup + externalID }
