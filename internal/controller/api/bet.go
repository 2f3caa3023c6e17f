package api

import (
	"errors"
	"strings"

	helper "github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"
	"github.com/ThalesMilho/projeto-web/internal/rules"
	"github.com/ThalesMilho/projeto-web/internal/service"

	beego "github.com/beego/beego/v2/server/web"

	mysqlerr "github.com/go-sql-driver/mysql"
)

var newBetService = func() service.BetService { return service.NewBetService(rules.Active()) }

type BetController struct{ beego.Controller }

// 投注请求参数
type BetRequestParam struct {
	DrawId    string   `json:"draw_id"`    // 期号
	AccountId int64    `json:"account_id"` // 账户ID
	Modality  string   `json:"modality"`   // 玩法编码 milhar / grupo / quininha ...
	Placement int      `json:"placement"`  // 1=cabeça(仅第一奖) 2=1 ao 5(五奖位)
	Picks     []string `json:"picks"`      // 号码/组号列表
	BetAmount string   `json:"bet_amount"` // 投注金额，最多两位小数
	/*
		幂等键：客户端生成并随请求传入，用于在网络重试/超时重发/服务端重试时保证“同一业务请求只生效一次”。
		使用约定：
		- 对于“同一次下注”的所有重试，请传相同的 idempotency_key；
		- 业务语义不同（如金额/玩法/期号/账户不同）的请求必须使用不同的 key；
		- 建议生成方式：UUID（推荐）或对 account_id+draw_id+modality+bet_amount 做哈希。
		服务端幂等保证（多层防护）：
		1) Redis 进行中锁（约45秒）：并发重复请求直接返回 202，并携带 Retry-After: 1；
		2) MySQL 唯一键：在事务内先插入 idempotency_keys(idempotency_key)，若已存在则视为重复请求，返回首次请求的结果；
		3) 结果缓存：首次成功结果会写入 Redis（短期缓存），后续重复可直接读缓存快速返回。
		错误语义：
		- 并发重复（正在处理）：HTTP 202 + { ok:false, message:"duplicate request in flight" }
		- 历史重复（已处理完）：返回首次的 ticket_no 与余额，不算错误。
	*/
	IdempotencyKey string `json:"idempotency_key"`
}

// Bet 处理投注接口：POST /api/bet
func (c *BetController) Bet() {
	// 1) 解析入参与基本校验
	// 这里必须要对业务参数严格校验，后续service不再重复校验
	bp, ok, msg := helper.ParseAndValidateBet(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}

	svc := newBetService()
	traceID := helper.GetTraceID(c.Ctx)

	// 进行投注业务逻辑处理
	out, err := svc.PlaceBet(c.Ctx.Request.Context(), service.BetInput{
		DrawID:         bp.DrawId,
		AccountID:      bp.AccountId,
		ModalityCode:   bp.Modality,
		Placement:      int8(bp.Placement),
		Picks:          bp.Picks,
		BetAmount:      bp.BetAmount,
		IdempotencyKey: bp.IdempotencyKey,
		TraceID:        traceID,
	})
	if err != nil {
		// MySQL 唯一键冲突（service 层可能已包装，用 As 解包）
		var me *mysqlerr.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
			return
		}
		// 重复请求进行中
		if errors.Is(err, service.ErrDuplicateInFlight) {
			response.Accepted(&c.Controller, "重复请求进行中，请稍后重试", traceID)
			return
		}
		// 期号不存在
		if errors.Is(err, service.ErrDrawNotFound) {
			response.NotFound(&c.Controller, "期号不存在", traceID)
			return
		}
		// 期号未开放投注
		if errors.Is(err, service.ErrDrawNotOpen) {
			response.Conflict(&c.Controller, response.CodeInvalidState, traceID)
			return
		}
		// 投注窗口已关闭
		if errors.Is(err, service.ErrBetWindowClosed) {
			response.Conflict(&c.Controller, response.CodeBetWindowClosed, traceID)
			return
		}
		// 玩法未配置
		if errors.Is(err, rules.ErrUnresolvedModality) {
			response.Error(&c.Controller, 400, response.CodeUnknownModality, traceID)
			return
		}
		// 号码与玩法不匹配
		if errors.Is(err, rules.ErrInvalidPick) {
			response.Error(&c.Controller, 400, response.CodeInvalidPicks, traceID)
			return
		}
		// 潜在派彩超上限
		if errors.Is(err, service.ErrPayoutCapExceeded) {
			response.Error(&c.Controller, 400, response.CodePayoutCapExceeded, traceID)
			return
		}
		// 余额不足
		if errors.Is(err, service.ErrInsufficientFunds) {
			response.Error(&c.Controller, 409, response.CodeInsufficientBalance, traceID)
			return
		}
		// 账户不存在/被禁用
		if errors.Is(err, service.ErrAccountNotFound) {
			response.NotFound(&c.Controller, "账户不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			response.BadRequest(&c.Controller, "账户状态异常", traceID)
			return
		}
		// 投注金额验证失败
		errMsg := err.Error()
		if strings.Contains(errMsg, "invalid bet amount") ||
			strings.Contains(errMsg, "bet amount must be positive") ||
			strings.Contains(errMsg, "below minimum limit") ||
			strings.Contains(errMsg, "exceeds maximum limit") {
			response.BadRequest(&c.Controller, errMsg, traceID)
			return
		}
		// 系统错误
		response.InternalError(&c.Controller, traceID)
		return
	}

	// 成功响应
	response.Success(&c.Controller, map[string]interface{}{
		"ticket_no":     out.TicketNo,
		"remain_amount": out.RemainAmount,
	}, traceID)
}
