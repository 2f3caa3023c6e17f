package api

import (
	"time"

	"github.com/ThalesMilho/projeto-web/common"
	helper "github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	"github.com/ThalesMilho/projeto-web/internal/model"
	"github.com/ThalesMilho/projeto-web/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newWalletService = service.NewWalletService

// WalletController 钱包查询接口：余额、流水、注单、对账
type WalletController struct{ beego.Controller }

// accountID 账户ID解析：优先取认证中间件注入的 user_id，
// 未启用认证时退化为 account_id 查询参数（仅限内网/联调环境）
func (c *WalletController) accountID() int64 {
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		if id, ok := v.(int64); ok && id > 0 {
			return id
		}
	}
	id, _ := c.GetInt64("account_id")
	return id
}

// Balance 余额查询：GET /api/wallet/balance
func (c *WalletController) Balance() {
	traceID := helper.GetTraceID(c.Ctx)
	accountID := c.accountID()
	if accountID <= 0 {
		response.BadRequest(&c.Controller, "account_id is required", traceID)
		return
	}

	svc := newWalletService()
	balance, err := svc.GetBalance(c.Ctx.Request.Context(), accountID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"account_id": accountID,
		"balance":    balance,
	}, traceID)
}

// Ledger 流水查询：GET /api/wallet/ledger?start_ts=&end_ts=&page=&page_size=
// 时间为毫秒时间戳，0 表示不限
func (c *WalletController) Ledger() {
	traceID := helper.GetTraceID(c.Ctx)
	accountID := c.accountID()
	if accountID <= 0 {
		response.BadRequest(&c.Controller, "account_id is required", traceID)
		return
	}

	startTs, _ := c.GetInt64("start_ts", 0)
	endTs, _ := c.GetInt64("end_ts", 0)
	// period=today|week|month 按圣保罗日切取整段，优先于显式时间戳
	switch c.GetString("period") {
	case "today":
		s, e := common.GetTodayRange(time.Now())
		startTs, endTs = s*1000, e*1000
	case "week":
		s, e := common.GetWeekRange(time.Now())
		startTs, endTs = s*1000, e*1000
	case "month":
		s, e := common.GetMonthRange(time.Now())
		startTs, endTs = s*1000, e*1000
	}
	page, _ := c.GetUint32("page", 0)
	pageSize, _ := c.GetUint32("page_size", 50)
	if pageSize > 200 {
		pageSize = 200
	}

	svc := newWalletService()
	entries, err := svc.ListLedger(c.Ctx.Request.Context(), accountID, startTs, endTs, uint(page), uint(pageSize))
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"account_id": accountID,
		"entries":    entries,
		"page":       page,
		"page_size":  pageSize,
	}, traceID)
}

// Bets 注单查询：GET /api/wallet/bets?draw_id=&limit=
func (c *WalletController) Bets() {
	traceID := helper.GetTraceID(c.Ctx)
	accountID := c.accountID()
	if accountID <= 0 {
		response.BadRequest(&c.Controller, "account_id is required", traceID)
		return
	}

	drawID := c.GetString("draw_id")
	limit, _ := c.GetInt("limit", 10)

	bets, err := model.ListAccountBets(c.Ctx.Request.Context(), infmysql.ReadSQLX(), accountID, drawID, limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"account_id": accountID,
		"bets":       bets,
	}, traceID)
}

// Reconcile 余额与流水核对：GET /api/wallet/reconcile
// 核对失败不报错，由调用方按 consistent 字段判断
func (c *WalletController) Reconcile() {
	traceID := helper.GetTraceID(c.Ctx)
	accountID := c.accountID()
	if accountID <= 0 {
		response.BadRequest(&c.Controller, "account_id is required", traceID)
		return
	}

	svc := newWalletService()
	balance, ledgerSum, consistent, err := svc.Reconcile(c.Ctx.Request.Context(), accountID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"account_id":       accountID,
		"balance_cents":    balance,
		"ledger_sum_cents": ledgerSum,
		"consistent":       consistent,
	}, traceID)
}
