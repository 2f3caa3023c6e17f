package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	helper "github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"
	"github.com/ThalesMilho/projeto-web/internal/model"
	"github.com/ThalesMilho/projeto-web/internal/rules"
	"github.com/ThalesMilho/projeto-web/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	beegocontext "github.com/beego/beego/v2/server/web/context"
	goredis "github.com/redis/go-redis/v9"
)

var newSettlementService = func() service.SettlementService { return service.NewSettlementService(rules.Active()) }

// DrawController 期号查询与结算驱动接口
// 业务含义：录入开奖号码让期号进入结算中，再触发结算把期号推到已关闭
type DrawController struct{ beego.Controller }

// 开奖录入请求参数
type ResultsRequestParam struct {
	DrawId string   `json:"draw_id"`
	Prizes []string `json:"prizes"` // 五个奖位，按顺序，各为4位数字字符串
}

// EnterResults 录入开奖号码：POST /api/draw/results
func (c *DrawController) EnterResults() {
	rp, ok, msg := helper.ParseAndValidateResults(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}

	svc := newSettlementService()
	traceID := helper.GetTraceID(c.Ctx)

	var prizes [5]string
	copy(prizes[:], rp.Prizes)

	if err := svc.EnterResults(c.Ctx.Request.Context(), service.ResultsInput{
		DrawID:   rp.DrawId,
		Prizes:   prizes,
		Operator: operatorFrom(c.Ctx),
		TraceID:  traceID,
	}); err != nil {
		if errors.Is(err, service.ErrDrawNotFound) {
			response.NotFound(&c.Controller, "期号不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrResultsAlreadyEntered) {
			response.Conflict(&c.Controller, response.CodeInvalidState, traceID)
			return
		}
		if errors.Is(err, service.ErrDrawNotOpen) {
			response.Conflict(&c.Controller, response.CodeInvalidState, traceID)
			return
		}
		if errors.Is(err, service.ErrBadRequest) || strings.Contains(err.Error(), "4-digit") {
			response.BadRequest(&c.Controller, err.Error(), traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}

// Settle 触发结算：POST /api/draw/settle
// 幂等：已结算的期号直接返回成功；并发结算返回 409
func (c *DrawController) Settle() {
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	if drawID == "" {
		// JSON body 兜底
		var body struct {
			DrawId string `json:"draw_id"`
		}
		_ = json.Unmarshal(c.Ctx.Input.RequestBody, &body)
		drawID = strings.TrimSpace(body.DrawId)
	}
	traceID := helper.GetTraceID(c.Ctx)
	if drawID == "" || len(drawID) > 64 {
		response.BadRequest(&c.Controller, "draw_id is required", traceID)
		return
	}

	svc := newSettlementService()
	if err := svc.SettleDraw(c.Ctx.Request.Context(), drawID, operatorFrom(c.Ctx), traceID); err != nil {
		if errors.Is(err, service.ErrDrawNotFound) {
			response.NotFound(&c.Controller, "期号不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrConcurrentSettlement) {
			response.Conflict(&c.Controller, response.CodeConcurrentSettlement, traceID)
			return
		}
		if errors.Is(err, service.ErrDrawNotSettling) {
			response.Conflict(&c.Controller, response.CodeDrawNotSettling, traceID)
			return
		}
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"draw_id": drawID}, traceID)
}

// GetDraw 查询期号信息与开奖结果：GET /api/draw/:draw_id
// 读缓存接口，缓存未命中时回源数据库并回填 Redis
func (c *DrawController) GetDraw() {
	drawID := c.Ctx.Input.Param(":draw_id")
	if drawID == "" {
		c.CustomAbort(400, "draw_id is required")
		return
	}

	r := infrds.Client()
	if r == nil {
		c.CustomAbort(503, "redis unavailable")
		return
	}

	ctx := context.Background()

	var drawInfo map[string]any
	var drawResult map[string]any

	// 读取期号信息
	if bs, err := r.Get(ctx, infrds.DrawInfoKey(drawID)).Bytes(); err == nil {
		_ = json.Unmarshal(bs, &drawInfo)
	} else if err != goredis.Nil {
		// 非不存在错误，视为服务不可用
		c.CustomAbort(503, "redis error")
		return
	}

	// 读取开奖结果
	if bs, err := r.Get(ctx, infrds.DrawResultKey(drawID)).Bytes(); err == nil {
		_ = json.Unmarshal(bs, &drawResult)
	} else if err != goredis.Nil {
		c.CustomAbort(503, "redis error")
		return
	}

	if drawInfo == nil {
		// DB fallback：从数据库读取，并回填 Redis
		d, err := model.GetDraw(ctx, infmysql.SQLX(), drawID)
		if err != nil {
			c.CustomAbort(503, "db error")
			return
		}
		if d == nil {
			c.CustomAbort(404, "draw not found")
			return
		}
		drawInfo = map[string]any{
			"draw_id":        d.DrawID,
			"title":          d.Title,
			"status":         d.Status,
			"is_settled":     d.IsSettled,
			"bet_open_time":  d.BetOpenTime,
			"bet_close_time": d.BetCloseTime,
			"draw_time":      d.DrawTime,
		}
		// 开奖结果（如有）
		if drawResult == nil && d.Prize1 != "" {
			drawResult = map[string]any{
				"draw_id": d.DrawID,
				"prizes":  d.Prizes(),
			}
		}
		// 回填 Redis
		if b, e := json.Marshal(drawInfo); e == nil {
			_ = r.Set(ctx, infrds.DrawInfoKey(drawID), b, 20*time.Second).Err()
		}
		if drawResult != nil {
			if b, e := json.Marshal(drawResult); e == nil {
				_ = r.Set(ctx, infrds.DrawResultKey(drawID), b, 10*time.Minute).Err()
			}
		}
	}

	c.Data["json"] = map[string]any{
		"ok":          true,
		"draw_info":   drawInfo,
		"draw_result": drawResult,
	}
	_ = c.ServeJSON()
}

// ListOpen 列出当前可投注的期号：GET /api/draws/open
func (c *DrawController) ListOpen() {
	limit, _ := c.GetInt("limit", 20)
	traceID := helper.GetTraceID(c.Ctx)

	draws, err := model.ListOpenDraws(c.Ctx.Request.Context(), infmysql.SQLX(), limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	items := make([]map[string]any, 0, len(draws))
	for _, d := range draws {
		items = append(items, map[string]any{
			"draw_id":        d.DrawID,
			"title":          d.Title,
			"bet_open_time":  d.BetOpenTime,
			"bet_close_time": d.BetCloseTime,
			"draw_time":      d.DrawTime,
		})
	}
	response.Success(&c.Controller, map[string]interface{}{"draws": items}, traceID)
}

// operatorFrom 操作员标识：优先取 X-Operator 头（运营后台透传），缺省记 system
func operatorFrom(ctx *beegocontext.Context) string {
	if op := strings.TrimSpace(ctx.Input.Header("X-Operator")); op != "" {
		return op
	}
	return "system"
}
