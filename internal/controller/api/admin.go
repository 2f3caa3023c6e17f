package api

import (
	"encoding/json"
	"errors"
	"strings"

	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/common/logger"
	helper "github.com/ThalesMilho/projeto-web/internal/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/common/response"
	"github.com/ThalesMilho/projeto-web/internal/config"
	"github.com/ThalesMilho/projeto-web/internal/gateway"
	"github.com/ThalesMilho/projeto-web/internal/rules"
	"github.com/ThalesMilho/projeto-web/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

// AdminController 运营侧管理接口，全部挂在 AdminAuthFilter 之后
type AdminController struct{ beego.Controller }

// 建期请求参数，时间为毫秒时间戳；
// 运营后台传字符串时间（圣保罗本地）时走 *_at 字段
type CreateDrawRequestParam struct {
	DrawId       string `json:"draw_id"` // 期号，如 PTM-2026-08-28-1420
	Title        string `json:"title"`
	BetOpenTime  int64  `json:"bet_open_time"`
	BetCloseTime int64  `json:"bet_close_time"`
	DrawTime     int64  `json:"draw_time"`
	BetOpenAt    string `json:"bet_open_at"`
	BetCloseAt   string `json:"bet_close_at"`
	DrawAt       string `json:"draw_at"`
}

// fillTimesFromStrings 字符串时间字段兜底填充毫秒时间戳字段
func (p *CreateDrawRequestParam) fillTimesFromStrings() {
	if p.BetOpenTime == 0 && p.BetOpenAt != "" {
		if t := chelper.StrToTime(p.BetOpenAt); !t.IsZero() {
			p.BetOpenTime = t.UnixMilli()
		}
	}
	if p.BetCloseTime == 0 && p.BetCloseAt != "" {
		if t := chelper.StrToTime(p.BetCloseAt); !t.IsZero() {
			p.BetCloseTime = t.UnixMilli()
		}
	}
	if p.DrawTime == 0 && p.DrawAt != "" {
		if t := chelper.StrToTime(p.DrawAt); !t.IsZero() {
			p.DrawTime = t.UnixMilli()
		}
	}
}

// CreateDraw 建期：POST /api/admin/draw
func (c *AdminController) CreateDraw() {
	traceID := helper.GetTraceID(c.Ctx)

	var p CreateDrawRequestParam
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &p); err != nil {
		response.BadRequest(&c.Controller, "invalid request", traceID)
		return
	}
	if strings.TrimSpace(p.DrawId) == "" || len(p.DrawId) > 64 || len(p.Title) > 128 {
		response.BadRequest(&c.Controller, "invalid draw_id or title", traceID)
		return
	}
	p.fillTimesFromStrings()

	svc := newSettlementService()
	if err := svc.CreateDraw(c.Ctx.Request.Context(), service.CreateDrawInput{
		DrawID:       strings.TrimSpace(p.DrawId),
		Title:        p.Title,
		BetOpenTime:  p.BetOpenTime,
		BetCloseTime: p.BetCloseTime,
		DrawTime:     p.DrawTime,
		Operator:     operatorFrom(c.Ctx),
		TraceID:      traceID,
	}); err != nil {
		if errors.Is(err, service.ErrDrawAlreadyExists) {
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
			return
		}
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid draw window", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"draw_id": strings.TrimSpace(p.DrawId)}, traceID)
}

// ApproveWithdraw 审批通过提现并提交网关出款：POST /api/admin/withdraw/approve
func (c *AdminController) ApproveWithdraw() {
	traceID := helper.GetTraceID(c.Ctx)

	externalID := strings.TrimSpace(c.GetString("external_id"))
	if externalID == "" {
		var p struct {
			ExternalId string `json:"external_id"`
		}
		_ = json.Unmarshal(c.Ctx.Input.RequestBody, &p)
		externalID = strings.TrimSpace(p.ExternalId)
	}
	if externalID == "" {
		response.BadRequest(&c.Controller, "external_id is required", traceID)
		return
	}

	svc := newPaymentService()
	out, err := svc.ApproveWithdraw(c.Ctx.Request.Context(), externalID, operatorFrom(c.Ctx), traceID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			response.NotFound(&c.Controller, "支付单不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrPaymentTerminal) {
			response.Conflict(&c.Controller, response.CodePaymentTerminal, traceID)
			return
		}
		if errors.Is(err, service.ErrWithdrawForbidden) {
			response.BadRequest(&c.Controller, "仅提现单可审批", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"external_id": out.ExternalID,
		"status":      out.Status,
	}, traceID)
}

// 取消提现请求参数
type CancelWithdrawRequestParam struct {
	ExternalId string `json:"external_id"`
	Reason     string `json:"reason"`
}

// CancelWithdraw 取消提现并退款：POST /api/admin/withdraw/cancel
// pending 单取消前必须先通过对账确认网关侧未出款
func (c *AdminController) CancelWithdraw() {
	traceID := helper.GetTraceID(c.Ctx)

	var p CancelWithdrawRequestParam
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &p); err != nil {
		response.BadRequest(&c.Controller, "invalid request", traceID)
		return
	}
	if strings.TrimSpace(p.ExternalId) == "" || strings.TrimSpace(p.Reason) == "" {
		response.BadRequest(&c.Controller, "external_id and reason are required", traceID)
		return
	}

	svc := newPaymentService()
	if err := svc.CancelWithdraw(c.Ctx.Request.Context(), strings.TrimSpace(p.ExternalId),
		operatorFrom(c.Ctx), p.Reason, traceID); err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			response.NotFound(&c.Controller, "支付单不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrPaymentTerminal) {
			response.Conflict(&c.Controller, response.CodePaymentTerminal, traceID)
			return
		}
		if errors.Is(err, service.ErrWithdrawForbidden) {
			response.BadRequest(&c.Controller, "仅提现单可取消", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}

// ReconcilePayment 手动触发单笔对账：POST /api/admin/payment/reconcile
func (c *AdminController) ReconcilePayment() {
	traceID := helper.GetTraceID(c.Ctx)

	externalID := strings.TrimSpace(c.GetString("external_id"))
	if externalID == "" {
		var p struct {
			ExternalId string `json:"external_id"`
		}
		_ = json.Unmarshal(c.Ctx.Input.RequestBody, &p)
		externalID = strings.TrimSpace(p.ExternalId)
	}
	if externalID == "" {
		response.BadRequest(&c.Controller, "external_id is required", traceID)
		return
	}

	svc := newPaymentService()
	if err := svc.ReconcilePayment(c.Ctx.Request.Context(), externalID, traceID); err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			response.NotFound(&c.Controller, "支付单不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}

// GatewayBalance 查询网关商户可用余额：GET /api/admin/gateway/balance
// 出款审批前运营核对头寸用
func (c *AdminController) GatewayBalance() {
	traceID := helper.GetTraceID(c.Ctx)

	balanceCents, err := gateway.NewClient(config.Get()).GetAvailableBalance()
	if err != nil {
		logger.Error("gateway balance query failed", zap.Error(err), zap.String("trace_id", traceID))
		response.InternalErrorWithMessage(&c.Controller, "网关余额查询失败", traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"available_cents": balanceCents,
		"available":       chelper.FormatCents(balanceCents),
	}, traceID)
}

// ReloadConfig 重新加载配置并整体替换玩法表：POST /api/admin/config/reload
// 替换是原子的：新玩法表构建失败时保留旧配置继续服务
func (c *AdminController) ReloadConfig() {
	traceID := helper.GetTraceID(c.Ctx)

	cfg, err := config.Load(c.Ctx.Request.Context())
	if err != nil {
		logger.Error("config reload failed", zap.Error(err), zap.String("trace_id", traceID))
		response.InternalErrorWithMessage(&c.Controller, "配置加载失败", traceID)
		return
	}

	rs, err := rules.NewRuleset(cfg)
	if err != nil {
		logger.Error("ruleset rebuild failed", zap.Error(err), zap.String("trace_id", traceID))
		response.InternalErrorWithMessage(&c.Controller, "玩法表构建失败", traceID)
		return
	}

	config.Set(cfg)
	rules.SetActive(rs)

	logger.Info("config reloaded",
		zap.Strings("modalities", rs.Codes()),
		zap.String("trace_id", traceID))
	response.Success(&c.Controller, map[string]interface{}{
		"modalities": rs.Codes(),
	}, traceID)
}
