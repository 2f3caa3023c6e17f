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
	"github.com/ThalesMilho/projeto-web/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

var newPaymentService = func() service.PaymentService {
	return service.NewPaymentService(gateway.NewClient(config.Get()))
}

// PaymentController 充值/提现接口与网关回调入口
type PaymentController struct{ beego.Controller }

// Deposit 发起充值：POST /api/payment/deposit
// 返回网关收款码，入账在回调确认后发生
func (c *PaymentController) Deposit() {
	pp, ok, msg := helper.ParseAndValidatePayment(c.Ctx, false)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}

	svc := newPaymentService()
	traceID := helper.GetTraceID(c.Ctx)

	out, err := svc.RequestDeposit(c.Ctx.Request.Context(), service.DepositInput{
		AccountID: pp.AccountId,
		Amount:    pp.Amount,
		TraceID:   traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.NotFound(&c.Controller, "账户不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			response.BadRequest(&c.Controller, "账户状态异常", traceID)
			return
		}
		if errors.Is(err, gateway.ErrGatewayRejected) {
			response.BadRequest(&c.Controller, "支付网关拒绝了本次请求", traceID)
			return
		}
		if strings.Contains(err.Error(), "invalid deposit amount") {
			response.BadRequest(&c.Controller, err.Error(), traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"external_id": out.ExternalID,
		"qr_code":     out.QRCode,
		"expires_at":  out.ExpiresAt,
	}, traceID)
}

// Withdraw 发起提现：POST /api/payment/withdraw
// 同步扣款冻结并落单，单据停在 created 等运营审批
func (c *PaymentController) Withdraw() {
	pp, ok, msg := helper.ParseAndValidatePayment(c.Ctx, true)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}

	svc := newPaymentService()
	traceID := helper.GetTraceID(c.Ctx)

	out, err := svc.RequestWithdraw(c.Ctx.Request.Context(), service.WithdrawInput{
		AccountID: pp.AccountId,
		Amount:    pp.Amount,
		PixKey:    pp.PixKey,
		TraceID:   traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInsufficientFunds) {
			response.Error(&c.Controller, 409, response.CodeInsufficientBalance, traceID)
			return
		}
		if errors.Is(err, service.ErrAccountNotFound) {
			response.NotFound(&c.Controller, "账户不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			response.BadRequest(&c.Controller, "账户状态异常", traceID)
			return
		}
		errMsg := err.Error()
		if strings.Contains(errMsg, "invalid withdraw amount") ||
			strings.Contains(errMsg, "pix key required") {
			response.BadRequest(&c.Controller, errMsg, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"external_id":   out.ExternalID,
		"status":        out.Status,
		"remain_amount": out.RemainAmount,
	}, traceID)
}

// webhookPayload 网关回调报文
type webhookPayload struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"` // paid | rejected | reversed
	ExternalID string `json:"external_id"`
}

// Webhook 网关回调入口：POST /api/webhook/payment
// 接入层完成来源校验（IP 白名单 + HMAC-SHA256 签名），幂等由 service 层保证。
// 回调处理失败返回 5xx 让网关按自身策略重试。
func (c *PaymentController) Webhook() {
	traceID := helper.GetTraceID(c.Ctx)
	cfg := config.Get()
	sourceIP := chelper.ClientIP(c.Ctx.Request)

	// 来源 IP 白名单（空列表表示不校验）
	if cfg != nil && len(cfg.Gateway.AllowedIPs) > 0 && !chelper.IpInList(sourceIP, cfg.Gateway.AllowedIPs) {
		logger.Warn("webhook from unexpected source",
			zap.String("source_ip", sourceIP),
			zap.String("trace_id", traceID))
		response.Error(&c.Controller, 403, response.CodeIPNotAllowed, traceID)
		return
	}

	body := c.Ctx.Input.RequestBody

	// 签名校验
	signature := strings.TrimSpace(c.Ctx.Input.Header("X-Signature"))
	if cfg == nil || !gateway.VerifyWebhookSignature(body, signature, cfg.Gateway.WebhookSecret) {
		logger.Warn("webhook signature mismatch",
			zap.String("source_ip", sourceIP),
			zap.String("trace_id", traceID))
		response.Error(&c.Controller, 403, response.CodeInvalidSignature, traceID)
		return
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		response.BadRequest(&c.Controller, "invalid payload", traceID)
		return
	}
	if p.EventID == "" || p.ExternalID == "" || p.EventType == "" {
		response.BadRequest(&c.Controller, "missing event fields", traceID)
		return
	}

	svc := newPaymentService()
	err := svc.HandleWebhook(c.Ctx.Request.Context(), service.WebhookInput{
		EventID:    p.EventID,
		ExternalID: p.ExternalID,
		EventType:  p.EventType,
		RawPayload: string(body),
		SourceIP:   sourceIP,
		TraceID:    traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownEvent) {
			response.BadRequest(&c.Controller, "unknown event type", traceID)
			return
		}
		if errors.Is(err, service.ErrPaymentNotFound) {
			response.NotFound(&c.Controller, "支付单不存在", traceID)
			return
		}
		// 终态后的重复回调不算失败，回 200 避免网关无谓重试
		if errors.Is(err, service.ErrPaymentTerminal) {
			response.Success(&c.Controller, map[string]interface{}{"status": "already_processed"}, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{"status": "processed"}, traceID)
}
