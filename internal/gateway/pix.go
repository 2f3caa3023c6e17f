package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/config"
	"github.com/ThalesMilho/projeto-web/internal/metrics"
)

// PIX 网关客户端
// 约束：网关调用绝不在持有数据库行锁的事务内发起；
// 429/5xx 按退避重试，4xx 视为终态错误不重试
var (
	ErrGatewayUnavailable = errors.New("pix gateway unavailable")
	ErrGatewayRejected    = errors.New("pix gateway rejected request")
)

// Client PIX 网关接口
type Client interface {
	// CreateDeposit 创建充值收款（返回网关流水号与二维码文本）
	CreateDeposit(accountID int64, amountCents int64, payerDocument, traceID string) (*DepositResult, error)
	// CreatePayout 发起提现付款
	CreatePayout(externalID string, amountCents int64, pixKey, receiverDocument, traceID string) (*PayoutResult, error)
	// GetTransferStatus 查询单笔转账状态（对账用）
	GetTransferStatus(externalID string) (*TransferStatus, error)
	// GetAvailableBalance 查询商户可用余额（分）
	GetAvailableBalance() (int64, error)
}

type DepositResult struct {
	ExternalID string `json:"external_id"`
	QRCode     string `json:"qr_code"`
	ExpiresAt  int64  `json:"expires_at"`
}

type PayoutResult struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"` // accepted | rejected
	Reason     string `json:"reason"`
}

type TransferStatus struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"` // pending | paid | rejected | reversed
	PaidAt     int64  `json:"paid_at"`
	Reason     string `json:"reason"`
}

type pixClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	maxRetry  int
}

func NewClient(cfg *config.Config) Client {
	maxRetry := cfg.Gateway.MaxRetries
	if maxRetry <= 0 {
		maxRetry = 3
	}
	return &pixClient{
		baseURL:   cfg.Gateway.BaseURL,
		apiKey:    cfg.Gateway.APIKey,
		apiSecret: cfg.Gateway.APISecret,
		maxRetry:  maxRetry,
	}
}

// sign 请求签名：HMAC-SHA256(body, api_secret)
func (c *pixClient) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *pixClient) headers(body []byte) map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"X-Api-Key":    c.apiKey,
		"X-Signature":  c.sign(body),
	}
}

// doWithRetry 带退避重试的网关交换
// 网络错误/429/5xx 重试，指数退避 200ms 起步；4xx 直接返回
func (c *pixClient) doWithRetry(operation, method, uri string, body []byte, timeout time.Duration) ([]byte, error) {
	var lastErr error
	backoff := 200 * time.Millisecond

	for attempt := 0; attempt < c.maxRetry; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		respBody, status, err := chelper.HttpDoTimeoutForGateway(body, method, uri, c.headers(body), timeout)
		if err != nil {
			lastErr = err
			metrics.RecordGatewayCall(operation, "network_error")
			fmt.Printf("[Gateway] 网关请求失败(第%d次): op=%s, error=%v\n", attempt+1, operation, err)
			continue
		}

		switch {
		case status >= 200 && status < 300:
			metrics.RecordGatewayCall(operation, "success")
			return respBody, nil
		case status == 429 || status >= 500:
			lastErr = errors.Errorf("gateway returned %d", status)
			metrics.RecordGatewayCall(operation, fmt.Sprintf("http_%d", status))
			fmt.Printf("[Gateway] 网关返回可重试状态(第%d次): op=%s, status=%d\n", attempt+1, operation, status)
			continue
		default:
			// 4xx：终态拒绝，不重试
			metrics.RecordGatewayCall(operation, fmt.Sprintf("http_%d", status))
			return nil, errors.Wrapf(ErrGatewayRejected, "status=%d body=%s", status, string(respBody))
		}
	}

	return nil, errors.Wrapf(ErrGatewayUnavailable, "op=%s after %d attempts: %v", operation, c.maxRetry, lastErr)
}

func (c *pixClient) CreateDeposit(accountID int64, amountCents int64, payerDocument, traceID string) (*DepositResult, error) {
	body, err := json.Marshal(map[string]any{
		"account_id":     accountID,
		"amount_cents":   amountCents,
		"payer_document": payerDocument,
		"trace_id":       traceID,
	})
	if err != nil {
		return nil, err
	}

	respBody, err := c.doWithRetry("create_deposit", "POST", c.baseURL+"/v1/pix/deposits", body, chelper.GatewayTimeout)
	if err != nil {
		return nil, err
	}

	var out DepositResult
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "decode deposit response")
	}
	return &out, nil
}

func (c *pixClient) CreatePayout(externalID string, amountCents int64, pixKey, receiverDocument, traceID string) (*PayoutResult, error) {
	body, err := json.Marshal(map[string]any{
		"external_id":       externalID,
		"amount_cents":      amountCents,
		"pix_key":           pixKey,
		"receiver_document": receiverDocument,
		"trace_id":          traceID,
	})
	if err != nil {
		return nil, err
	}

	respBody, err := c.doWithRetry("create_payout", "POST", c.baseURL+"/v1/pix/payouts", body, chelper.GatewayTimeout)
	if err != nil {
		return nil, err
	}

	var out PayoutResult
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "decode payout response")
	}
	return &out, nil
}

func (c *pixClient) GetTransferStatus(externalID string) (*TransferStatus, error) {
	uri := c.baseURL + "/v1/pix/transfers/" + externalID
	respBody, err := c.doWithRetry("transfer_status", "GET", uri, nil, chelper.FastTimeout)
	if err != nil {
		return nil, err
	}

	var out TransferStatus
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "decode transfer status")
	}
	return &out, nil
}

func (c *pixClient) GetAvailableBalance() (int64, error) {
	respBody, err := c.doWithRetry("balance", "GET", c.baseURL+"/v1/merchant/balance", nil, chelper.FastTimeout)
	if err != nil {
		return 0, err
	}

	var out struct {
		AvailableCents int64 `json:"available_cents"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return 0, errors.Wrap(err, "decode balance response")
	}
	return out.AvailableCents, nil
}

// VerifyWebhookSignature 校验回调签名：HMAC-SHA256(body, webhook_secret)
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
