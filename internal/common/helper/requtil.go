package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"

	"github.com/ThalesMilho/projeto-web/common/logger"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 金额格式校验：非负，最多两位小数（预编译正则）
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,2})?$`)

// IsMoneyFormat 判断金额格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return logger.GetTraceID(ctx.Request.Context())
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// BetParsed 为解析后的投注入参（与控制器/服务层解耦）
type BetParsed struct {
	DrawId         string   `json:"draw_id"`
	AccountId      int64    `json:"account_id"`
	Modality       string   `json:"modality"`
	Placement      int      `json:"placement"` // 1=cabeça 2=1 ao 5
	Picks          []string `json:"picks"`
	BetAmount      string   `json:"bet_amount"`
	IdempotencyKey string   `json:"idempotency_key"`
}

// ParseBetFromJSON 解析 JSON 到 BetParsed。失败返回 false 与错误消息。
func ParseBetFromJSON(r io.Reader) (BetParsed, bool, string) {
	var out BetParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return BetParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParseBetFromForm 从表单读取字段并做强校验，返回 BetParsed。失败返回 false 与可读错误信息。
// picks 表单下以逗号分隔传入
func ParseBetFromForm(ctx *beegocontext.Context) (BetParsed, bool, string) {
	var out BetParsed
	out.DrawId = strings.TrimSpace(ctx.Input.Query("draw_id"))
	out.Modality = strings.TrimSpace(ctx.Input.Query("modality"))
	if out.DrawId == "" || out.Modality == "" {
		return BetParsed{}, false, "missing required fields: draw_id/modality"
	}

	accStr := strings.TrimSpace(ctx.Input.Query("account_id"))
	if accStr == "" {
		return BetParsed{}, false, "account_id required"
	}
	a64, err := strconv.ParseInt(accStr, 10, 64)
	if err != nil {
		return BetParsed{}, false, "account_id must be integer"
	}
	out.AccountId = a64

	out.BetAmount = strings.TrimSpace(ctx.Input.Query("bet_amount"))
	if out.BetAmount == "" || !IsMoneyFormat(out.BetAmount) {
		return BetParsed{}, false, "bet_amount must be numeric with up to 2 decimals"
	}

	plStr := strings.TrimSpace(ctx.Input.Query("placement"))
	if plStr == "" {
		out.Placement = 1 // 默认只押头奖
	} else {
		pn, err := strconv.Atoi(plStr)
		if err != nil || (pn != 1 && pn != 2) {
			return BetParsed{}, false, "placement must be 1|2"
		}
		out.Placement = pn
	}

	picksStr := strings.TrimSpace(ctx.Input.Query("picks"))
	if picksStr == "" {
		return BetParsed{}, false, "picks required"
	}
	for _, p := range strings.Split(picksStr, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out.Picks = append(out.Picks, p)
		}
	}

	out.IdempotencyKey = strings.TrimSpace(ctx.Input.Query("idempotency_key"))
	if out.IdempotencyKey == "" {
		return BetParsed{}, false, "idempotency_key required"
	}

	return out, true, ""
}

// ValidateBet 对通用字段做二次校验（适用于 JSON 与 FORM）。失败返回 false 与错误消息。
func ValidateBet(in *BetParsed) (bool, string) {
	if in.DrawId == "" || in.AccountId <= 0 || in.Modality == "" ||
		strings.TrimSpace(in.BetAmount) == "" || len(in.Picks) == 0 || in.IdempotencyKey == "" {
		return false, "missing or invalid fields"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.DrawId) > 64 || len(in.Modality) > 32 || len(in.IdempotencyKey) > 64 || len(in.BetAmount) > 32 {
		return false, "invalid request"
	}
	if len(in.Picks) > 64 {
		return false, "too many picks"
	}
	for _, p := range in.Picks {
		if len(p) == 0 || len(p) > 8 {
			return false, "invalid pick"
		}
	}
	if in.Placement == 0 {
		in.Placement = 1
	}
	if in.Placement != 1 && in.Placement != 2 {
		return false, "placement must be 1|2"
	}
	if !IsMoneyFormat(in.BetAmount) {
		return false, "bet_amount must be numeric with up to 2 decimals"
	}
	return true, ""
}

// ParseAndValidateBet 按 Content-Type 自动解析并做统一校验
func ParseAndValidateBet(ctx *beegocontext.Context) (BetParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseBetFromJSON, ParseBetFromForm)
	if !ok {
		return BetParsed{}, false, msg
	}
	if ok, msg := ValidateBet(&out); !ok {
		return BetParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Results helpers --------

var prizeRe = regexp.MustCompile(`^\d{4}$`)

// ResultsParsed 开奖号码录入入参：五个奖位各一个四位号码
type ResultsParsed struct {
	DrawId string   `json:"draw_id"`
	Prizes []string `json:"prizes"`
}

func ParseResultsFromJSON(r io.Reader) (ResultsParsed, bool, string) {
	var out ResultsParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return ResultsParsed{}, false, "invalid request"
	}
	return out, true, ""
}

// ParseResultsFromForm 表单下 prizes 以逗号分隔传入
func ParseResultsFromForm(ctx *beegocontext.Context) (ResultsParsed, bool, string) {
	var out ResultsParsed
	out.DrawId = strings.TrimSpace(ctx.Input.Query("draw_id"))
	prizesStr := strings.TrimSpace(ctx.Input.Query("prizes"))
	for _, p := range strings.Split(prizesStr, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out.Prizes = append(out.Prizes, p)
		}
	}
	return out, true, ""
}

func ValidateResults(in *ResultsParsed) (bool, string) {
	if strings.TrimSpace(in.DrawId) == "" || len(in.DrawId) > 64 {
		return false, "invalid request"
	}
	if len(in.Prizes) != 5 {
		return false, "prizes must contain exactly 5 numbers"
	}
	for i, p := range in.Prizes {
		if !prizeRe.MatchString(p) {
			return false, fmt.Sprintf("prize %d must be a 4-digit number", i+1)
		}
	}
	return true, ""
}

// ParseAndValidateResults 按 Content-Type 自动解析并校验
func ParseAndValidateResults(ctx *beegocontext.Context) (ResultsParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseResultsFromJSON, ParseResultsFromForm)
	if !ok {
		return ResultsParsed{}, false, msg
	}
	if ok, msg := ValidateResults(&out); !ok {
		return ResultsParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Payment helpers --------

// PaymentParsed 充值/提现入参（pix_key 仅提现必填）
type PaymentParsed struct {
	AccountId int64  `json:"account_id"`
	Amount    string `json:"amount"`
	PixKey    string `json:"pix_key"`
}

func ParsePaymentFromJSON(r io.Reader) (PaymentParsed, bool, string) {
	var out PaymentParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return PaymentParsed{}, false, "invalid request"
	}
	return out, true, ""
}

func ParsePaymentFromForm(ctx *beegocontext.Context) (PaymentParsed, bool, string) {
	var out PaymentParsed
	accStr := strings.TrimSpace(ctx.Input.Query("account_id"))
	if n, err := strconv.ParseInt(accStr, 10, 64); err == nil {
		out.AccountId = n
	}
	out.Amount = strings.TrimSpace(ctx.Input.Query("amount"))
	out.PixKey = strings.TrimSpace(ctx.Input.Query("pix_key"))
	return out, true, ""
}

func ValidatePayment(in *PaymentParsed, requirePixKey bool) (bool, string) {
	if in.AccountId <= 0 {
		return false, "account_id required"
	}
	if in.Amount == "" || len(in.Amount) > 32 || !IsMoneyFormat(in.Amount) {
		return false, "amount must be numeric with up to 2 decimals"
	}
	if requirePixKey && strings.TrimSpace(in.PixKey) == "" {
		return false, "pix_key required"
	}
	if len(in.PixKey) > 140 {
		return false, "invalid pix_key"
	}
	return true, ""
}

// ParseAndValidatePayment 按 Content-Type 自动解析并校验
func ParseAndValidatePayment(ctx *beegocontext.Context, requirePixKey bool) (PaymentParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParsePaymentFromJSON, ParsePaymentFromForm)
	if !ok {
		return PaymentParsed{}, false, msg
	}
	if ok, msg := ValidatePayment(&out, requirePixKey); !ok {
		return PaymentParsed{}, false, msg
	}
	return out, true, ""
}
