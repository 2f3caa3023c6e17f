package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/ThalesMilho/projeto-web/common/constant"
	chelper "github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/config"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"
	"github.com/ThalesMilho/projeto-web/internal/metrics"
	"github.com/ThalesMilho/projeto-web/internal/model"
	"github.com/ThalesMilho/projeto-web/internal/rules"
)

// BetInput 输入参数
// 所有字段均为必填（Placement 仅对四大经典玩法有意义，其余玩法忽略）
type BetInput struct {
	DrawID         string
	AccountID      int64
	ModalityCode   string   // 玩法编码，如 milhar / grupo / quininha
	Placement      int8     // 1=cabeça 2=1 ao 5
	Picks          []string // 号码/组号列表
	BetAmount      string   // 十进制字符串，最多两位小数
	IdempotencyKey string
	TraceID        string
}

type BetOutput struct {
	TicketNo     string
	RemainAmount string // 剩余金额
}

type BetService interface {
	PlaceBet(ctx context.Context, in BetInput) (*BetOutput, error)
}

type betService struct {
	rs *rules.Ruleset
}

func NewBetService(rs *rules.Ruleset) BetService { return &betService{rs: rs} }

const (
	// Redis 进行中锁 TTL：建议小于最短投注窗口，避免长时间阻塞重复请求
	idemLockTTL = 45 * time.Second
	// 结果缓存 TTL：用于重复请求直接返回第一次成功结果；应覆盖到大多数"短时重试"窗口
	idemResultTTL = 1 * time.Minute
)

// 默认事务超时时间，防止长事务占用资源影响并发（若上游已有 deadline，则沿用上游）
const defaultTxTimeout = 3 * time.Second

// Redis key 构造见 internal/infra/redis/keys.go
var (
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
	ErrDrawNotOpen       = errors.New("bet not allowed: draw not open")
	ErrBetWindowClosed   = errors.New("bet window closed")
	ErrDrawNotFound      = errors.New("draw not found")
	ErrPayoutCapExceeded = errors.New("potential payout exceeds cap")
)

// PlaceBet 处理下注主流程
func (s *betService) PlaceBet(ctx context.Context, in BetInput) (*BetOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordBet(result, in.ModalityCode, start) }()

	// ========== 投注金额解析和验证 ==========
	// 1. 解析金额字符串（最多两位小数，内部一律转分）
	// 2. 验证最小/最大投注限制
	// ========================================
	amountCents, err := chelper.ParseAmountToCents(strings.TrimSpace(in.BetAmount))
	if err != nil {
		fmt.Printf("[Bet] 无效的投注金额格式: bet_amount=%s, error=%v, trace_id=%s\n",
			in.BetAmount, err, in.TraceID)
		return nil, errors.New("invalid bet amount format")
	}
	if amountCents <= 0 {
		fmt.Printf("[Bet] 投注金额必须大于0: bet_amount=%s, trace_id=%s\n",
			in.BetAmount, in.TraceID)
		return nil, errors.New("bet amount must be positive")
	}
	if amountCents < s.rs.MinBetCents() {
		fmt.Printf("[Bet] 投注金额低于最小限制: amount_cents=%d, min=%d, trace_id=%s\n",
			amountCents, s.rs.MinBetCents(), in.TraceID)
		return nil, fmt.Errorf("bet amount below minimum limit: %s", chelper.FormatCents(s.rs.MinBetCents()))
	}
	if amountCents > s.rs.MaxBetCents() {
		fmt.Printf("[Bet] 投注金额超过最大限制: amount_cents=%d, max=%d, trace_id=%s\n",
			amountCents, s.rs.MaxBetCents(), in.TraceID)
		return nil, fmt.Errorf("bet amount exceeds maximum limit: %s", chelper.FormatCents(s.rs.MaxBetCents()))
	}

	// 玩法解析与号码校验（下注时即拒绝非法组合，结算阶段不再容错）
	modality, err := s.rs.Resolve(in.ModalityCode)
	if err != nil {
		fmt.Printf("[Bet] 未知玩法: modality=%s, trace_id=%s\n", in.ModalityCode, in.TraceID)
		return nil, err
	}
	if err := s.rs.ValidatePicks(in.ModalityCode, in.Picks); err != nil {
		fmt.Printf("[Bet] 号码校验失败: modality=%s, picks=%v, error=%v, trace_id=%s\n",
			in.ModalityCode, in.Picks, err, in.TraceID)
		return nil, err
	}
	if in.Placement != constant.PlacementHead && in.Placement != constant.PlacementOneFive {
		return nil, errors.New("invalid placement")
	}

	// 潜在派彩上限护栏：milhar 这类高倍玩法在入口处挡掉超出平台承受能力的单注
	if maxPayout := config.Get().Game.MaxPayoutCents; maxPayout > 0 && !modality.Multiplier.IsZero() {
		if potential := chelper.MulCentsFloor(amountCents, modality.Multiplier); potential > maxPayout {
			fmt.Printf("[Bet] 潜在派彩超上限: modality=%s, amount_cents=%d, potential=%d, cap=%d, trace_id=%s\n",
				in.ModalityCode, amountCents, potential, maxPayout, in.TraceID)
			return nil, ErrPayoutCapExceeded
		}
	}

	fmt.Printf("[Bet] 收到投注请求: draw_id=%s, account_id=%d, modality=%s, placement=%d, picks=%v, amount=%s, idem_key=%s, trace_id=%s\n",
		in.DrawID, in.AccountID, in.ModalityCode, in.Placement, in.Picks, in.BetAmount, in.IdempotencyKey, in.TraceID)

	// Redis 快路径：若已有结果缓存，直接返回
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
			var out BetOutput
			if json.Unmarshal(bs, &out) == nil {
				fmt.Printf("[Bet] Redis 缓存命中: idem_key=%s, ticket_no=%s, trace_id=%s\n",
					in.IdempotencyKey, out.TicketNo, in.TraceID)
				return &out, nil
			}
		}

		// 进行中锁，吸收瞬时重复；锁值唯一，防止误删其他请求的锁
		lockValue := uuid.New().String()
		lockKey := infrds.IdemLockKey(in.IdempotencyKey)

		ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
		if !ok {
			if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
				var out BetOutput
				if json.Unmarshal(bs, &out) == nil {
					fmt.Printf("[Bet] Redis 缓存命中（重复请求）: idem_key=%s, ticket_no=%s, trace_id=%s\n",
						in.IdempotencyKey, out.TicketNo, in.TraceID)
					return &out, nil
				}
			}
			fmt.Printf("[Bet] 重复请求进行中: idem_key=%s, trace_id=%s\n",
				in.IdempotencyKey, in.TraceID)
			return nil, ErrDuplicateInFlight
		}

		// Lua 脚本原子释放锁（仅当锁值匹配时删除）
		defer func() {
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			res, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result()
			if err != nil {
				fmt.Printf("[Bet] 释放分布式锁失败: idem_key=%s, error=%v, trace_id=%s\n",
					in.IdempotencyKey, err, in.TraceID)
			} else if res == int64(0) {
				fmt.Printf("[Bet] 分布式锁已被其他请求释放或过期: idem_key=%s, trace_id=%s\n",
					in.IdempotencyKey, in.TraceID)
			}
		}()
	}

	// 开启 MySQL 事务（带默认超时，防止长事务影响并发）。
	// 若上游 ctx 已设置 deadline，则沿用；否则使用默认 defaultTxTimeout。
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		fmt.Printf("[Bet] 开启事务失败: error=%v, draw_id=%s, trace_id=%s\n",
			err, in.DrawID, in.TraceID)
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 加锁顺序：先期号后账户，与结算路径保持一致
	draw, err := model.GetDrawForUpdate(txCtx, tx, in.DrawID)
	if err != nil {
		fmt.Printf("[Bet] 查询期号失败: error=%v, draw_id=%s, trace_id=%s\n",
			err, in.DrawID, in.TraceID)
		return nil, err
	}
	if draw == nil {
		return nil, ErrDrawNotFound
	}
	if draw.Status != 1 || draw.IsSettled == 1 {
		fmt.Printf("[Bet] 期号状态不允许投注: status=%d, is_settled=%d, draw_id=%s, trace_id=%s\n",
			draw.Status, draw.IsSettled, in.DrawID, in.TraceID)
		return nil, ErrDrawNotOpen
	}
	if !draw.AcceptsBetAt(time.Now()) {
		fmt.Printf("[Bet] 投注窗口已关闭: now=%d, open=%d, close=%d, draw_id=%s, trace_id=%s\n",
			time.Now().UnixMilli(), draw.BetOpenTime, draw.BetCloseTime, in.DrawID, in.TraceID)
		return nil, ErrBetWindowClosed
	}

	// 锁定账户（拿上线信息计佣用）
	account, err := model.GetAccountForUpdate(txCtx, tx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	ticketNo := generateTicketNo(in.AccountID)

	// 幂等：先占幂等键，ref 记录 ticket_no
	if err := (&model.IdempotencyKey{IdempotencyKey: in.IdempotencyKey, Purpose: "bet", Ref: ticketNo}).Insert(txCtx, tx); err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			fmt.Printf("[Bet] 幂等键冲突，尝试返回上次结果: idem_key=%s, trace_id=%s\n",
				in.IdempotencyKey, in.TraceID)
			_ = tx.Rollback()
			// Redis 先查
			if r := infrds.Client(); r != nil {
				if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
					var out BetOutput
					if json.Unmarshal(bs, &out) == nil {
						fmt.Printf("[Bet] 从 Redis 返回上次结果: ticket_no=%s, trace_id=%s\n",
							out.TicketNo, in.TraceID)
						return &out, nil
					}
				}
			}
			// DB 回源：根据幂等键查 ticket_no，再查账户余额
			ref, e1 := model.SelectRefByIdemKey(ctx, infmysql.SQLX(), in.IdempotencyKey)
			if e1 == nil && ref != "" {
				balance, e2 := model.GetAccountBalance(ctx, infmysql.SQLX(), in.AccountID)
				if e2 == nil {
					fmt.Printf("[Bet] 从数据库返回上次结果: ticket_no=%s, trace_id=%s\n",
						ref, in.TraceID)
					return &BetOutput{TicketNo: ref, RemainAmount: chelper.FormatCents(balance)}, nil
				}
			}
		}
		fmt.Printf("[Bet] 插入幂等键失败: error=%v, idem_key=%s, trace_id=%s\n",
			err, in.IdempotencyKey, in.TraceID)
		return nil, fmt.Errorf("idempotency conflict or insert failed: %w", err)
	}

	// 扣款（DebitTx 内部重复加锁同一账户在事务内无代价）
	debitEntry, err := DebitTx(txCtx, tx, LedgerMove{
		AccountID:   in.AccountID,
		AmountCents: amountCents,
		EntryType:   constant.LedgerTypeBet,
		RelatedRef:  ticketNo,
		DrawID:      in.DrawID,
		Remark:      "aposta " + in.ModalityCode,
		TraceID:     in.TraceID,
	})
	if err != nil {
		return nil, err
	}

	// 落注单（bet_status:2成功, settle_status:1待结算），赔率做快照
	picksJSON, err := json.Marshal(in.Picks)
	if err != nil {
		return nil, err
	}
	bet := &model.Bet{
		TicketNo:       ticketNo,
		DrawID:         in.DrawID,
		AccountID:      in.AccountID,
		Username:       account.Username,
		ModalityCode:   in.ModalityCode,
		Placement:      in.Placement,
		Picks:          string(picksJSON),
		AmountCents:    amountCents,
		Multiplier:     modality.Multiplier.String(),
		BetStatus:      2,
		SettleStatus:   1,
		Won:            0,
		PayoutCents:    0,
		Currency:       "BRL",
		IdempotencyKey: in.IdempotencyKey,
		TraceID:        in.TraceID,
	}
	if err := bet.Insert(txCtx, tx); err != nil {
		fmt.Printf("[Bet] 创建注单失败: error=%v, ticket_no=%s, trace_id=%s\n",
			err, ticketNo, in.TraceID)
		return nil, err
	}

	// 按下注金额计佣（trigger=1）
	if _, err := PayCommissionTx(txCtx, tx, account, 1, amountCents, ticketNo, in.DrawID, in.TraceID); err != nil {
		return nil, err
	}

	// Outbox 消息（异步）
	payload := map[string]any{
		"event":        "bet_placed",
		"ticket_no":    ticketNo,
		"draw_id":      in.DrawID,
		"account_id":   in.AccountID,
		"modality":     in.ModalityCode,
		"amount_cents": amountCents,
	}
	if err := model.CreateOutbox(txCtx, tx, "bet_placed", ticketNo, payload); err != nil {
		fmt.Printf("[Bet] 写入 Outbox 失败: error=%v, ticket_no=%s, trace_id=%s\n",
			err, ticketNo, in.TraceID)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Bet] 提交事务失败: error=%v, ticket_no=%s, trace_id=%s\n",
			err, ticketNo, in.TraceID)
		return nil, err
	}

	result = "success"
	metrics.RecordStake(in.ModalityCode, amountCents)
	out := &BetOutput{TicketNo: ticketNo, RemainAmount: chelper.FormatCents(debitEntry.AfterCents)}

	// 写入 Redis 结果缓存（降级容错）
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.IdemResultKey(in.IdempotencyKey), b, idemResultTTL).Err()
		}
	}

	return out, nil
}

// generateTicketNo 生成可读的注单号
// 格式：JB{YYYYMMDD}{HHmmss}{账户ID后4位}{随机3位十六进制}
// 示例：JB202608271430251001F3A
// 可读、按时间有序，时间 + 账户 + 随机数保证唯一性
func generateTicketNo(accountID int64) string {
	now := time.Now()
	dateTime := now.Format("20060102150405")
	accSuffix := fmt.Sprintf("%04d", accountID%10000)
	randomBytes := make([]byte, 2)
	rand.Read(randomBytes)
	randomHex := strings.ToUpper(hex.EncodeToString(randomBytes)[:3])

	return fmt.Sprintf("JB%s%s%s", dateTime, accSuffix, randomHex)
}
