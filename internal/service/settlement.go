package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"

	"github.com/ThalesMilho/projeto-web/common/constant"
	"github.com/ThalesMilho/projeto-web/internal/config"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	infrds "github.com/ThalesMilho/projeto-web/internal/infra/redis"
	"github.com/ThalesMilho/projeto-web/internal/metrics"
	"github.com/ThalesMilho/projeto-web/internal/model"
	"github.com/ThalesMilho/projeto-web/internal/rules"
	"github.com/ThalesMilho/projeto-web/internal/state"
)

type SettlementService interface {
	// CreateDraw 运营侧建期：落期号行与审计记录
	CreateDraw(ctx context.Context, in CreateDrawInput) error
	// EnterResults 录入五个奖位的开奖号码，期号进入结算中
	EnterResults(ctx context.Context, in ResultsInput) error
	// SettleDraw 结算一期：全量注单判奖、按账户聚合派彩、计佣、落结算记录。
	// 整期一个事务，任何硬错误整体回滚
	SettleDraw(ctx context.Context, drawID, operator, traceID string) error
}

type CreateDrawInput struct {
	DrawID       string
	Title        string
	BetOpenTime  int64 // 毫秒时间戳
	BetCloseTime int64
	DrawTime     int64
	Operator     string
	TraceID      string
}

type ResultsInput struct {
	DrawID   string
	Prizes   [5]string
	Operator string
	TraceID  string
}

type settlementService struct {
	rs *rules.Ruleset
}

func NewSettlementService(rs *rules.Ruleset) SettlementService { return &settlementService{rs: rs} }

var (
	ErrBadRequest            = errors.New("bad request")
	ErrConcurrentSettlement  = errors.New("settlement already running for this draw")
	ErrDrawNotSettling       = errors.New("draw has no results entered")
	ErrDrawAlreadySettled    = errors.New("draw already settled")
	ErrResultsAlreadyEntered = errors.New("results already entered")
	ErrDrawAlreadyExists     = errors.New("draw already exists")
)

// 每批加锁扫描的注单数，批内一次 CASE WHEN 批量落结果
const settleBatchDefault = 500

// 结算事务超时：大批量注单时留足时间，但仍要有界
const settleTxTimeout = 60 * time.Second

// CreateDraw 建期：唯一键冲突按参数错误返回，由运营侧换期号重试
func (s *settlementService) CreateDraw(ctx context.Context, in CreateDrawInput) error {
	if in.DrawID == "" || len(in.DrawID) > 64 {
		return ErrBadRequest
	}
	if in.BetOpenTime <= 0 || in.BetCloseTime <= in.BetOpenTime || in.DrawTime < in.BetCloseTime {
		return ErrBadRequest
	}

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	d := &model.Draw{
		DrawID:       in.DrawID,
		Title:        in.Title,
		Status:       1, // open
		BetOpenTime:  in.BetOpenTime,
		BetCloseTime: in.BetCloseTime,
		DrawTime:     in.DrawTime,
	}
	if err := d.Insert(ctx, tx); err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			return ErrDrawAlreadyExists
		}
		return err
	}

	aud := &model.DrawEventAudit{
		DrawID:    in.DrawID,
		EventType: 1, // draw_created
		PrevState: "",
		NextState: state.StateOpen,
		Operator:  in.Operator,
		Source:    "api",
		Payload: toJSON(map[string]any{
			"title":          in.Title,
			"bet_open_time":  in.BetOpenTime,
			"bet_close_time": in.BetCloseTime,
			"draw_time":      in.DrawTime,
		}),
		TraceID: in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	fmt.Printf("[Draw] 期号已创建: draw_id=%s, title=%s, operator=%s, trace_id=%s\n",
		in.DrawID, in.Title, in.Operator, in.TraceID)
	return nil
}

// EnterResults 录入开奖号码：open --settle_start--> settling
func (s *settlementService) EnterResults(ctx context.Context, in ResultsInput) error {
	if in.DrawID == "" {
		return ErrBadRequest
	}
	for i, p := range in.Prizes {
		if len(p) != 4 || !isFourDigits(p) {
			fmt.Printf("[Results] 开奖号码非法: draw_id=%s, prize%d=%q, trace_id=%s\n",
				in.DrawID, i+1, p, in.TraceID)
			return fmt.Errorf("prize %d must be a 4-digit string", i+1)
		}
	}

	fmt.Printf("[Results] 收到开奖号码: draw_id=%s, prizes=%v, operator=%s, trace_id=%s\n",
		in.DrawID, in.Prizes, in.Operator, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	draw, err := model.GetDrawForUpdate(ctx, tx, in.DrawID)
	if err != nil {
		return err
	}
	if draw == nil {
		return ErrDrawNotFound
	}
	if draw.Status != 1 {
		if draw.Status == 2 || draw.IsSettled == 1 {
			return ErrResultsAlreadyEntered
		}
		return ErrDrawNotOpen
	}

	// 状态机校验：open --settle_start--> settling
	next, err := state.NextState(drawCodeToState(draw.Status), state.EvtSettleStart)
	if err != nil {
		return err
	}

	if err := model.SetPrizes(ctx, tx, in.DrawID, in.Prizes); err != nil {
		return err
	}

	aud := &model.DrawEventAudit{
		DrawID:    in.DrawID,
		EventType: 2, // results_entered
		PrevState: state.StateOpen,
		NextState: next,
		Operator:  in.Operator,
		Source:    "api",
		Payload:   toJSON(map[string]any{"prizes": in.Prizes}),
		TraceID:   in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return err
	}

	if err := model.CreateOutbox(ctx, tx, "draw_results_entered", in.DrawID, map[string]any{
		"event":    "draw_results_entered",
		"draw_id":  in.DrawID,
		"prizes":   in.Prizes,
		"trace_id": in.TraceID,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	// 结果写 Redis，便于前台查询/回放
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(map[string]any{"draw_id": in.DrawID, "prizes": in.Prizes}); e == nil {
			_ = r.Set(ctx, infrds.DrawResultKey(in.DrawID), b, 10*time.Minute).Err()
		}
	}

	fmt.Printf("[Results] 开奖号码已录入: draw_id=%s, trace_id=%s\n", in.DrawID, in.TraceID)
	return nil
}

// SettleDraw 结算主流程
func (s *settlementService) SettleDraw(ctx context.Context, drawID, operator, traceID string) error {
	if drawID == "" {
		return ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	betsSettled := 0
	var totalPayout int64
	defer func() { metrics.RecordSettlement(resultLabel, betsSettled, totalPayout, start) }()

	fmt.Printf("[Settle] 收到结算请求: draw_id=%s, operator=%s, trace_id=%s\n", drawID, operator, traceID)

	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, settleTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// ========== 幂等性保护 #1: NOWAIT 抢期号锁 ==========
	// 同一期并发结算只允许一个事务进入，其余立即失败不排队
	draw, err := model.GetDrawForSettleNowait(txCtx, tx, drawID)
	if err != nil {
		if errors.Is(err, model.ErrDrawLocked) {
			fmt.Printf("[Settle] 期号已被其他结算事务锁定，跳过: draw_id=%s, trace_id=%s\n", drawID, traceID)
			resultLabel = "skipped_locked"
			return ErrConcurrentSettlement
		}
		return err
	}
	if draw == nil {
		return ErrDrawNotFound
	}

	// 已结算直接返回成功（幂等）
	if draw.IsSettled == 1 {
		fmt.Printf("[Settle] 该期已结算，跳过重复结算: draw_id=%s, trace_id=%s\n", drawID, traceID)
		resultLabel = "success_idempotent"
		return nil
	}
	if draw.Status != 2 {
		fmt.Printf("[Settle] 期号未录入开奖号码: status=%d, draw_id=%s, trace_id=%s\n",
			draw.Status, drawID, traceID)
		return ErrDrawNotSettling
	}

	// 状态机校验：settling --settle_done--> closed
	nextStr, err := state.NextState(drawCodeToState(draw.Status), state.EvtSettleDone)
	if err != nil {
		return err
	}

	// ========== 幂等性保护 #2: 结算记录唯一索引 ==========
	slog := &model.SettlementLog{DrawID: drawID, TraceID: traceID}
	dup, err := slog.Insert(txCtx, tx)
	if err != nil {
		return err
	}
	if dup {
		fmt.Printf("[Settle] 结算记录已存在，跳过重复结算: draw_id=%s, trace_id=%s\n", drawID, traceID)
		resultLabel = "success_idempotent"
		return nil
	}

	drawRes := rules.DrawResult{Prizes: draw.Prizes()}
	batchSize := config.Get().Settlement.BatchSize
	if batchSize <= 0 {
		batchSize = settleBatchDefault
	}

	// 按账户聚合：派彩每个赢家整期只入账一次
	payoutByAccount := make(map[int64]int64)
	stakeByAccount := make(map[int64]int64)
	winningTickets := make(map[int64][]string)
	var totalStake int64
	winners := 0

	after := ""
	for {
		rows, err := model.ListPendingByDrawBatch(txCtx, tx, drawID, after, batchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}

		outcomes := make([]model.BetOutcome, 0, len(rows))
		for _, row := range rows {
			var picks []string
			if err := json.Unmarshal([]byte(row.Picks), &picks); err != nil {
				// 注单 picks 损坏属于数据故障，整期回滚人工介入
				fmt.Printf("[Settle] 注单号码解析失败: ticket_no=%s, picks=%s, error=%v, trace_id=%s\n",
					row.TicketNo, row.Picks, err, traceID)
				return fmt.Errorf("corrupt picks on ticket %s: %w", row.TicketNo, err)
			}

			won, payoutCents, err := s.rs.SettleBet(row.ModalityCode,
				rules.BetInfo{Picks: picks, Placement: int(row.Placement)}, drawRes, row.AmountCents)
			if err != nil {
				// 判奖硬错误（未知玩法/赔率表缺失）：整期回滚
				fmt.Printf("[Settle] 判奖失败: ticket_no=%s, modality=%s, error=%v, trace_id=%s\n",
					row.TicketNo, row.ModalityCode, err, traceID)
				return fmt.Errorf("settle ticket %s: %w", row.TicketNo, err)
			}

			outcomes = append(outcomes, model.BetOutcome{TicketNo: row.TicketNo, Won: won, PayoutCents: payoutCents})
			totalStake += row.AmountCents
			stakeByAccount[row.AccountID] += row.AmountCents
			if won && payoutCents > 0 {
				payoutByAccount[row.AccountID] += payoutCents
				winningTickets[row.AccountID] = append(winningTickets[row.AccountID], row.TicketNo)
				totalPayout += payoutCents
				winners++
			}
		}

		if err := model.UpdateOutcomesBulk(txCtx, tx, outcomes); err != nil {
			return err
		}
		betsSettled += len(rows)
		after = rows[len(rows)-1].TicketNo
		if len(rows) < batchSize {
			break
		}
	}

	fmt.Printf("[Settle] 判奖完成: draw_id=%s, bets=%d, winning_tickets=%d, total_stake=%d, total_payout=%d, trace_id=%s\n",
		drawID, betsSettled, winners, totalStake, totalPayout, traceID)

	// 派彩：账户ID升序逐个加锁入账，每个赢家一条聚合流水
	settleRef := "SETTLE-" + drawID
	accountIDs := make([]int64, 0, len(payoutByAccount))
	for id := range payoutByAccount {
		accountIDs = append(accountIDs, id)
	}
	sort.Slice(accountIDs, func(i, j int) bool { return accountIDs[i] < accountIDs[j] })

	for _, accID := range accountIDs {
		amount := payoutByAccount[accID]
		remark := fmt.Sprintf("premio %s (%d bilhetes)", drawID, len(winningTickets[accID]))
		// 冻结账户照常派彩，钱是用户的
		if _, err := CreditTx(txCtx, tx, LedgerMove{
			AccountID:   accID,
			AmountCents: amount,
			EntryType:   constant.LedgerTypePayout,
			RelatedRef:  settleRef,
			DrawID:      drawID,
			Remark:      remark,
			TraceID:     traceID,
		}, true); err != nil {
			return err
		}
	}

	// 按净输计佣（trigger=2）：净输 = 本期下注 - 本期派彩
	if config.Get().Commission.Enabled {
		lossAccounts := make([]int64, 0, len(stakeByAccount))
		for id := range stakeByAccount {
			lossAccounts = append(lossAccounts, id)
		}
		sort.Slice(lossAccounts, func(i, j int) bool { return lossAccounts[i] < lossAccounts[j] })

		for _, accID := range lossAccounts {
			netLoss := stakeByAccount[accID] - payoutByAccount[accID]
			if netLoss <= 0 {
				continue
			}
			acc, err := model.GetAccountByID(txCtx, infmysql.SQLX(), accID)
			if err != nil {
				return err
			}
			if acc == nil {
				continue
			}
			if _, err := PayCommissionTx(txCtx, tx, acc, 2, netLoss, settleRef, drawID, traceID); err != nil {
				return err
			}
		}
	}

	// ========== 幂等性保护 #3: 标记已结算并关闭期号 ==========
	if err := model.MarkDrawSettled(txCtx, tx, drawID); err != nil {
		return err
	}
	if err := model.UpdateSettlementStats(txCtx, tx, drawID, betsSettled, len(accountIDs),
		totalStake, totalPayout, time.Since(start).Milliseconds()); err != nil {
		return err
	}

	// 审计：settling -> closed
	aud := &model.DrawEventAudit{
		DrawID:    drawID,
		EventType: 4, // settle_done
		PrevState: state.StateSettling,
		NextState: nextStr,
		Operator:  operator,
		Source:    "api",
		Payload: toJSON(map[string]any{
			"bets_settled": betsSettled,
			"winners":      len(accountIDs),
			"total_stake":  totalStake,
			"total_payout": totalPayout,
		}),
		TraceID: traceID,
	}
	if err := aud.Insert(txCtx, tx); err != nil {
		return err
	}

	// Outbox：结算完成事件
	if err := model.CreateOutbox(txCtx, tx, "draw_settled", drawID, map[string]any{
		"event":        "draw_settled",
		"draw_id":      drawID,
		"bets_settled": betsSettled,
		"winners":      len(accountIDs),
		"total_payout": totalPayout,
		"trace_id":     traceID,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Settle] 提交事务失败: draw_id=%s, error=%v, trace_id=%s\n", drawID, err, traceID)
		return err
	}

	// 结算结果写 Redis 缓存
	if r := infrds.Client(); r != nil {
		val := map[string]any{
			"draw_id":      drawID,
			"prizes":       draw.Prizes(),
			"is_settled":   1,
			"bets_settled": betsSettled,
			"winners":      len(accountIDs),
			"total_payout": totalPayout,
		}
		if b, e := json.Marshal(val); e == nil {
			_ = r.Set(ctx, infrds.DrawResultKey(drawID), b, 10*time.Minute).Err()
		}
	}

	resultLabel = "success"
	fmt.Printf("[Settle] 结算完成: draw_id=%s, bets=%d, winners=%d, total_payout=%d, elapsed_ms=%d, trace_id=%s\n",
		drawID, betsSettled, len(accountIDs), totalPayout, time.Since(start).Milliseconds(), traceID)
	return nil
}

// 约定的期号状态码映射：1=open, 2=settling, 3=closed
func drawCodeToState(c int8) string {
	switch c {
	case 1:
		return state.StateOpen
	case 2:
		return state.StateSettling
	case 3:
		return state.StateClosed
	default:
		return state.StateOpen
	}
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
