package rules

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ThalesMilho/projeto-web/common/constant"
	"github.com/ThalesMilho/projeto-web/common/helper"
	"github.com/ThalesMilho/projeto-web/internal/config"
)

// 进程级当前玩法表。配置热更时由 watcher 整体替换，读方无锁
var active atomic.Pointer[Ruleset]

// SetActive 替换当前玩法表
func SetActive(rs *Ruleset) { active.Store(rs) }

// Active 返回当前玩法表，启动完成前为 nil
func Active() *Ruleset { return active.Load() }

// Ruleset 玩法表：配置加载时一次性构建，编码 -> 策略 + 赔率。
// 运行期只读，配置热更时整体换新实例

type Modality struct {
	Code       string
	Strategy   Strategy
	Multiplier decimal.Decimal
	// 彩票类按命中数取档，键为命中数
	PayoutTable map[int]decimal.Decimal
	MinHits     int
	MinPicks    int // 最少押几个号
	PickLen     int // 每个号几位数字，0 表示组号(1..25)
	Enabled     bool
}

type Ruleset struct {
	mods           map[string]*Modality
	maxPayoutCents int64
	minBetCents    int64
	maxBetCents    int64
}

// 内置默认赔率表，配置缺省时生效
type defaultSpec struct {
	code     string
	mult     string
	minHits  int
	minPicks int
	pickLen  int
	table    map[int]string
}

var defaultModalities = []defaultSpec{
	{code: constant.ModalityGrupo, mult: "18", minPicks: 1, pickLen: 0},
	{code: constant.ModalityDezena, mult: "60", minPicks: 1, pickLen: 2},
	{code: constant.ModalityCentena, mult: "600", minPicks: 1, pickLen: 3},
	{code: constant.ModalityMilhar, mult: "4000", minPicks: 1, pickLen: 4},
	// 倒置类：基准赔率按对应精确玩法，派彩时除以去重排列数
	{code: constant.ModalityMilharInvertida, mult: "4000", minPicks: 1, pickLen: 4},
	{code: constant.ModalityCentenaInvertida, mult: "600", minPicks: 1, pickLen: 3},
	{code: constant.ModalityDuqueDezena, mult: "300", minPicks: 2, pickLen: 2},
	{code: constant.ModalityTernoDezena, mult: "3000", minPicks: 3, pickLen: 2},
	{code: constant.ModalityDuqueGrupo, mult: "18.75", minPicks: 2, pickLen: 0},
	{code: constant.ModalityTernoGrupo, mult: "150", minPicks: 3, pickLen: 0},
	{code: constant.ModalityQuadraGrupo, mult: "1000", minPicks: 4, pickLen: 0},
	{code: constant.ModalityQuinaGrupo, mult: "5000", minPicks: 5, pickLen: 0},
	{code: constant.ModalityQuininha, minHits: 4, minPicks: 5, pickLen: 2,
		table: map[int]string{4: "120", 5: "2000"}},
	{code: constant.ModalitySeninha, minHits: 6, minPicks: 6, pickLen: 2,
		table: map[int]string{6: "10000"}},
	{code: constant.ModalityLotinha, minHits: 5, minPicks: 10, pickLen: 2,
		table: map[int]string{5: "500"}},
}

// strategyFor 编码 -> 策略，加载期解析一次，运行期没有字符串判断
func strategyFor(code string, minHits int) (Strategy, error) {
	switch code {
	case constant.ModalityGrupo:
		return GroupMatch{}, nil
	case constant.ModalityDezena:
		return ExactSuffix{Digits: 2}, nil
	case constant.ModalityCentena:
		return ExactSuffix{Digits: 3}, nil
	case constant.ModalityMilhar:
		return ExactSuffix{Digits: 4}, nil
	case constant.ModalityMilharInvertida:
		return Permutation{Digits: 4}, nil
	case constant.ModalityCentenaInvertida:
		return Permutation{Digits: 3}, nil
	case constant.ModalityDuqueDezena:
		return CombinedDezenas{Need: 2}, nil
	case constant.ModalityTernoDezena:
		return CombinedDezenas{Need: 3}, nil
	case constant.ModalityDuqueGrupo:
		return CombinedGroups{Need: 2}, nil
	case constant.ModalityTernoGrupo:
		return CombinedGroups{Need: 3}, nil
	case constant.ModalityQuadraGrupo:
		return CombinedGroups{Need: 4}, nil
	case constant.ModalityQuinaGrupo:
		return CombinedGroups{Need: 5}, nil
	case constant.ModalityQuininha, constant.ModalitySeninha, constant.ModalityLotinha:
		return LotteryIntersection{MinHits: minHits}, nil
	}
	return nil, errors.Wrap(ErrUnresolvedModality, code)
}

// NewRuleset 从配置构建玩法表。配置里出现未知编码直接报错，
// 宁可启动失败也不让一个玩法悄悄落空
func NewRuleset(cfg *config.Config) (*Ruleset, error) {
	rs := &Ruleset{
		mods: make(map[string]*Modality, len(defaultModalities)),
	}

	for _, d := range defaultModalities {
		m := &Modality{
			Code:     d.code,
			MinHits:  d.minHits,
			MinPicks: d.minPicks,
			PickLen:  d.pickLen,
			Enabled:  true,
		}
		if d.mult != "" {
			m.Multiplier = decimal.RequireFromString(d.mult)
		}
		if d.table != nil {
			m.PayoutTable = make(map[int]decimal.Decimal, len(d.table))
			for hits, v := range d.table {
				m.PayoutTable[hits] = decimal.RequireFromString(v)
			}
		}
		rs.mods[d.code] = m
	}

	if cfg != nil {
		for _, mc := range cfg.Game.Modalities {
			code := strings.ToUpper(strings.TrimSpace(mc.Code))
			m, ok := rs.mods[code]
			if !ok {
				return nil, errors.Wrapf(ErrUnresolvedModality, "config modality %q", mc.Code)
			}
			if mc.Multiplier != "" {
				mult, err := decimal.NewFromString(mc.Multiplier)
				if err != nil {
					return nil, errors.Wrapf(err, "modality %s multiplier", code)
				}
				m.Multiplier = mult
			}
			if mc.MinHits > 0 {
				m.MinHits = mc.MinHits
			}
			if mc.PickCount > 0 {
				m.MinPicks = mc.PickCount
			}
			if len(mc.PayoutTable) > 0 {
				table := make(map[int]decimal.Decimal, len(mc.PayoutTable))
				for k, v := range mc.PayoutTable {
					hits, err := strconv.Atoi(k)
					if err != nil || hits <= 0 {
						return nil, errors.Errorf("modality %s payout table key %q", code, k)
					}
					mult, err := decimal.NewFromString(v)
					if err != nil {
						return nil, errors.Wrapf(err, "modality %s payout table value %q", code, v)
					}
					table[hits] = mult
				}
				m.PayoutTable = table
			}
			if mc.Enabled != nil {
				m.Enabled = *mc.Enabled
			}
		}
		rs.maxPayoutCents = cfg.Game.MaxPayoutCents
		rs.minBetCents = cfg.Game.BetMinCents
		rs.maxBetCents = cfg.Game.BetMaxCents
	}

	// 策略在加载期绑定，MinHits 覆盖后重建彩票策略
	for code, m := range rs.mods {
		strat, err := strategyFor(code, m.MinHits)
		if err != nil {
			return nil, err
		}
		m.Strategy = strat
	}

	return rs, nil
}

// Resolve 编码查玩法，查不到是硬错误，绝不默认判输
func (r *Ruleset) Resolve(code string) (*Modality, error) {
	m, ok := r.mods[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, errors.Wrap(ErrUnresolvedModality, code)
	}
	return m, nil
}

// Codes 全部玩法编码，排序稳定，给接口层报玩法列表用
func (r *Ruleset) Codes() []string {
	out := make([]string, 0, len(r.mods))
	for c := range r.mods {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (r *Ruleset) MinBetCents() int64 { return r.minBetCents }
func (r *Ruleset) MaxBetCents() int64 { return r.maxBetCents }

// ValidatePicks 下注前校验号码格式，格式错在下单时就挡掉，
// 不能等到结算再发现
func (r *Ruleset) ValidatePicks(code string, picks []string) error {
	m, err := r.Resolve(code)
	if err != nil {
		return err
	}
	// 停售玩法拒新注；已受理的注单照常结算
	if !m.Enabled {
		return errors.Wrapf(ErrUnresolvedModality, "%s is disabled", m.Code)
	}
	if len(picks) < m.MinPicks {
		return errors.Wrapf(ErrInvalidPick, "%s requires at least %d picks", m.Code, m.MinPicks)
	}
	for _, p := range picks {
		p = strings.TrimSpace(p)
		if !isDigits(p) {
			return errors.Wrapf(ErrInvalidPick, "pick %q", p)
		}
		if m.PickLen == 0 {
			// 组号 1..25
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 || n > 25 {
				return errors.Wrapf(ErrInvalidPick, "group pick %q", p)
			}
			continue
		}
		if len(p) > m.PickLen {
			return errors.Wrapf(ErrInvalidPick, "pick %q exceeds %d digits", p, m.PickLen)
		}
	}
	return nil
}

// SettleBet 结算入口：判输赢并算派彩（分）。
// 派彩 = floor(amount × 赔率 ÷ 除数)，一律向下取整。
// 彩票类赔率按命中数取档，取不到精确档位就向下取最近的档
func (r *Ruleset) SettleBet(code string, bet BetInfo, draw DrawResult, amountCents int64) (bool, int64, error) {
	m, err := r.Resolve(code)
	if err != nil {
		return false, 0, err
	}

	won, err := m.Strategy.Verify(bet, draw)
	if err != nil {
		return false, 0, err
	}
	if !won {
		return false, 0, nil
	}

	mult := m.Multiplier
	if len(m.PayoutTable) > 0 {
		counter, ok := m.Strategy.(HitCounter)
		if !ok {
			return false, 0, errors.Errorf("modality %s has payout table but strategy counts no hits", m.Code)
		}
		hits := counter.Hits(bet, draw)
		mult = lookupPayoutTier(m.PayoutTable, hits)
		if mult.IsZero() {
			// 中了门槛但表里没有档位，配置残缺，硬错误
			return false, 0, errors.Errorf("modality %s payout table has no tier for %d hits", m.Code, hits)
		}
	}

	payout := helper.MulCentsDivFloor(amountCents, mult, m.Strategy.PayoutDivisor(bet))
	if r.maxPayoutCents > 0 && payout > r.maxPayoutCents {
		payout = r.maxPayoutCents
	}
	return true, payout, nil
}

// lookupPayoutTier 精确命中档位优先，否则取 ≤hits 的最大档
func lookupPayoutTier(table map[int]decimal.Decimal, hits int) decimal.Decimal {
	if mult, ok := table[hits]; ok {
		return mult
	}
	best := 0
	for tier := range table {
		if tier <= hits && tier > best {
			best = tier
		}
	}
	if best == 0 {
		return decimal.Zero
	}
	return table[best]
}
