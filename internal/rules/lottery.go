package rules

import "strings"

// LotteryIntersection 彩票类（quininha/seninha/lotinha）：
// 五个奖位出的 dezena 集合与押号集合求交，命中数达到门槛即中。
// 赔率不在这里：结算按 Hits 查玩法赔率表
type LotteryIntersection struct {
	MinHits int
}

func (l LotteryIntersection) Verify(bet BetInfo, draw DrawResult) (bool, error) {
	hits, err := l.countHits(bet, draw)
	if err != nil {
		return false, err
	}
	return hits >= l.MinHits, nil
}

func (l LotteryIntersection) PayoutDivisor(BetInfo) int64 { return 1 }

// Hits 命中数，赔率表取档用；Verify 已经校验过 picks
func (l LotteryIntersection) Hits(bet BetInfo, draw DrawResult) int {
	hits, _ := l.countHits(bet, draw)
	return hits
}

func (l LotteryIntersection) countHits(bet BetInfo, draw DrawResult) (int, error) {
	if len(bet.Picks) == 0 {
		return 0, ErrInvalidPick
	}
	picked := make(map[string]struct{}, len(bet.Picks))
	for _, p := range bet.Picks {
		p = strings.TrimSpace(p)
		if !isDigits(p) || len(p) > 2 {
			return 0, ErrInvalidPick
		}
		picked[suffixPadded(p, 2)] = struct{}{}
	}

	drawn := drawnDezenas(draw.Prizes[:])
	hits := 0
	for d := range picked {
		if _, ok := drawn[d]; ok {
			hits++
		}
	}
	return hits, nil
}
