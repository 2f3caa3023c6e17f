package rules

import (
	"strconv"
	"strings"
)

// CombinedGroups 组合组玩法：duque(2)/terno(3)/quadra(4)/quina(5) de grupo。
// 规则固定核对五个奖位全部，押中的组数够 Need 即中
type CombinedGroups struct {
	Need int
}

func (c CombinedGroups) Verify(bet BetInfo, draw DrawResult) (bool, error) {
	if len(bet.Picks) < c.Need {
		return false, ErrInvalidPick
	}
	picked := make(map[int]struct{}, len(bet.Picks))
	for _, p := range bet.Picks {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 || n > 25 {
			return false, ErrInvalidPick
		}
		picked[n] = struct{}{}
	}
	// 重复组号凑不够数
	if len(picked) < c.Need {
		return false, ErrInvalidPick
	}

	drawn := drawnGroups(draw.Prizes[:])
	hits := 0
	for g := range picked {
		if _, ok := drawn[g]; ok {
			hits++
		}
	}
	return hits >= c.Need, nil
}

func (CombinedGroups) PayoutDivisor(BetInfo) int64 { return 1 }

// CombinedDezenas 组合十位玩法：duque(2)/terno(3) de dezena。
// 同组合组，集合换成五个奖位的末两位
type CombinedDezenas struct {
	Need int
}

func (c CombinedDezenas) Verify(bet BetInfo, draw DrawResult) (bool, error) {
	if len(bet.Picks) < c.Need {
		return false, ErrInvalidPick
	}
	picked := make(map[string]struct{}, len(bet.Picks))
	for _, p := range bet.Picks {
		p = strings.TrimSpace(p)
		if !isDigits(p) || len(p) > 2 {
			return false, ErrInvalidPick
		}
		picked[suffixPadded(p, 2)] = struct{}{}
	}
	if len(picked) < c.Need {
		return false, ErrInvalidPick
	}

	drawn := drawnDezenas(draw.Prizes[:])
	hits := 0
	for d := range picked {
		if _, ok := drawn[d]; ok {
			hits++
		}
	}
	return hits >= c.Need, nil
}

func (CombinedDezenas) PayoutDivisor(BetInfo) int64 { return 1 }
