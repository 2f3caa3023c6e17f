package rules

import (
	"strconv"
	"strings"
)

// GroupMatch 单组（grupo seco），奖位号码折算成组号后比对
type GroupMatch struct{}

func (GroupMatch) Verify(bet BetInfo, draw DrawResult) (bool, error) {
	if len(bet.Picks) == 0 {
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

	for _, prize := range prizeLines(draw, bet.Placement) {
		if strings.TrimSpace(prize) == "" {
			continue
		}
		g, ok := GroupOf(prize)
		if !ok {
			continue
		}
		if _, hit := picked[g]; hit {
			return true, nil
		}
	}
	return false, nil
}

func (GroupMatch) PayoutDivisor(BetInfo) int64 { return 1 }
