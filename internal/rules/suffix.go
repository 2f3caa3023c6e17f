package rules

import "strings"

// ExactSuffix 尾数精确匹配，覆盖 milhar(4)/centena(3)/dezena(2)
type ExactSuffix struct {
	Digits int
}

func (s ExactSuffix) Verify(bet BetInfo, draw DrawResult) (bool, error) {
	if len(bet.Picks) == 0 {
		return false, ErrInvalidPick
	}
	for _, prize := range prizeLines(draw, bet.Placement) {
		if strings.TrimSpace(prize) == "" {
			continue
		}
		drawn := suffixPadded(prize, s.Digits)
		for _, pick := range bet.Picks {
			if !isDigits(strings.TrimSpace(pick)) {
				return false, ErrInvalidPick
			}
			if suffixPadded(pick, s.Digits) == drawn {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s ExactSuffix) PayoutDivisor(BetInfo) int64 { return 1 }
