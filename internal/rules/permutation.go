package rules

import "strings"

// Permutation 倒置玩法（milhar/centena invertida）：
// 押的号码任意排列命中奖位尾数即中。赔率按去重排列数摊薄，
// 带重复数字的号码排列少，单个排列赔得多。
type Permutation struct {
	Digits int
}

func (p Permutation) Verify(bet BetInfo, draw DrawResult) (bool, error) {
	if len(bet.Picks) == 0 {
		return false, ErrInvalidPick
	}
	pick := strings.TrimSpace(bet.Picks[0])
	if !isDigits(pick) || len(pick) != p.Digits {
		return false, ErrInvalidPick
	}

	perms := permuteSet(pick)
	for _, prize := range prizeLines(draw, bet.Placement) {
		if strings.TrimSpace(prize) == "" {
			continue
		}
		if _, ok := perms[suffixPadded(prize, p.Digits)]; ok {
			return true, nil
		}
	}
	return false, nil
}

// PayoutDivisor 去重排列数：n! / Π(重复数字个数!)
func (p Permutation) PayoutDivisor(bet BetInfo) int64 {
	if len(bet.Picks) == 0 {
		return 1
	}
	return DistinctPermutations(strings.TrimSpace(bet.Picks[0]))
}

// DistinctPermutations 计算数字串的去重排列数。
// "1122" -> 4!/(2!·2!) = 6
func DistinctPermutations(pick string) int64 {
	if pick == "" {
		return 1
	}
	var counts [10]int64
	for i := 0; i < len(pick); i++ {
		if pick[i] < '0' || pick[i] > '9' {
			return 1
		}
		counts[pick[i]-'0']++
	}
	total := factorial(int64(len(pick)))
	for _, c := range counts {
		if c > 1 {
			total /= factorial(c)
		}
	}
	return total
}

func factorial(n int64) int64 {
	r := int64(1)
	for i := int64(2); i <= n; i++ {
		r *= i
	}
	return r
}

// permuteSet 生成去重排列集合，号码最长4位，上限 4!=24 个
func permuteSet(pick string) map[string]struct{} {
	out := make(map[string]struct{})
	b := []byte(pick)
	var walk func(prefix []byte, rest []byte)
	walk = func(prefix []byte, rest []byte) {
		if len(rest) == 0 {
			out[string(prefix)] = struct{}{}
			return
		}
		for i := range rest {
			next := make([]byte, 0, len(rest)-1)
			next = append(next, rest[:i]...)
			next = append(next, rest[i+1:]...)
			walk(append(prefix, rest[i]), next)
		}
	}
	walk(make([]byte, 0, len(b)), b)
	return out
}
