package rules

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ThalesMilho/projeto-web/common/constant"
)

// 玩法校验策略族：纯函数，无状态，(注单, 开奖结果) -> 是否中奖。
// 派发只认玩法编码，绝不做名字模糊匹配。

// DrawResult 五个奖位的开奖号码，空串表示该奖位缺失
type DrawResult struct {
	Prizes [5]string
}

// BetInfo 策略需要的注单信息
type BetInfo struct {
	Picks     []string // 号码串（千位/百位/十位）或组号（"1".."25"）
	Placement int      // constant.PlacementHead / constant.PlacementOneFive
}

// Strategy 每个玩法一条校验规则
type Strategy interface {
	Verify(bet BetInfo, draw DrawResult) (bool, error)
	// PayoutDivisor 派彩除数：倒置类返回去重排列数，其余返回1
	PayoutDivisor(bet BetInfo) int64
}

// HitCounter 彩票类策略额外暴露命中数，赔率表按命中数取档
type HitCounter interface {
	Hits(bet BetInfo, draw DrawResult) int
}

var (
	ErrUnresolvedModality = errors.New("unresolved modality code")
	ErrInvalidPick        = errors.New("invalid pick for modality")
)

// prizeLines 按奖位选择返回要核对的奖位。
// Cabeça 只看头奖，1 ao 5 看全部
func prizeLines(draw DrawResult, placement int) []string {
	if placement == constant.PlacementOneFive {
		return draw.Prizes[:]
	}
	return draw.Prizes[:1]
}

// suffixPadded 取号码串的末 n 位，不足 n 位左侧补零。
// "34" 按千位比较时是 "0034"，补零丢了中奖就是事故
func suffixPadded(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) < n {
		s = strings.Repeat("0", n-len(s)) + s
	}
	return s[len(s)-n:]
}

// GroupOf 号码 -> 组号（bicho）。
// 取末两位 dezena，组号 = ceil(dezena/4)，00 算第 25 组
func GroupOf(number string) (int, bool) {
	d := suffixPadded(number, 2)
	if d == "" {
		return 0, false
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return 0, false
	}
	if n == 0 {
		return 25, true
	}
	return (n + 3) / 4, true
}

// drawnGroups 五个奖位出的组号集合
func drawnGroups(prizes []string) map[int]struct{} {
	set := make(map[int]struct{}, len(prizes))
	for _, p := range prizes {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if g, ok := GroupOf(p); ok {
			set[g] = struct{}{}
		}
	}
	return set
}

// drawnDezenas 五个奖位出的末两位集合
func drawnDezenas(prizes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(prizes))
	for _, p := range prizes {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if d := suffixPadded(p, 2); d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
