package rules

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/ThalesMilho/projeto-web/common/constant"
	"github.com/ThalesMilho/projeto-web/internal/config"
)

func draw(prizes ...string) DrawResult {
	var d DrawResult
	copy(d.Prizes[:], prizes)
	return d
}

func TestGroupOf(t *testing.T) {
	cases := []struct {
		number string
		want   int
	}{
		{"1234", 9},  // dezena 34 -> ceil(34/4)=9
		{"04", 1},    // avestruz
		{"01", 1},
		{"00", 25},   // vaca
		{"9800", 25},
		{"97", 25},   // ceil(97/4)=25
		{"4", 1},     // 补零成 04
	}
	for _, c := range cases {
		got, ok := GroupOf(c.number)
		if !ok {
			t.Errorf("GroupOf(%q) not ok", c.number)
			continue
		}
		if got != c.want {
			t.Errorf("GroupOf(%q) = %d, want %d", c.number, got, c.want)
		}
	}
	if _, ok := GroupOf("ab"); ok {
		t.Error("GroupOf should reject non-digits")
	}
}

func TestExactSuffixHead(t *testing.T) {
	d := draw("1234", "5678", "9012", "3456", "7890")

	bet := BetInfo{Picks: []string{"1234"}, Placement: constant.PlacementHead}
	won, err := ExactSuffix{Digits: 4}.Verify(bet, d)
	if err != nil || !won {
		t.Fatalf("milhar cabeça should win: won=%v err=%v", won, err)
	}

	// 头奖没中，第二奖位中了也不算
	bet = BetInfo{Picks: []string{"5678"}, Placement: constant.PlacementHead}
	won, _ = ExactSuffix{Digits: 4}.Verify(bet, d)
	if won {
		t.Fatal("cabeça must only look at the first prize")
	}

	// 1 ao 5 看全部奖位
	bet.Placement = constant.PlacementOneFive
	won, _ = ExactSuffix{Digits: 4}.Verify(bet, d)
	if !won {
		t.Fatal("1 ao 5 should match the second prize")
	}
}

func TestExactSuffixZeroPadding(t *testing.T) {
	// 奖位 "0034"：dezena "34" 中，centena "034" 也要中
	d := draw("0034")

	won, _ := ExactSuffix{Digits: 2}.Verify(BetInfo{Picks: []string{"34"}}, d)
	if !won {
		t.Fatal("dezena 34 should win against 0034")
	}
	won, _ = ExactSuffix{Digits: 3}.Verify(BetInfo{Picks: []string{"34"}}, d)
	if !won {
		t.Fatal("pick 34 padded to 034 should win centena against 0034")
	}
	won, _ = ExactSuffix{Digits: 3}.Verify(BetInfo{Picks: []string{"134"}}, d)
	if won {
		t.Fatal("centena 134 must not win against 034")
	}
}

func TestGroupMatch(t *testing.T) {
	d := draw("1234", "", "", "", "") // grupo 9 (cavalo)

	won, err := GroupMatch{}.Verify(BetInfo{Picks: []string{"9"}, Placement: constant.PlacementHead}, d)
	if err != nil || !won {
		t.Fatalf("grupo 9 should win: %v %v", won, err)
	}
	won, _ = GroupMatch{}.Verify(BetInfo{Picks: []string{"10"}, Placement: constant.PlacementHead}, d)
	if won {
		t.Fatal("grupo 10 should lose")
	}
	if _, err := GroupMatch{}.Verify(BetInfo{Picks: []string{"26"}}, d); !errors.Is(err, ErrInvalidPick) {
		t.Fatal("group above 25 must be rejected")
	}
}

func TestCombinedGroups(t *testing.T) {
	// 奖位组号: 9, 20, 25, 1, 13
	d := draw("1234", "5678", "9800", "0004", "5550")

	// duque: 押 9 和 25，两个都出了
	won, err := CombinedGroups{Need: 2}.Verify(BetInfo{Picks: []string{"9", "25"}}, d)
	if err != nil || !won {
		t.Fatalf("duque should win: %v %v", won, err)
	}
	// 只中一个
	won, _ = CombinedGroups{Need: 2}.Verify(BetInfo{Picks: []string{"9", "10"}}, d)
	if won {
		t.Fatal("duque with one hit should lose")
	}
	// terno: 押4个组中3个也算中
	won, _ = CombinedGroups{Need: 3}.Verify(BetInfo{Picks: []string{"9", "25", "1", "2"}}, d)
	if !won {
		t.Fatal("terno with three hits out of four picks should win")
	}
	// 重复组号不凑数
	if _, err := CombinedGroups{Need: 2}.Verify(BetInfo{Picks: []string{"9", "9"}}, d); !errors.Is(err, ErrInvalidPick) {
		t.Fatal("duplicated groups must be rejected")
	}
}

func TestCombinedDezenas(t *testing.T) {
	// dezenas: 34, 78, 00, 04, 50
	d := draw("1234", "5678", "9800", "0004", "5550")

	won, err := CombinedDezenas{Need: 2}.Verify(BetInfo{Picks: []string{"34", "78"}}, d)
	if err != nil || !won {
		t.Fatalf("duque de dezena should win: %v %v", won, err)
	}
	won, _ = CombinedDezenas{Need: 3}.Verify(BetInfo{Picks: []string{"34", "78", "99"}}, d)
	if won {
		t.Fatal("terno de dezena with two hits should lose")
	}
	// "4" 补零成 "04"
	won, _ = CombinedDezenas{Need: 2}.Verify(BetInfo{Picks: []string{"4", "00"}}, d)
	if !won {
		t.Fatal("zero-padded dezenas should hit 04 and 00")
	}
}

func TestPermutation(t *testing.T) {
	d := draw("4321")

	won, err := Permutation{Digits: 4}.Verify(BetInfo{Picks: []string{"1234"}, Placement: constant.PlacementHead}, d)
	if err != nil || !won {
		t.Fatalf("inverted 1234 should match 4321: %v %v", won, err)
	}
	won, _ = Permutation{Digits: 4}.Verify(BetInfo{Picks: []string{"1235"}, Placement: constant.PlacementHead}, d)
	if won {
		t.Fatal("1235 has no permutation equal to 4321")
	}
	if _, err := Permutation{Digits: 4}.Verify(BetInfo{Picks: []string{"123"}}, d); !errors.Is(err, ErrInvalidPick) {
		t.Fatal("pick length must equal digit count")
	}
}

func TestDistinctPermutations(t *testing.T) {
	cases := []struct {
		pick string
		want int64
	}{
		{"1234", 24},
		{"1122", 6},
		{"1112", 4},
		{"1111", 1},
		{"123", 6},
		{"112", 3},
	}
	for _, c := range cases {
		if got := DistinctPermutations(c.pick); got != c.want {
			t.Errorf("DistinctPermutations(%q) = %d, want %d", c.pick, got, c.want)
		}
	}
}

func TestLotteryIntersection(t *testing.T) {
	// dezenas: 34, 78, 00, 04, 50
	d := draw("1234", "5678", "9800", "0004", "5550")

	l := LotteryIntersection{MinHits: 3}
	bet := BetInfo{Picks: []string{"34", "78", "00", "11", "22"}}
	won, err := l.Verify(bet, d)
	if err != nil || !won {
		t.Fatalf("3 hits should win: %v %v", won, err)
	}
	if hits := l.Hits(bet, d); hits != 3 {
		t.Fatalf("Hits = %d, want 3", hits)
	}

	won, _ = l.Verify(BetInfo{Picks: []string{"34", "78", "11", "22", "33"}}, d)
	if won {
		t.Fatal("2 hits below threshold should lose")
	}
}

func TestRulesetResolve(t *testing.T) {
	rs, err := NewRuleset(nil)
	if err != nil {
		t.Fatalf("NewRuleset: %v", err)
	}

	for _, code := range rs.Codes() {
		if _, err := rs.Resolve(code); err != nil {
			t.Errorf("Resolve(%s): %v", code, err)
		}
	}

	if _, err := rs.Resolve("PASSE_VAI_VEM"); !errors.Is(err, ErrUnresolvedModality) {
		t.Fatal("unknown code must fail hard, not default to a loss")
	}
}

func TestSettleBetMilhar(t *testing.T) {
	rs, _ := NewRuleset(nil)
	d := draw("1234", "5678", "9012", "3456", "7890")

	// 1000分 × 4000 = 4_000_000分
	won, payout, err := rs.SettleBet(constant.ModalityMilhar,
		BetInfo{Picks: []string{"1234"}, Placement: constant.PlacementHead}, d, 1000)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !won || payout != 4000000 {
		t.Fatalf("milhar payout = won=%v %d, want 4000000", won, payout)
	}

	won, payout, _ = rs.SettleBet(constant.ModalityMilhar,
		BetInfo{Picks: []string{"9999"}, Placement: constant.PlacementHead}, d, 1000)
	if won || payout != 0 {
		t.Fatalf("losing bet must pay zero, got won=%v %d", won, payout)
	}
}

func TestSettleBetInvertidaDividesByPermutations(t *testing.T) {
	rs, _ := NewRuleset(nil)
	// 2211 é permutação de 1122
	d := draw("2211")

	bet := BetInfo{Picks: []string{"1122"}, Placement: constant.PlacementHead}
	won, payout, err := rs.SettleBet(constant.ModalityMilharInvertida, bet, d, 1000)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !won {
		t.Fatal("1122 inverted should match 2211")
	}
	// floor(1000 × 4000 / 6) = 666666
	if payout != 666666 {
		t.Fatalf("inverted payout = %d, want 666666", payout)
	}
}

func TestSettleBetLotteryTier(t *testing.T) {
	rs, _ := NewRuleset(nil)
	// dezenas: 34, 78, 00, 04, 50
	d := draw("1234", "5678", "9800", "0004", "5550")

	// quininha: 押5个中4个，默认表 4档=120
	bet := BetInfo{Picks: []string{"34", "78", "00", "04", "99"}}
	won, payout, err := rs.SettleBet(constant.ModalityQuininha, bet, d, 1000)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !won || payout != 120000 {
		t.Fatalf("quininha 4 hits payout = won=%v %d, want 120000", won, payout)
	}

	// 5个全中走2000档
	bet = BetInfo{Picks: []string{"34", "78", "00", "04", "50"}}
	_, payout, _ = rs.SettleBet(constant.ModalityQuininha, bet, d, 1000)
	if payout != 2000000 {
		t.Fatalf("quininha 5 hits payout = %d, want 2000000", payout)
	}
}

func TestValidatePicks(t *testing.T) {
	rs, _ := NewRuleset(nil)

	if err := rs.ValidatePicks(constant.ModalityMilhar, []string{"1234"}); err != nil {
		t.Errorf("valid milhar pick rejected: %v", err)
	}
	if err := rs.ValidatePicks(constant.ModalityMilhar, []string{"12345"}); err == nil {
		t.Error("5-digit pick for milhar should fail")
	}
	if err := rs.ValidatePicks(constant.ModalityDuqueGrupo, []string{"9"}); err == nil {
		t.Error("duque with one pick should fail")
	}
	if err := rs.ValidatePicks(constant.ModalityGrupo, []string{"26"}); err == nil {
		t.Error("group 26 should fail")
	}
	if err := rs.ValidatePicks("MILHAR_CENTESIMA", []string{"1234"}); !errors.Is(err, ErrUnresolvedModality) {
		t.Error("unknown modality should be a hard failure")
	}
}

func TestDisabledModalityRejectsNewBetsButStillSettles(t *testing.T) {
	off := false
	cfg := &config.Config{}
	cfg.Game.Modalities = []config.ModalityConfig{
		{Code: constant.ModalityGrupo, Enabled: &off},
	}
	rs, err := NewRuleset(cfg)
	if err != nil {
		t.Fatalf("NewRuleset: %v", err)
	}

	if err := rs.ValidatePicks(constant.ModalityGrupo, []string{"9"}); err == nil {
		t.Fatal("disabled modality must reject new picks")
	}

	// 停售前受理的注单照常结算
	d := draw("1234", "", "", "", "")
	won, payout, err := rs.SettleBet(constant.ModalityGrupo,
		BetInfo{Picks: []string{"9"}, Placement: constant.PlacementHead}, d, 1000)
	if err != nil {
		t.Fatalf("settle disabled modality: %v", err)
	}
	if !won || payout != 18000 {
		t.Fatalf("grupo payout = won=%v %d, want 18000", won, payout)
	}
}
