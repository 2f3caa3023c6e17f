package helper

import (
	"strings"
	"testing"
)

func TestIsMoneyFormat(t *testing.T) {
	valid := []string{"0", "1", "10", "2.5", "2.50", "0.01", "199.99", " 5.00 "}
	for _, s := range valid {
		if !IsMoneyFormat(s) {
			t.Errorf("IsMoneyFormat(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "-1", "1.234", "01", "1,50", "abc", "1.", ".5", "1e3"}
	for _, s := range invalid {
		if IsMoneyFormat(s) {
			t.Errorf("IsMoneyFormat(%q) = true, want false", s)
		}
	}
}

func validBet() BetParsed {
	return BetParsed{
		DrawId:         "2026-08-28-1420",
		AccountId:      1001,
		Modality:       "grupo",
		Placement:      1,
		Picks:          []string{"07"},
		BetAmount:      "2.50",
		IdempotencyKey: "idem-abc",
	}
}

func TestValidateBet(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BetParsed)
		ok     bool
	}{
		{"valid", func(b *BetParsed) {}, true},
		{"placement 2", func(b *BetParsed) { b.Placement = 2 }, true},
		{"placement defaults to 1", func(b *BetParsed) { b.Placement = 0 }, true},
		{"missing draw_id", func(b *BetParsed) { b.DrawId = "" }, false},
		{"zero account", func(b *BetParsed) { b.AccountId = 0 }, false},
		{"missing modality", func(b *BetParsed) { b.Modality = "" }, false},
		{"empty picks", func(b *BetParsed) { b.Picks = nil }, false},
		{"missing idempotency key", func(b *BetParsed) { b.IdempotencyKey = "" }, false},
		{"bad amount", func(b *BetParsed) { b.BetAmount = "2,50" }, false},
		{"three decimals", func(b *BetParsed) { b.BetAmount = "2.505" }, false},
		{"placement out of range", func(b *BetParsed) { b.Placement = 3 }, false},
		{"oversized draw_id", func(b *BetParsed) { b.DrawId = strings.Repeat("x", 65) }, false},
		{"oversized pick", func(b *BetParsed) { b.Picks = []string{"123456789"} }, false},
		{"empty pick", func(b *BetParsed) { b.Picks = []string{""} }, false},
		{"too many picks", func(b *BetParsed) {
			b.Picks = make([]string, 65)
			for i := range b.Picks {
				b.Picks[i] = "07"
			}
		}, false},
	}

	for _, c := range cases {
		in := validBet()
		c.mutate(&in)
		ok, msg := ValidateBet(&in)
		if ok != c.ok {
			t.Errorf("%s: ok = %v (msg=%q), want %v", c.name, ok, msg, c.ok)
		}
	}
}

func TestValidateBetDefaultsPlacement(t *testing.T) {
	in := validBet()
	in.Placement = 0
	if ok, msg := ValidateBet(&in); !ok {
		t.Fatalf("unexpected reject: %s", msg)
	}
	if in.Placement != 1 {
		t.Errorf("placement = %d, want 1", in.Placement)
	}
}

func TestValidateResults(t *testing.T) {
	cases := []struct {
		name string
		in   ResultsParsed
		ok   bool
	}{
		{"valid", ResultsParsed{DrawId: "2026-08-28-1420", Prizes: []string{"1234", "0000", "9999", "4321", "0815"}}, true},
		{"missing draw_id", ResultsParsed{Prizes: []string{"1234", "0000", "9999", "4321", "0815"}}, false},
		{"four prizes", ResultsParsed{DrawId: "d1", Prizes: []string{"1234", "0000", "9999", "4321"}}, false},
		{"six prizes", ResultsParsed{DrawId: "d1", Prizes: []string{"1234", "0000", "9999", "4321", "0815", "1111"}}, false},
		{"three digits", ResultsParsed{DrawId: "d1", Prizes: []string{"123", "0000", "9999", "4321", "0815"}}, false},
		{"five digits", ResultsParsed{DrawId: "d1", Prizes: []string{"12345", "0000", "9999", "4321", "0815"}}, false},
		{"non numeric", ResultsParsed{DrawId: "d1", Prizes: []string{"12a4", "0000", "9999", "4321", "0815"}}, false},
	}

	for _, c := range cases {
		in := c.in
		ok, msg := ValidateResults(&in)
		if ok != c.ok {
			t.Errorf("%s: ok = %v (msg=%q), want %v", c.name, ok, msg, c.ok)
		}
	}
}

func TestValidatePayment(t *testing.T) {
	cases := []struct {
		name       string
		in         PaymentParsed
		requirePix bool
		ok         bool
	}{
		{"deposit valid", PaymentParsed{AccountId: 1, Amount: "50.00"}, false, true},
		{"withdraw valid", PaymentParsed{AccountId: 1, Amount: "50.00", PixKey: "jose@pix.br"}, true, true},
		{"withdraw missing pix", PaymentParsed{AccountId: 1, Amount: "50.00"}, true, false},
		{"zero account", PaymentParsed{Amount: "50.00"}, false, false},
		{"bad amount", PaymentParsed{AccountId: 1, Amount: "50,00"}, false, false},
		{"empty amount", PaymentParsed{AccountId: 1}, false, false},
		{"oversized pix key", PaymentParsed{AccountId: 1, Amount: "1.00", PixKey: strings.Repeat("k", 141)}, true, false},
	}

	for _, c := range cases {
		in := c.in
		ok, msg := ValidatePayment(&in, c.requirePix)
		if ok != c.ok {
			t.Errorf("%s: ok = %v (msg=%q), want %v", c.name, ok, msg, c.ok)
		}
	}
}
