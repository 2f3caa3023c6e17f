package helper

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmountToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"50.00", 5000, false},
		{"0.01", 1, false},
		{"1234.5", 123450, false},
		{"10", 1000, false},
		{"0.001", 0, true},
		{"abc", 0, true},
	}
	for _, c := range cases {
		got, err := ParseAmountToCents(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseAmountToCents(%q) expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmountToCents(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseAmountToCents(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

// 两位小数以内的金额必须无损往返
func TestCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 5000, 123456789} {
		d := CentsToDecimal(cents)
		back, err := DecimalToCents(d)
		if err != nil {
			t.Fatalf("round trip %d: %v", cents, err)
		}
		if back != cents {
			t.Fatalf("round trip %d -> %s -> %d", cents, d.String(), back)
		}
	}
}

func TestMulCentsFloor(t *testing.T) {
	// 1000分 × 4000倍 = 4_000_000分
	if got := MulCentsFloor(1000, decimal.NewFromInt(4000)); got != 4000000 {
		t.Errorf("MulCentsFloor(1000, 4000) = %d, want 4000000", got)
	}
	// 向下取整：333 × 0.5 = 166.5 -> 166
	if got := MulCentsFloor(333, decimal.RequireFromString("0.5")); got != 166 {
		t.Errorf("MulCentsFloor(333, 0.5) = %d, want 166", got)
	}
}

func TestMulCentsDivFloor(t *testing.T) {
	// 倒置千位：1000分 × 4000 / 12 = 333333.33 -> 333333
	if got := MulCentsDivFloor(1000, decimal.NewFromInt(4000), 12); got != 333333 {
		t.Errorf("MulCentsDivFloor(1000, 4000, 12) = %d, want 333333", got)
	}
	if got := MulCentsDivFloor(1000, decimal.NewFromInt(4000), 0); got != 0 {
		t.Errorf("MulCentsDivFloor divisor 0 should pay nothing, got %d", got)
	}
}

func TestPercentFloor(t *testing.T) {
	// 10000分的10% = 1000分
	if got := PercentFloor(10000, decimal.NewFromInt(10)); got != 1000 {
		t.Errorf("PercentFloor(10000, 10) = %d, want 1000", got)
	}
	// floor(999 * 10 / 100) = 99
	if got := PercentFloor(999, decimal.NewFromInt(10)); got != 99 {
		t.Errorf("PercentFloor(999, 10) = %d, want 99", got)
	}
	// 算出来是0就不付
	if got := PercentFloor(5, decimal.NewFromInt(10)); got != 0 {
		t.Errorf("PercentFloor(5, 10) = %d, want 0", got)
	}
}
