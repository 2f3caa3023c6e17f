package helper

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// 金额统一用分（int64）表示，十进制字符串只在这一个文件里转换，
// 出了这个边界就不允许再出现浮点/小数金额。

var ErrInvalidAmount = errors.New("invalid monetary amount")

var centsFactor = decimal.NewFromInt(100)

// ParseAmountToCents 把外部的十进制金额（"50.00"）转成分。
// 超过2位小数、非正数都拒绝，宁可报错也不悄悄截断用户的钱。
func ParseAmountToCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidAmount, "parse %q", s)
	}
	return DecimalToCents(d)
}

// DecimalToCents decimal -> 分，非精确转换一律报错
func DecimalToCents(d decimal.Decimal) (int64, error) {
	if d.Exponent() < -2 {
		// 超过2位小数说明上游单位用错了
		return 0, errors.Wrapf(ErrInvalidAmount, "more than 2 decimal places: %s", d.String())
	}
	cents := d.Mul(centsFactor)
	if !cents.IsInteger() {
		return 0, errors.Wrapf(ErrInvalidAmount, "not a whole number of cents: %s", d.String())
	}
	return cents.IntPart(), nil
}

// CentsToDecimal 分 -> decimal，只给对外展示/网关报文用
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsFactor)
}

// FormatCents 分 -> "1234.56"
func FormatCents(cents int64) string {
	return CentsToDecimal(cents).StringFixed(2)
}

// MulCentsFloor 派彩计算：floor(cents * mult)，向下取整，抹零归庄
func MulCentsFloor(cents int64, mult decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(mult).Floor().IntPart()
}

// MulCentsDivFloor 倒置类玩法：floor(cents * mult / divisor)
func MulCentsDivFloor(cents int64, mult decimal.Decimal, divisor int64) int64 {
	if divisor <= 0 {
		return 0
	}
	return decimal.NewFromInt(cents).Mul(mult).Div(decimal.NewFromInt(divisor)).Floor().IntPart()
}

// PercentFloor 佣金计算：floor(cents * pct / 100)
func PercentFloor(cents int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(pct).Div(decimal.NewFromInt(100)).Floor().IntPart()
}
