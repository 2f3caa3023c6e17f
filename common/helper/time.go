package helper

import (
	"time"
)

// StrToTime 宽松解析时间字符串，开奖时间按圣保罗本地时区。
// 解析失败返回零值，调用方用 IsZero 判断
func StrToTime(value string) time.Time {

	if value == "" {
		return time.Time{}
	}
	layouts := []string{
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"2006-01-02",
		"2006/01/02",
		time.RFC3339,
		time.RFC3339Nano,
		time.RFC1123,
		time.RFC1123Z,
	}

	var t time.Time
	var err error
	loc, _ := time.LoadLocation("America/Sao_Paulo")

	for _, layout := range layouts {
		t, err = time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t
		}
	}
	return t
}
