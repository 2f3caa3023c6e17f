package common

import (
	"time"
)

// 开奖和对账都按圣保罗本地日切
const drawTimeZone = "America/Sao_Paulo"

// 获取当天 00:00:00 和 第二天 00:00:00
func GetTodayRange(t time.Time) (start, end int64) {
	loc, _ := time.LoadLocation(drawTimeZone)
	year, month, day := t.In(loc).Date()

	startTime := time.Date(year, month, day, 0, 0, 0, 0, loc)
	endTime := startTime.AddDate(0, 0, 1) // +1 天

	return startTime.Unix(), endTime.Unix()
}

// 获取当周周一 00:00:00 和 周日 00:00:00，佣金周报用
func GetWeekRange(t time.Time) (start, end int64) {
	loc, _ := time.LoadLocation(drawTimeZone)
	t = t.In(loc)

	// 获取当前是周几（周日是0，周一是1 ... 周六是6）
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // 让周日变成 7，方便计算
	}

	year, month, day := t.Date()
	monday := time.Date(year, month, day, 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
	sunday := monday.AddDate(0, 0, 7)

	return monday.Unix(), sunday.Unix()
}

// 获取当月第一天 00:00:00 和 下个月第一天 00:00:00
func GetMonthRange(t time.Time) (start, end int64) {
	loc, _ := time.LoadLocation(drawTimeZone)
	t = t.In(loc)

	year, month, _ := t.Date()
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	nextMonth := firstDay.AddDate(0, 1, 0)

	return firstDay.Unix(), nextMonth.Unix()
}
