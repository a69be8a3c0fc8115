// Package pricing 交易侧行情取价适配器
package pricing

import "time"

// TradingCalendar 越南股市交易时段日历。
// 周一至周五 9:00–11:30、13:00–15:00（ICT），不含节假日表。
type TradingCalendar struct {
	location *time.Location
}

// NewTradingCalendar 创建交易日历。
func NewTradingCalendar() *TradingCalendar {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.FixedZone("ICT", 7*3600)
	}
	return &TradingCalendar{location: loc}
}

// IsOpen 判断给定时刻是否处于连续竞价时段。
func (c *TradingCalendar) IsOpen(t time.Time) bool {
	local := t.In(c.location)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	morning := minutes >= 9*60 && minutes < 11*60+30
	afternoon := minutes >= 13*60 && minutes < 15*60
	return morning || afternoon
}
