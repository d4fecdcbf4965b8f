// Package calendar provides HK trading-day arithmetic and the HKEX
// session grid (09:30-12:00, 13:00-16:00, weekdays excluding public
// holidays).
package calendar

import "time"

// HongKong is the exchange timezone. LoadLocation needs tzdata, so fall
// back to a fixed UTC+8 zone when the database is unavailable.
var HongKong = loadHongKong()

func loadHongKong() *time.Location {
	if loc, err := time.LoadLocation("Asia/Hong_Kong"); err == nil {
		return loc
	}
	return time.FixedZone("HKT", 8*60*60)
}

// holidays maps year -> set of month*100+day for HK public holidays that
// fall on weekdays. Weekend holidays are omitted; weekends are excluded
// separately. Lunar dates (CNY, Qingming, Buddha's Birthday, Tuen Ng,
// Mid-Autumn, Chung Yeung) are looked up, not computed.
var holidays = map[int]map[int]bool{
	2020: set(101, 127, 128, 410, 413, 430, 501, 625, 701, 1001, 1002, 1026, 1225),
	2021: set(101, 212, 215, 402, 405, 406, 519, 614, 701, 922, 1001, 1014, 1227),
	2022: set(201, 202, 203, 405, 415, 418, 502, 509, 603, 701, 912, 1004, 1226, 1227),
	2023: set(102, 123, 124, 125, 405, 407, 410, 501, 526, 622, 1002, 1023, 1225, 1226),
	2024: set(101, 212, 213, 329, 401, 404, 501, 515, 610, 701, 918, 1001, 1011, 1225, 1226),
	2025: set(101, 129, 130, 131, 404, 418, 421, 501, 505, 701, 1001, 1007, 1029, 1225, 1226),
	2026: set(101, 217, 218, 219, 403, 406, 407, 501, 525, 619, 701, 925, 1001, 1019, 1225),
}

func set(days ...int) map[int]bool {
	m := make(map[int]bool, len(days))
	for _, d := range days {
		m[d] = true
	}
	return m
}

// IsTradingDay reports whether t falls on an HK trading day.
func IsTradingDay(t time.Time) bool {
	t = t.In(HongKong)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if days, ok := holidays[t.Year()]; ok {
		return !days[int(t.Month())*100+t.Day()]
	}
	return true
}

// PrevTradingDay returns the last trading day strictly before t.
func PrevTradingDay(t time.Time) time.Time {
	t = midnight(t)
	for {
		t = t.AddDate(0, 0, -1)
		if IsTradingDay(t) {
			return t
		}
	}
}

// WarmupStart walks backwards from start accumulating want trading days,
// giving up after capDays calendar days. The returned bool is false when
// the cap was hit with fewer trading days than requested; the caller may
// still proceed with the shorter warm-up.
func WarmupStart(start time.Time, want, capDays int) (time.Time, bool) {
	day := midnight(start)
	cursor := day
	got := 0
	for i := 0; i < capDays; i++ {
		cursor = cursor.AddDate(0, 0, -1)
		if IsTradingDay(cursor) {
			got++
			if got >= want {
				return cursor, true
			}
		}
	}
	return cursor, false
}

// TradingDaysBetween counts trading days in [start, end].
func TradingDaysBetween(start, end time.Time) int {
	n := 0
	for d := midnight(start); !d.After(midnight(end)); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			n++
		}
	}
	return n
}

// Session bounds, minutes from midnight HKT.
const (
	morningOpen    = 9*60 + 30
	morningClose   = 12 * 60
	afternoonOpen  = 13 * 60
	afternoonClose = 16 * 60
)

// InTradingSession reports whether t falls within HKEX continuous trading
// hours on a trading day.
func InTradingSession(t time.Time) bool {
	if !IsTradingDay(t) {
		return false
	}
	t = t.In(HongKong)
	m := t.Hour()*60 + t.Minute()
	return (m >= morningOpen && m <= morningClose) || (m >= afternoonOpen && m <= afternoonClose)
}

// OnGrid reports whether ts aligns to the expected bar grid for interval
// inside trading hours. Daily bars only need to land on a trading day.
func OnGrid(ts time.Time, interval time.Duration) bool {
	if interval >= 24*time.Hour {
		return IsTradingDay(ts)
	}
	if !InTradingSession(ts) {
		return false
	}
	ts = ts.In(HongKong)
	step := int(interval.Minutes())
	if step <= 0 {
		return false
	}
	m := ts.Hour()*60 + ts.Minute()
	if m >= morningOpen && m <= morningClose {
		return (m-morningOpen)%step == 0
	}
	return (m-afternoonOpen)%step == 0
}

func midnight(t time.Time) time.Time {
	t = t.In(HongKong)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, HongKong)
}
