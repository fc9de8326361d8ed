package features

import (
	"strings"
	"sync"
	"time"

	"github.com/scmhub/calendar"
)

// micBySuffix maps Yahoo-style ticker suffixes to ISO 10383 exchange codes.
var micBySuffix = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".MI": "xmil",
	".MC": "xmad",
	".SW": "xswx",
	".TO": "xtse",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
}

// TradingCalendar answers business-day questions for calendar features.
// Dates outside the exchange calendar's year range are answered as plain weekdays.
type TradingCalendar struct {
	mu  sync.Mutex
	cal *calendar.Calendar
	loc *time.Location
}

// CalendarFor returns the exchange calendar for a symbol, defaulting to NYSE.
// When no exchange calendar can be loaded it falls back to plain weekdays.
func CalendarFor(symbol string) *TradingCalendar {
	mic := "xnys"
	if i := strings.LastIndex(symbol, "."); i > 0 {
		if m, ok := micBySuffix[strings.ToUpper(symbol[i:])]; ok {
			mic = m
		}
	}
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}
	if cal == nil {
		return &TradingCalendar{loc: time.UTC}
	}
	loc := cal.Loc
	if loc == nil {
		loc = time.UTC
	}
	return &TradingCalendar{cal: cal, loc: loc}
}

// Cover widens the exchange calendar's holiday range to the years from..to.
// The range only grows.
func (tc *TradingCalendar) Cover(from, to time.Time) {
	if tc.cal == nil || to.Before(from) {
		return
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()

	start, end := tc.cal.Years()
	lo, hi := min(start, from.Year()), max(end, to.Year()+1)
	if lo != start || hi != end {
		tc.cal.SetYears(lo, hi)
	}
}

// IsTradingDay reports whether the calendar date of d is a session day.
func (tc *TradingCalendar) IsTradingDay(d time.Time) bool {
	// Noon in exchange time keeps the calendar date stable across time zones.
	local := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, tc.loc)
	if tc.cal != nil {
		tc.mu.Lock()
		defer tc.mu.Unlock()
		if start, end := tc.cal.Years(); local.Year() >= start && local.Year() <= end {
			return tc.cal.IsBusinessDay(local)
		}
	}
	wd := local.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsMonthStart reports whether d is the first trading day of its month.
func (tc *TradingCalendar) IsMonthStart(d time.Time) bool {
	for day := d.Day() - 1; day >= 1; day-- {
		if tc.IsTradingDay(time.Date(d.Year(), d.Month(), day, 0, 0, 0, 0, time.UTC)) {
			return false
		}
	}
	return true
}

// IsMonthEnd reports whether d is the last trading day of its month.
func (tc *TradingCalendar) IsMonthEnd(d time.Time) bool {
	last := time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	for day := d.Day() + 1; day <= last; day++ {
		if tc.IsTradingDay(time.Date(d.Year(), d.Month(), day, 0, 0, 0, 0, time.UTC)) {
			return false
		}
	}
	return true
}
