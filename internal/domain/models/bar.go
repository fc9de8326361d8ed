package models

import "time"

// Bar represents one daily OHLCV record.
type Bar struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol,omitempty"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day truncates the bar timestamp to its UTC calendar date.
func (b Bar) Day() time.Time {
	return CalendarDay(b.Date)
}

// Valid reports whether the bar satisfies the non-negativity and close > 0 rules.
func (b Bar) Valid() bool {
	return b.Close > 0 && b.Open >= 0 && b.High >= 0 && b.Low >= 0 && b.Volume >= 0
}

// CalendarDay returns midnight UTC of t's calendar date.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
