package repository

import (
	"sort"
	"strings"

	"StockPredictor/internal/domain/models"
)

// NormalizeBars drops invalid rows, truncates dates to calendar days, sorts
// ascending and keeps the last row of each day.
func NormalizeBars(symbol string, in []models.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(in))
	for _, b := range in {
		if !b.Valid() {
			continue
		}
		b.Date = b.Day()
		b.Symbol = symbol
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
