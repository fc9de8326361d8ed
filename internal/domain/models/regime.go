package models

import "strings"

// VolatilityRegime is a discrete volatility bucket driving hyperparameter and risk selection.
type VolatilityRegime string

const (
	RegimeLow      VolatilityRegime = "LOW"
	RegimeMedium   VolatilityRegime = "MEDIUM"
	RegimeHigh     VolatilityRegime = "HIGH"
	RegimeVeryHigh VolatilityRegime = "VERY_HIGH"
)

// ConfigKey is the key of the regime block inside VOLATILITY_CONFIGS / VOLATILITY_RISK_CONFIGS.
func (r VolatilityRegime) ConfigKey() string {
	return string(r) + "_VOLATILITY"
}

// ParseRegime accepts "LOW", "LOW_VOLATILITY" and lower-case forms.
func ParseRegime(s string) (VolatilityRegime, bool) {
	switch normalizeRegime(s) {
	case "LOW":
		return RegimeLow, true
	case "MEDIUM":
		return RegimeMedium, true
	case "HIGH":
		return RegimeHigh, true
	case "VERY_HIGH":
		return RegimeVeryHigh, true
	}
	return "", false
}

func normalizeRegime(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return strings.TrimSuffix(s, "_VOLATILITY")
}

// VolatilityProfile is the output of the volatility profiler.
type VolatilityProfile struct {
	SigmaDaily   float64          `json:"sigma_daily"`
	SigmaAnnual  float64          `json:"sigma_annual"`
	Regime       VolatilityRegime `json:"regime"`
	Observations int              `json:"observations"`
}
