// Package render turns normalized analysis records into display form: bar
// percentages, unit strings and the wording for score tiers and statuses.
package render

import (
	"strconv"

	"github.com/fresheye/fresheye/internal/analysis"
)

// Daily reference amounts the nutrient bars are scaled against. Grams,
// except sodium in milligrams.
const (
	maxProtein = 50
	maxCarbs   = 300
	maxFat     = 78
	maxFiber   = 28
	maxSugar   = 50
	maxSodium  = 2300
)

// Row is one nutrient line: its display value and the bar fill.
type Row struct {
	Name    string
	Display string
	Percent float64
}

// NutritionRows lays out the macronutrient bars in display order.
func NutritionRows(n *analysis.Nutrition) []Row {
	return []Row{
		{"Protein", Grams(n.Protein), BarPercent(n.Protein.Float64(), maxProtein)},
		{"Carbs", Grams(n.Carbs), BarPercent(n.Carbs.Float64(), maxCarbs)},
		{"Fat", Grams(n.Fat), BarPercent(n.Fat.Float64(), maxFat)},
		{"Fiber", Grams(n.Fiber), BarPercent(n.Fiber.Float64(), maxFiber)},
		{"Sugar", Grams(n.Sugar), BarPercent(n.Sugar.Float64(), maxSugar)},
		{"Sodium", Milligrams(n.Sodium), BarPercent(n.Sodium.Float64(), maxSodium)},
	}
}

// BarPercent scales a value against its daily reference, clamped to 0-100.
func BarPercent(value, max float64) float64 {
	if max <= 0 || value <= 0 {
		return 0
	}
	p := value / max * 100
	if p > 100 {
		return 100
	}
	return p
}

// Grams renders an amount with its unit, "12g" style.
func Grams(a analysis.Amount) string {
	return FormatAmount(a.Float64()) + "g"
}

// Milligrams renders an amount with its unit, "480mg" style.
func Milligrams(a analysis.Amount) string {
	return FormatAmount(a.Float64()) + "mg"
}

// FormatAmount renders a number without trailing zeros: 12 not 12.000.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ScoreLabel is the wording shown with the health score.
func ScoreLabel(score float64) string {
	switch analysis.TierForScore(score) {
	case analysis.TierFavorable:
		return "Healthy choice"
	case analysis.TierCaution:
		return "Consume in moderation"
	default:
		return "Consider healthier alternatives"
	}
}

// NoWarnings is shown when the analysis reported no concerns.
const NoWarnings = "No concerns detected"

// Warnings returns the warning list, substituting the all-clear line when
// the analysis reported none.
func Warnings(n *analysis.Nutrition) []string {
	if len(n.Warnings) == 0 {
		return []string{NoWarnings}
	}
	return n.Warnings
}

// StatusLabel is the wording for a freshness status.
func StatusLabel(s analysis.Status) string {
	switch s {
	case analysis.StatusFresh:
		return "Fresh"
	case analysis.StatusGood:
		return "Still good"
	case analysis.StatusWarning:
		return "Check before use"
	case analysis.StatusSpoiled:
		return "Spoiled"
	default:
		return string(s)
	}
}
