package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fresheye/fresheye/internal/analysis"
	"github.com/fresheye/fresheye/internal/models"
)

const barWidth = 20

// WriteNutrition prints a nutrition record as a terminal report.
func WriteNutrition(w io.Writer, n *analysis.Nutrition) {
	fmt.Fprintf(w, "Health score: %s/10  %s\n", FormatAmount(n.HealthScore.Float64()), ScoreLabel(n.HealthScore.Float64()))
	if n.ServingSize != "" {
		fmt.Fprintf(w, "Serving size: %s\n", n.ServingSize)
	}
	fmt.Fprintf(w, "Calories:     %s kcal\n\n", FormatAmount(n.Calories.Float64()))

	for _, row := range NutritionRows(n) {
		fmt.Fprintf(w, "  %-8s %8s  [%s]\n", row.Name, row.Display, bar(row.Percent))
	}

	if len(n.Ingredients) > 0 {
		fmt.Fprintf(w, "\nIngredients: %s\n", strings.Join(n.Ingredients, ", "))
	}
	if len(n.Additional) > 0 {
		fmt.Fprintln(w, "\nAdditional nutrients:")
		for name, nutrient := range n.Additional {
			fmt.Fprintf(w, "  %s: %s%s\n", name, FormatAmount(nutrient.Value.Float64()), nutrient.Unit)
		}
	}
	if len(n.Benefits) > 0 {
		fmt.Fprintln(w, "\nBenefits:")
		for _, b := range n.Benefits {
			fmt.Fprintf(w, "  + %s\n", b)
		}
	}

	fmt.Fprintln(w, "\nWarnings:")
	for _, warning := range Warnings(n) {
		fmt.Fprintf(w, "  ! %s\n", warning)
	}
}

// WriteSpoilage prints a freshness result as a terminal report.
func WriteSpoilage(w io.Writer, s *analysis.Spoilage) {
	name := s.FoodName
	if name == "" {
		name = s.PredictedClass
	}
	if name == "" {
		name = "Unknown item"
	}
	fmt.Fprintf(w, "%s: %s (%.1f%% confidence)\n", name, StatusLabel(s.Status), s.Confidence)
	if s.FreshnessScore > 0 {
		fmt.Fprintf(w, "Freshness score: %s/10\n", FormatAmount(s.FreshnessScore.Float64()))
	}
	for _, indicator := range s.Indicators {
		fmt.Fprintf(w, "  - %s\n", indicator)
	}
}

// WriteSensor prints one dashboard line for a sensor reading.
func WriteSensor(w io.Writer, r models.SensorReading) {
	if !r.Connected {
		fmt.Fprintf(w, "sensor disconnected (last update %s)\n", r.LastUpdate)
		return
	}
	fmt.Fprintf(w, "%.1f C  %.1f%% humidity  (updated %s)\n", r.Temperature, r.Humidity, r.LastUpdate)
}

// WriteHistory prints scan history entries, newest first.
func WriteHistory(w io.Writer, records []*models.ScanRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No scans recorded yet.")
		return
	}
	for _, rec := range records {
		label := rec.Label
		if label == "" {
			label = "(unlabeled)"
		}
		fmt.Fprintf(w, "%s  %-9s  %-6s  %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"), rec.Kind, rec.Source, label)
	}
}

func bar(percent float64) string {
	fill := int(percent/100*barWidth + 0.5)
	if fill > barWidth {
		fill = barWidth
	}
	return strings.Repeat("#", fill) + strings.Repeat("-", barWidth-fill)
}
