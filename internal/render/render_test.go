package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fresheye/fresheye/internal/analysis"
	"github.com/fresheye/fresheye/internal/models"
)

func TestNumericStringRendersWithUnit(t *testing.T) {
	// Backends sometimes send numbers as strings; the display must still be
	// a clean "12g", never a NaN artifact.
	var n analysis.Nutrition
	if err := json.Unmarshal([]byte(`{"protein":"12","sodium":"480"}`), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := Grams(n.Protein); got != "12g" {
		t.Errorf("Grams = %q, want 12g", got)
	}
	if got := Milligrams(n.Sodium); got != "480mg" {
		t.Errorf("Milligrams = %q, want 480mg", got)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{12, "12"},
		{3.5, "3.5"},
		{0, "0"},
		{0.25, "0.25"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBarPercent(t *testing.T) {
	tests := []struct {
		value, max, want float64
	}{
		{25, 50, 50},
		{50, 50, 100},
		{75, 50, 100}, // clamped
		{0, 50, 0},
		{-5, 50, 0},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := BarPercent(tt.value, tt.max); got != tt.want {
			t.Errorf("BarPercent(%v, %v) = %v, want %v", tt.value, tt.max, got, tt.want)
		}
	}
}

func TestScoreLabelBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{8.0, "Healthy choice"},
		{7.999, "Consume in moderation"},
		{6.0, "Consume in moderation"},
		{5.999, "Consider healthier alternatives"},
	}
	for _, tt := range tests {
		if got := ScoreLabel(tt.score); got != tt.want {
			t.Errorf("ScoreLabel(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestWarningsFallback(t *testing.T) {
	n := &analysis.Nutrition{}
	got := Warnings(n)
	if len(got) != 1 || got[0] != NoWarnings {
		t.Errorf("Warnings on empty list = %v", got)
	}

	n.Warnings = analysis.StringList{"high sodium"}
	got = Warnings(n)
	if len(got) != 1 || got[0] != "high sodium" {
		t.Errorf("Warnings = %v", got)
	}
}

func TestWriteNutrition(t *testing.T) {
	var n analysis.Nutrition
	body := `{"calories":250,"protein":"12","carbs":30,"fat":8,"health_score":8.5,"serving_size":"100g"}`
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var out strings.Builder
	WriteNutrition(&out, &n)
	text := out.String()

	for _, want := range []string{"8.5/10", "Healthy choice", "250 kcal", "12g", NoWarnings} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "NaN") {
		t.Errorf("output contains NaN:\n%s", text)
	}
}

func TestWriteSpoilage(t *testing.T) {
	s := &analysis.Spoilage{
		FoodName:   "Banana",
		Status:     analysis.StatusWarning,
		Confidence: 85,
		Indicators: analysis.StringList{"dark spots forming"},
	}
	var out strings.Builder
	WriteSpoilage(&out, s)
	text := out.String()
	for _, want := range []string{"Banana", "Check before use", "85.0%", "dark spots"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestWriteSensor(t *testing.T) {
	var out strings.Builder
	WriteSensor(&out, models.Disconnected())
	if !strings.Contains(out.String(), "disconnected") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	WriteSensor(&out, models.SensorReading{Temperature: 21.5, Humidity: 60.2, LastUpdate: "13:00:05", Connected: true})
	if !strings.Contains(out.String(), "21.5") || !strings.Contains(out.String(), "60.2") {
		t.Errorf("output = %q", out.String())
	}
}

func TestWriteHistoryEmpty(t *testing.T) {
	var out strings.Builder
	WriteHistory(&out, nil)
	if !strings.Contains(out.String(), "No scans") {
		t.Errorf("output = %q", out.String())
	}
}
