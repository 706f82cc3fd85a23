package analysis

import (
	"encoding/json"
	"testing"
)

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"number", `12`, 12},
		{"float", `3.5`, 3.5},
		{"numeric string", `"12"`, 12},
		{"string with unit", `"12g"`, 12},
		{"string with space and unit", `"2300 mg"`, 2300},
		{"negative string", `"-4"`, -4},
		{"not a number", `"N/A"`, 0},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
		{"object", `{"v":1}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			if a.Float64() != tt.want {
				t.Errorf("got %v, want %v", a.Float64(), tt.want)
			}
		})
	}
}

func TestStringListUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"array", `["water","salt"]`, []string{"water", "salt"}},
		{"comma string", `"water, salt, sugar"`, []string{"water", "salt", "sugar"}},
		{"single string", `"water"`, []string{"water"}},
		{"null", `null`, nil},
		{"mixed array", `["water", 7, null]`, []string{"water", "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l StringList
			if err := json.Unmarshal([]byte(tt.in), &l); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			if len(l) != len(tt.want) {
				t.Fatalf("got %v, want %v", l, tt.want)
			}
			for i := range l {
				if l[i] != tt.want[i] {
					t.Errorf("item %d: got %q, want %q", i, l[i], tt.want[i])
				}
			}
		})
	}
}

func TestTierForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
	}{
		{10, TierFavorable},
		{8.0, TierFavorable},
		{7.999, TierCaution},
		{6.0, TierCaution},
		{5.999, TierUnfavorable},
		{0, TierUnfavorable},
	}
	for _, tt := range tests {
		if got := TierForScore(tt.score); got != tt.want {
			t.Errorf("TierForScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestNutritionRoundTrip(t *testing.T) {
	n := &Nutrition{
		Calories:    250,
		Protein:     12,
		HealthScore: 7.5,
		ServingSize: "100g",
		Warnings:    StringList{"high sodium"},
	}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// The wire keys must match what the backend expects for email sharing.
	for _, key := range []string{"calories", "protein", "health_score", "serving_size", "warnings"} {
		if _, ok := m[key]; !ok {
			t.Errorf("marshaled nutrition missing key %q", key)
		}
	}
}
