package analysis

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Status is the categorical freshness judgment returned by the backend.
type Status string

const (
	StatusFresh   Status = "fresh"
	StatusGood    Status = "good"
	StatusWarning Status = "warning"
	StatusSpoiled Status = "spoiled"
)

// Tier buckets a health score for presentation.
type Tier string

const (
	TierFavorable   Tier = "favorable"
	TierCaution     Tier = "caution"
	TierUnfavorable Tier = "unfavorable"
)

// TierForScore maps a 0-10 health score to its presentation tier.
// The boundaries are inclusive: exactly 8.0 is favorable, exactly 6.0 is caution.
func TierForScore(score float64) Tier {
	switch {
	case score >= 8:
		return TierFavorable
	case score >= 6:
		return TierCaution
	default:
		return TierUnfavorable
	}
}

// Amount is a numeric field that the backend may deliver as a JSON number
// or as a numeric string such as "12" or "2300 mg". Anything unparseable
// decodes to zero rather than failing the whole result.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = Amount(parseLeadingFloat(s))
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*a = 0
		return nil
	}
	*a = Amount(f)
	return nil
}

func (a Amount) Float64() float64 { return float64(a) }

// parseLeadingFloat reads the leading numeric portion of a string, so that
// "12g" and "2300 mg" still yield a usable value. Returns 0 when the string
// carries no number at all ("N/A", "unknown", ...).
func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

// StringList decodes list fields that arrive in mixed shapes: a JSON array
// of strings, a single comma-separated string, or null all normalize to a
// plain slice.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			*l = nil
			return nil
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
				continue
			}
			// Non-string element (number, object); keep its literal text.
			if t := strings.TrimSpace(string(item)); t != "" && t != "null" {
				out = append(out, t)
			}
		}
		*l = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*l = nil
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}

// Nutrient is one entry of the additional_nutrients map (vitamins, minerals).
type Nutrient struct {
	Value      Amount `json:"value"`
	Unit       string `json:"unit"`
	DailyValue Amount `json:"daily_value,omitempty"`
}

// Nutrition is the normalized nutrition-facts record. Field names follow the
// backend wire format so a record can be sent back verbatim (email sharing).
type Nutrition struct {
	Calories    Amount     `json:"calories"`
	Protein     Amount     `json:"protein"`
	Carbs       Amount     `json:"carbs"`
	Fat         Amount     `json:"fat"`
	Fiber       Amount     `json:"fiber"`
	Sugar       Amount     `json:"sugar"`
	Sodium      Amount     `json:"sodium"`
	ServingSize string     `json:"serving_size"`
	Ingredients StringList `json:"ingredients"`
	HealthScore Amount     `json:"health_score"`
	Benefits    StringList `json:"benefits"`
	Warnings    StringList `json:"warnings"`

	Additional map[string]Nutrient `json:"additional_nutrients,omitempty"`

	// Source records which backend produced the result ("api", "ollama", ...).
	Source string `json:"source,omitempty"`
}

// Tier returns the presentation tier of the health score.
func (n *Nutrition) Tier() Tier { return TierForScore(n.HealthScore.Float64()) }

// Spoilage is the normalized freshness-classification record.
type Spoilage struct {
	FoodName       string     `json:"food_name"`
	PredictedClass string     `json:"predicted_class"`
	Status         Status     `json:"status"`
	Confidence     float64    `json:"confidence"` // percentage, 0-100
	FreshnessScore Amount     `json:"freshness_score,omitempty"`
	Indicators     StringList `json:"indicators,omitempty"`
	Source         string     `json:"source,omitempty"`
}
