package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// The backend wraps analysis results in several envelope revisions: a
// "nutrition" object, an "ollama_result" object, an "api_result" object, or a
// flat payload with the fields at the top level. Normalization probes those
// shapes in that fixed order and returns the first one that matches, so every
// page consumes one record type regardless of which backend produced it.

// envelope covers every response wrapper the analysis endpoints use.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Source  string `json:"source"`

	Nutrition    json.RawMessage `json:"nutrition"`
	OllamaResult json.RawMessage `json:"ollama_result"`
	APIResult    json.RawMessage `json:"api_result"`
	RawResponse  string          `json:"raw_response"`
}

// ShapeError reports a response that parsed as JSON but matched none of the
// known result shapes. Raw carries the unparsed model output when the backend
// included one.
type ShapeError struct {
	Raw string
}

func (e *ShapeError) Error() string {
	if e.Raw == "" {
		return "response matched no known result shape"
	}
	return fmt.Sprintf("response matched no known result shape: %s", truncate(e.Raw, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// BackendMessage extracts the "message" field from an error envelope.
// Returns "" when the body is not such an envelope.
func BackendMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}

// NormalizeNutrition turns a raw analysis response body into a Nutrition
// record, whichever envelope shape the backend used.
func NormalizeNutrition(body []byte) (*Nutrition, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding nutrition response: %w", err)
	}
	if env.Status != "" && env.Status != "success" {
		return nil, fmt.Errorf("nutrition analysis failed: %s", orUnknown(env.Message))
	}

	for _, raw := range []json.RawMessage{env.Nutrition, env.OllamaResult, env.APIResult} {
		if !present(raw) {
			continue
		}
		n := new(Nutrition)
		if err := json.Unmarshal(raw, n); err != nil {
			continue
		}
		finishNutrition(n, env.Source)
		return n, nil
	}

	// Flat shape: the fields sit at the top level of the body itself.
	if hasAnyKey(body, "calories", "protein", "health_score") {
		n := new(Nutrition)
		if err := json.Unmarshal(body, n); err == nil {
			finishNutrition(n, env.Source)
			return n, nil
		}
	}

	return nil, &ShapeError{Raw: env.RawResponse}
}

func finishNutrition(n *Nutrition, source string) {
	if n.Source == "" {
		n.Source = source
	}
}

// NormalizeSpoilage turns a raw prediction response body into a Spoilage
// record. The same envelope order applies; the flat shape is what the
// latest-prediction endpoint serves.
func NormalizeSpoilage(body []byte) (*Spoilage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding prediction response: %w", err)
	}
	if env.Status != "" && env.Status != "success" {
		return nil, fmt.Errorf("spoilage analysis failed: %s", orUnknown(env.Message))
	}

	for _, raw := range []json.RawMessage{env.OllamaResult, env.APIResult} {
		if !present(raw) {
			continue
		}
		var w spoilageWire
		if err := json.Unmarshal(raw, &w); err != nil {
			continue
		}
		return w.record(env.Source), nil
	}

	if hasAnyKey(body, "predictedClass", "spoilage_status") {
		var w spoilageWire
		if err := json.Unmarshal(body, &w); err == nil {
			return w.record(env.Source), nil
		}
	}

	return nil, &ShapeError{Raw: env.RawResponse}
}

// spoilageWire is the union of the spoilage fields seen across backends.
type spoilageWire struct {
	PredictedClass string     `json:"predictedClass"`
	Confidence     Amount     `json:"confidence"`
	SpoilageStatus string     `json:"spoilage_status"`
	FoodItemName   string     `json:"foodItemName"`
	FreshnessScore Amount     `json:"freshness_score"`
	Indicators     StringList `json:"indicators"`
	Explanation    string     `json:"explanation"`
	Source         string     `json:"source"`
}

func (w *spoilageWire) record(source string) *Spoilage {
	if source == "" {
		source = w.Source
	}
	s := &Spoilage{
		FoodName:       w.FoodItemName,
		PredictedClass: w.PredictedClass,
		Status:         deriveStatus(w.SpoilageStatus, w.PredictedClass),
		Confidence:     normalizeConfidence(w.Confidence.Float64()),
		FreshnessScore: w.FreshnessScore,
		Indicators:     w.Indicators,
		Source:         source,
	}
	if len(s.Indicators) == 0 && w.Explanation != "" {
		s.Indicators = StringList{w.Explanation}
	}
	return s
}

// normalizeConfidence brings confidence to a 0-100 percentage. The image
// classifier reports a 0-1 probability, the language model a percentage.
func normalizeConfidence(c float64) float64 {
	if c > 0 && c <= 1 {
		c *= 100
	}
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// deriveStatus prefers the explicit spoilage_status field and falls back to
// keywords in the predicted class label ("rotten_apple", "fresh_banana").
func deriveStatus(explicit, class string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(explicit))) {
	case StatusFresh:
		return StatusFresh
	case StatusGood:
		return StatusGood
	case StatusWarning:
		return StatusWarning
	case StatusSpoiled:
		return StatusSpoiled
	}

	lc := strings.ToLower(class)
	switch {
	case strings.Contains(lc, "rotten"), strings.Contains(lc, "spoil"):
		return StatusSpoiled
	case strings.Contains(lc, "fresh"):
		return StatusFresh
	default:
		return StatusWarning
	}
}

func orUnknown(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func hasAnyKey(body []byte, keys ...string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return false
	}
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
