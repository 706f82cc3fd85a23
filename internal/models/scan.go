package models

import (
	"encoding/json"
	"time"
)

// ScanKind distinguishes the two analysis flows.
type ScanKind string

const (
	ScanNutrition ScanKind = "nutrition"
	ScanSpoilage  ScanKind = "spoilage"
)

// ScanRecord is one completed analysis kept in history. Result holds the
// normalized record as JSON so history replay does not depend on the
// backend being reachable.
type ScanRecord struct {
	ID        string          `json:"id"`
	Kind      ScanKind        `json:"kind"`
	Label     string          `json:"label"`
	Source    string          `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
	Result    json.RawMessage `json:"result"`
}
