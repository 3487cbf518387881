package model

import "time"

// InsightType identifies which heuristic produced an insight.
type InsightType string

const (
	InsightConversion InsightType = "conversion"
	InsightComparison InsightType = "comparison"
	InsightTiming     InsightType = "timing"
	InsightRevenue    InsightType = "revenue"
)

// Insight is a ranked, confidence-scored observation over the aggregates.
// Confidence is a sample-size ramp (min(n/required, 1)), not a p-value.
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
	DataPoints  int         `json:"data_points"`
	GeneratedAt time.Time   `json:"generated_at"`
	IsActive    bool        `json:"is_active"`
}
