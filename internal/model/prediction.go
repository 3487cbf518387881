package model

// Predicted outcome labels. "unknown" is the defined terminal case for a
// (type, source) pair with no history, not an error.
const (
	OutcomeConversion   = "conversion"
	OutcomeNoConversion = "no_conversion"
	OutcomeUnknown      = "unknown"
)

// SimilarDecision summarizes the most recent historical analog backing a
// prediction.
type SimilarDecision struct {
	DecisionID string  `json:"decision_id"`
	Revenue    float64 `json:"revenue"`
	Converted  bool    `json:"converted"`
}

// Prediction is the historical-analog estimate for a not-yet-decided
// opportunity. It is computed on request and never persisted as ground
// truth.
type Prediction struct {
	PredictedOutcome      string           `json:"predicted_outcome"`
	ConversionProbability float64          `json:"conversion_probability"`
	PredictedRevenue      float64          `json:"predicted_revenue"`
	AvgTimeToCloseHours   float64          `json:"avg_time_to_close_hours"`
	AvgTimeToCloseDays    float64          `json:"avg_time_to_close_days"`
	Confidence            float64          `json:"confidence"`
	Reasoning             string           `json:"reasoning"`
	SimilarCount          int              `json:"similar_count"`
	MostSimilar           *SimilarDecision `json:"most_similar_decision,omitempty"`
}
