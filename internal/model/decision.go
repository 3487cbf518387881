package model

import "time"

// Decision is the immutable record of an action taken on an opportunity.
// Rows are append-only: corrections are made by logging a new decision,
// never by updating or deleting an existing one.
type Decision struct {
	DecisionID      string          `json:"decision_id"`
	Timestamp       time.Time       `json:"timestamp"`
	OpportunityType OpportunityType `json:"opportunity_type"`
	Source          Source          `json:"source"`
	Content         string          `json:"content"`
	Score           int             `json:"score"`
	Sender          string          `json:"sender"`
	ActionTaken     string          `json:"action_taken"`
	DecisionMaker   string          `json:"decision_maker"`
	Context         map[string]any  `json:"context,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Outcome records a result tied to a decision. A decision may accumulate
// multiple outcomes (a response, then a closed deal); the aggregator sums
// them additively.
type Outcome struct {
	DecisionID         string    `json:"decision_id"`
	OutcomeType        string    `json:"outcome_type"`
	Status             string    `json:"status"`
	RevenueGenerated   float64   `json:"revenue_generated"`
	CustomerAcquired   bool      `json:"customer_acquired"`
	DealClosed         bool      `json:"deal_closed"`
	ResponseReceived   bool      `json:"response_received"`
	TimeToOutcomeHours float64   `json:"time_to_outcome_hours"`
	Notes              string    `json:"notes,omitempty"`
	RecordedAt         time.Time `json:"recorded_at"`
}

// HistoryEntry is a past decision joined to its outcome, sharing
// (type, source) with a candidate opportunity. The prediction engine
// treats these as historical analogs.
type HistoryEntry struct {
	DecisionID         string    `json:"decision_id"`
	Timestamp          time.Time `json:"timestamp"`
	Content            string    `json:"content"`
	Score              int       `json:"score"`
	CustomerAcquired   bool      `json:"customer_acquired"`
	RevenueGenerated   float64   `json:"revenue_generated"`
	TimeToOutcomeHours float64   `json:"time_to_outcome_hours"`
}
