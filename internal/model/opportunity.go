package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Source identifies the collector that produced an opportunity.
type Source string

const (
	SourceTwitter          Source = "twitter"
	SourceEmail            Source = "email"
	SourceRevenueDashboard Source = "revenue_dashboard"
)

// OpportunityType classifies what kind of monetizable interaction a
// signal might represent.
type OpportunityType string

const (
	TypeGolfCoaching    OpportunityType = "golf_coaching"
	TypeCoaching        OpportunityType = "coaching"
	TypePartnership     OpportunityType = "partnership"
	TypeProductFeedback OpportunityType = "product_feedback"
	TypeFitness         OpportunityType = "fitness"
	TypeConversion      OpportunityType = "conversion"
	TypeGeneral         OpportunityType = "general"
)

// ErrMalformedRecord marks an incoming record missing a required field.
// Such records are skipped and counted; they never abort a batch.
var ErrMalformedRecord = eris.New("malformed opportunity record")

// OpportunityRecord is the raw boundary format collectors feed into the
// normalizer. Type is optional; when empty it is inferred from content.
type OpportunityRecord struct {
	Source         Source          `json:"source"`
	Type           OpportunityType `json:"type,omitempty"`
	Content        string          `json:"content"`
	Subject        string          `json:"subject,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Sender         string          `json:"sender,omitempty"`
	RawScore       int             `json:"raw_score,omitempty"`
	InfluenceScore int             `json:"influence_score,omitempty"`
	FollowerCount  int             `json:"follower_count,omitempty"`
	VerifiedSender bool            `json:"verified_sender,omitempty"`
}

// Validate checks the fields every record must carry.
func (r *OpportunityRecord) Validate() error {
	if r.Source == "" {
		return eris.Wrap(ErrMalformedRecord, "missing source")
	}
	if r.Content == "" {
		return eris.Wrap(ErrMalformedRecord, "missing content")
	}
	return nil
}

// Opportunity is a normalized, scored signal. It is transient: consumed
// immediately by whatever logs the decision, never persisted as its own
// record.
type Opportunity struct {
	Type             OpportunityType `json:"type"`
	Score            int             `json:"score"`
	Source           Source          `json:"source"`
	Sender           string          `json:"sender"`
	Content          string          `json:"content"`
	RevenuePotential string          `json:"revenue_potential"`
	ActionRequired   string          `json:"action_required"`
	Timestamp        time.Time       `json:"timestamp"`
	RawScore         int             `json:"raw_score,omitempty"`
	InfluenceScore   int             `json:"influence_score,omitempty"`
	Fingerprint      string          `json:"fingerprint,omitempty"`
}
