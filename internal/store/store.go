// Package store persists the decision ledger, outcomes, conversion
// metrics, and insights behind one interface so the backing engine is
// swappable.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// Sentinel conditions callers branch on with eris.Is.
var (
	// ErrDuplicateDecision is returned when a decision_id already exists.
	// The insert is rejected, never merged.
	ErrDuplicateDecision = eris.New("decision already exists")

	// ErrDecisionNotFound is returned when an outcome references an
	// unknown decision. The outcome is discarded, never orphaned.
	ErrDecisionNotFound = eris.New("decision not found")
)

// SummaryCounts holds the raw per-day ledger counts behind a daily
// summary.
type SummaryCounts struct {
	Decisions model.DecisionActivity
	Outcomes  model.OutcomeActivity
}

// Store defines the persistence surface for the decision ledger and its
// read views. The ledger is append-only: there is no update or delete
// for decisions or outcomes.
type Store interface {
	// Ledger writes.
	InsertDecision(ctx context.Context, d *model.Decision) error
	// RecordOutcome inserts the outcome and recomputes the conversion
	// metric row for the decision's (source, type) pair from scratch,
	// inside a single serialized transaction. TimeToOutcomeHours is
	// computed here from the decision timestamp, never trusted from the
	// caller.
	RecordOutcome(ctx context.Context, o *model.Outcome) (*model.Outcome, error)

	// Ledger reads.
	GetDecision(ctx context.Context, decisionID string) (*model.Decision, error)
	CountDecisions(ctx context.Context) (int, error)
	// ListHistory returns the newest limit decisions for (typ, source)
	// joined to their outcomes, newest first.
	ListHistory(ctx context.Context, typ model.OpportunityType, source model.Source, limit int) ([]model.HistoryEntry, error)

	// Aggregate views.
	ListConversionMetrics(ctx context.Context) ([]model.ConversionMetric, error)
	ROIByType(ctx context.Context) ([]model.ROIRow, error)
	SummaryCounts(ctx context.Context, date string) (*SummaryCounts, error)

	// Insights.
	SaveInsights(ctx context.Context, insights []model.Insight) error
	ListInsights(ctx context.Context, limit int) ([]model.Insight, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
