// Package ledger is the decision ledger: an append-only audit trail of
// actions taken on opportunities, the outcomes that followed, and the
// read views derived from both.
package ledger

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

const maxContentSnapshot = 1000

// InsightSource produces fresh insights for daily summaries.
type InsightSource interface {
	Generate(ctx context.Context) ([]model.Insight, error)
}

// Ledger provides the decision-tracking surface over a Store.
type Ledger struct {
	store    store.Store
	insights InsightSource
}

// New creates a Ledger. insights may be nil; daily summaries then omit
// the insight section.
func New(st store.Store, insights InsightSource) *Ledger {
	return &Ledger{store: st, insights: insights}
}

// LogDecision appends one immutable decision row. Returns false when the
// decision_id already exists: the insert is rejected and logged, never
// merged, and the caller's batch continues. Store failures propagate.
func (l *Ledger) LogDecision(ctx context.Context, d model.Decision) (bool, error) {
	if d.DecisionID == "" {
		d.DecisionID = uuid.New().String()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = d.Timestamp
	}
	if d.DecisionMaker == "" {
		d.DecisionMaker = "system"
	}
	if utf8.RuneCountInString(d.Content) > maxContentSnapshot {
		d.Content = string([]rune(d.Content)[:maxContentSnapshot])
	}

	err := l.store.InsertDecision(ctx, &d)
	if eris.Is(err, store.ErrDuplicateDecision) {
		zap.L().Warn("ledger: decision already exists",
			zap.String("decision_id", d.DecisionID),
		)
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "ledger: log decision")
	}

	zap.L().Info("ledger: decision logged",
		zap.String("decision_id", d.DecisionID),
		zap.String("action", d.ActionTaken),
		zap.String("type", string(d.OpportunityType)),
		zap.String("source", string(d.Source)),
	)
	return true, nil
}

// RecordOutcome appends an outcome for an existing decision and
// recomputes the conversion metrics for its (source, type) pair. Returns
// false when the referenced decision does not exist: the outcome is
// discarded and logged. Time-to-outcome is always derived from the
// decision timestamp, never taken from the caller.
func (l *Ledger) RecordOutcome(ctx context.Context, o model.Outcome) (bool, error) {
	recorded, err := l.store.RecordOutcome(ctx, &o)
	if eris.Is(err, store.ErrDecisionNotFound) {
		zap.L().Error("ledger: outcome references unknown decision",
			zap.String("decision_id", o.DecisionID),
		)
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "ledger: record outcome")
	}

	zap.L().Info("ledger: outcome recorded",
		zap.String("decision_id", recorded.DecisionID),
		zap.String("status", recorded.Status),
		zap.Float64("revenue", recorded.RevenueGenerated),
		zap.Float64("hours_to_outcome", recorded.TimeToOutcomeHours),
	)
	return true, nil
}

// GetConversionRates returns the conversion view, best-converting pairs
// first.
func (l *Ledger) GetConversionRates(ctx context.Context) ([]model.ConversionMetric, error) {
	return l.store.ListConversionMetrics(ctx)
}

// CalculateROIByType returns the revenue-per-decision view for pairs
// with positive revenue.
func (l *Ledger) CalculateROIByType(ctx context.Context) ([]model.ROIRow, error) {
	return l.store.ROIByType(ctx)
}

// GetDailySummary rolls up one day of ledger activity. date is
// YYYY-MM-DD; empty means today.
func (l *Ledger) GetDailySummary(ctx context.Context, date string) (*model.DailySummary, error) {
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	counts, err := l.store.SummaryCounts(ctx, date)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: daily summary")
	}

	summary := &model.DailySummary{
		Date:      date,
		Decisions: counts.Decisions,
		Outcomes:  counts.Outcomes,
	}

	if l.insights != nil {
		insights, err := l.insights.Generate(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "ledger: summary insights")
		}
		if len(insights) > 5 {
			insights = insights[:5]
		}
		summary.Insights = insights
	}

	rates, err := l.store.ListConversionMetrics(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: summary conversion rates")
	}
	if len(rates) > 3 {
		rates = rates[:3]
	}
	summary.ConversionRates = rates

	return summary, nil
}
