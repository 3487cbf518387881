package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testDecision(id string, typ model.OpportunityType, source model.Source, ago time.Duration) *model.Decision {
	ts := time.Now().UTC().Add(-ago)
	return &model.Decision{
		DecisionID:      id,
		Timestamp:       ts,
		OpportunityType: typ,
		Source:          source,
		Content:         "test opportunity " + id,
		Score:           80,
		Sender:          "someone",
		ActionTaken:     "responded",
		DecisionMaker:   "system",
		CreatedAt:       ts,
	}
}

// --- Decisions ---

func TestSQLite_InsertDecision_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	d := testDecision("d1", model.TypeGolfCoaching, model.SourceEmail, time.Hour)
	d.Context = map[string]any{"thread": "abc"}
	require.NoError(t, st.InsertDecision(ctx, d))

	got, err := st.GetDecision(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, d.DecisionID, got.DecisionID)
	assert.Equal(t, model.TypeGolfCoaching, got.OpportunityType)
	assert.Equal(t, model.SourceEmail, got.Source)
	assert.Equal(t, "responded", got.ActionTaken)
	assert.Equal(t, map[string]any{"thread": "abc"}, got.Context)
}

func TestSQLite_InsertDecision_DuplicateRejected(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	d := testDecision("dup", model.TypeCoaching, model.SourceTwitter, time.Hour)
	require.NoError(t, st.InsertDecision(ctx, d))

	again := testDecision("dup", model.TypeCoaching, model.SourceTwitter, time.Hour)
	again.Content = "different content, same id"
	err := st.InsertDecision(ctx, again)
	require.ErrorIs(t, err, ErrDuplicateDecision)

	// Cardinality unchanged, original row untouched.
	n, err := st.CountDecisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetDecision(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "test opportunity dup", got.Content)
}

func TestSQLite_GetDecision_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetDecision(context.Background(), "missing")
	require.ErrorIs(t, err, ErrDecisionNotFound)
}

// --- Outcomes ---

func TestSQLite_RecordOutcome_ComputesTimeToOutcome(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertDecision(ctx,
		testDecision("d1", model.TypeCoaching, model.SourceEmail, 48*time.Hour)))

	recorded, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID:       "d1",
		OutcomeType:      "sale",
		Status:           "closed",
		RevenueGenerated: 200,
		CustomerAcquired: true,
		DealClosed:       true,
		// A caller-supplied value must be ignored.
		TimeToOutcomeHours: 999,
	})
	require.NoError(t, err)
	assert.InDelta(t, 48, recorded.TimeToOutcomeHours, 0.1)
	assert.False(t, recorded.RecordedAt.IsZero())
}

func TestSQLite_RecordOutcome_OrphanRejected(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID: "ghost",
		Status:     "closed",
	})
	require.ErrorIs(t, err, ErrDecisionNotFound)

	// Nothing was written.
	metrics, err := st.ListConversionMetrics(ctx)
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

// --- Conversion metrics ---

func TestSQLite_ConversionMetrics_ExactRecompute(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Two decisions for the same pair, one converts with $300.
	require.NoError(t, st.InsertDecision(ctx,
		testDecision("c1", model.TypeGolfCoaching, model.SourceEmail, 24*time.Hour)))
	require.NoError(t, st.InsertDecision(ctx,
		testDecision("c2", model.TypeGolfCoaching, model.SourceEmail, 24*time.Hour)))

	_, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID:       "c1",
		OutcomeType:      "sale",
		Status:           "closed",
		RevenueGenerated: 300,
		CustomerAcquired: true,
		DealClosed:       true,
		ResponseReceived: true,
	})
	require.NoError(t, err)

	metrics, err := st.ListConversionMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, model.SourceEmail, m.Source)
	assert.Equal(t, model.TypeGolfCoaching, m.OpportunityType)
	assert.Equal(t, 2, m.TotalDecisions)
	assert.Equal(t, 1, m.TotalCustomers)
	assert.Equal(t, 1, m.TotalDealsClosed)
	assert.Equal(t, 1, m.TotalResponses)
	assert.InDelta(t, 300.0, m.TotalRevenue, 0.001)
	assert.InDelta(t, 50.0, m.ConversionRate, 0.001)
}

func TestSQLite_ConversionMetrics_MultipleOutcomesAdditive(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertDecision(ctx,
		testDecision("m1", model.TypePartnership, model.SourceTwitter, 10*time.Hour)))

	_, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID: "m1", OutcomeType: "response", Status: "open",
		ResponseReceived: true,
	})
	require.NoError(t, err)

	_, err = st.RecordOutcome(ctx, &model.Outcome{
		DecisionID: "m1", OutcomeType: "sale", Status: "closed",
		RevenueGenerated: 500, CustomerAcquired: true, DealClosed: true,
	})
	require.NoError(t, err)

	metrics, err := st.ListConversionMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, 1, m.TotalDecisions)
	assert.Equal(t, 1, m.TotalResponses)
	assert.Equal(t, 1, m.TotalCustomers)
	assert.InDelta(t, 500.0, m.TotalRevenue, 0.001)
	// One decision, one customer: fully recomputed, not incremented twice.
	assert.InDelta(t, 100.0, m.ConversionRate, 0.001)
}

func TestSQLite_ConversionMetrics_PairIsolation(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertDecision(ctx,
		testDecision("p1", model.TypeCoaching, model.SourceEmail, time.Hour)))
	require.NoError(t, st.InsertDecision(ctx,
		testDecision("p2", model.TypeCoaching, model.SourceTwitter, time.Hour)))

	_, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID: "p1", OutcomeType: "sale", Status: "closed",
		RevenueGenerated: 100, CustomerAcquired: true,
	})
	require.NoError(t, err)

	metrics, err := st.ListConversionMetrics(ctx)
	require.NoError(t, err)
	// Only the (email, coaching) pair has a metric row; the twitter
	// decision has no outcome yet and its pair was never recomputed.
	require.Len(t, metrics, 1)
	assert.Equal(t, model.SourceEmail, metrics[0].Source)
}

// --- ROI ---

func TestSQLite_ROIByType_AvgPerDecisionUsesDecisionCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Two decisions, one $300 outcome: avg revenue per decision is 150,
	// averaged over decisions rather than outcomes.
	require.NoError(t, st.InsertDecision(ctx,
		testDecision("r1", model.TypeGolfCoaching, model.SourceEmail, time.Hour)))
	require.NoError(t, st.InsertDecision(ctx,
		testDecision("r2", model.TypeGolfCoaching, model.SourceEmail, time.Hour)))

	_, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID: "r1", OutcomeType: "sale", Status: "closed",
		RevenueGenerated: 300, CustomerAcquired: true, DealClosed: true,
	})
	require.NoError(t, err)

	rows, err := st.ROIByType(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, 2, r.DecisionsMade)
	assert.InDelta(t, 300.0, r.TotalRevenue, 0.001)
	assert.InDelta(t, 150.0, r.AvgRevenuePerDecision, 0.001)
	assert.Equal(t, 1, r.ClosedDeals)
}

func TestSQLite_ROIByType_ExcludesZeroRevenuePairs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertDecision(ctx,
		testDecision("z1", model.TypeProductFeedback, model.SourceTwitter, time.Hour)))
	_, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID: "z1", OutcomeType: "response", Status: "closed",
		ResponseReceived: true,
	})
	require.NoError(t, err)

	rows, err := st.ROIByType(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// --- History ---

func TestSQLite_ListHistory_OrderAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("h%02d", i)
		require.NoError(t, st.InsertDecision(ctx,
			testDecision(id, model.TypeCoaching, model.SourceEmail, time.Duration(25-i)*time.Hour)))
		_, err := st.RecordOutcome(ctx, &model.Outcome{
			DecisionID: id, OutcomeType: "sale", Status: "closed",
			RevenueGenerated: float64(i), CustomerAcquired: i%2 == 0,
		})
		require.NoError(t, err)
	}

	entries, err := st.ListHistory(ctx, model.TypeCoaching, model.SourceEmail, 20)
	require.NoError(t, err)
	require.Len(t, entries, 20)

	// Newest decision first.
	assert.Equal(t, "h24", entries[0].DecisionID)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.After(entries[i-1].Timestamp))
	}
}

func TestSQLite_ListHistory_OnlyDecisionsWithOutcomes(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertDecision(ctx,
		testDecision("with", model.TypeFitness, model.SourceTwitter, 2*time.Hour)))
	require.NoError(t, st.InsertDecision(ctx,
		testDecision("without", model.TypeFitness, model.SourceTwitter, time.Hour)))

	_, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID: "with", OutcomeType: "sale", Status: "closed",
		RevenueGenerated: 50, CustomerAcquired: true,
	})
	require.NoError(t, err)

	entries, err := st.ListHistory(ctx, model.TypeFitness, model.SourceTwitter, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "with", entries[0].DecisionID)
	assert.True(t, entries[0].CustomerAcquired)
}

// --- Daily summary ---

func TestSQLite_SummaryCounts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertDecision(ctx,
		testDecision("s1", model.TypeGolfCoaching, model.SourceEmail, 0)))
	require.NoError(t, st.InsertDecision(ctx,
		testDecision("s2", model.TypePartnership, model.SourceTwitter, 0)))

	_, err := st.RecordOutcome(ctx, &model.Outcome{
		DecisionID: "s1", OutcomeType: "sale", Status: "closed",
		RevenueGenerated: 250, CustomerAcquired: true, DealClosed: true,
	})
	require.NoError(t, err)

	today := time.Now().UTC().Format("2006-01-02")
	counts, err := st.SummaryCounts(ctx, today)
	require.NoError(t, err)

	assert.Equal(t, 2, counts.Decisions.Count)
	assert.ElementsMatch(t, []string{"golf_coaching", "partnership"}, counts.Decisions.Types)
	assert.ElementsMatch(t, []string{"email", "twitter"}, counts.Decisions.Sources)
	assert.Equal(t, 1, counts.Outcomes.Total)
	assert.InDelta(t, 250.0, counts.Outcomes.Revenue, 0.001)
	assert.Equal(t, 1, counts.Outcomes.Customers)
	assert.Equal(t, 1, counts.Outcomes.DealsClosed)
}

func TestSQLite_SummaryCounts_EmptyDay(t *testing.T) {
	st := newTestSQLiteStore(t)

	counts, err := st.SummaryCounts(context.Background(), "1999-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Decisions.Count)
	assert.Empty(t, counts.Decisions.Types)
	assert.Equal(t, 0, counts.Outcomes.Total)
}

// --- Insights ---

func TestSQLite_Insights_SaveAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	insights := []model.Insight{
		{Type: model.InsightConversion, Title: "a", Description: "da", Confidence: 0.5, DataPoints: 5, GeneratedAt: now.Add(-time.Minute), IsActive: true},
		{Type: model.InsightRevenue, Title: "b", Description: "db", Confidence: 1.0, DataPoints: 12, GeneratedAt: now, IsActive: true},
	}
	require.NoError(t, st.SaveInsights(ctx, insights))

	got, err := st.ListInsights(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, model.InsightRevenue, got[0].Type)
	assert.InDelta(t, 1.0, got[0].Confidence, 0.001)
}

func TestSQLite_Insights_SaveEmptyIsNoop(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.SaveInsights(context.Background(), nil))
}
