package predict

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "predict.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// seedHistory creates n decided-and-resolved opportunities for the pair,
// of which "converted" acquired a customer with the given revenue.
func seedHistory(t *testing.T, st store.Store, typ model.OpportunityType, source model.Source, n, converted int, revenue float64) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%s-%03d", source, typ, i)
		require.NoError(t, st.InsertDecision(ctx, &model.Decision{
			DecisionID:      id,
			Timestamp:       time.Now().UTC().Add(-time.Duration(n-i) * time.Hour),
			OpportunityType: typ,
			Source:          source,
			ActionTaken:     "responded",
			DecisionMaker:   "system",
			CreatedAt:       time.Now().UTC(),
		}))
		o := &model.Outcome{
			DecisionID:  id,
			OutcomeType: "sale",
			Status:      "closed",
		}
		if i < converted {
			o.RevenueGenerated = revenue
			o.CustomerAcquired = true
		}
		_, err := st.RecordOutcome(ctx, o)
		require.NoError(t, err)
	}
}

func TestPredict_NoHistoryIsUnknown(t *testing.T) {
	st := newTestStore(t)

	pred, err := NewEngine(st).Predict(context.Background(),
		model.TypeGolfCoaching, model.SourceEmail)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeUnknown, pred.PredictedOutcome)
	assert.Zero(t, pred.ConversionProbability)
	assert.Zero(t, pred.Confidence)
	assert.Zero(t, pred.SimilarCount)
	assert.Nil(t, pred.MostSimilar)
	assert.Equal(t, "No historical data for this opportunity type and source", pred.Reasoning)
}

func TestPredict_MajorityConversion(t *testing.T) {
	st := newTestStore(t)
	seedHistory(t, st, model.TypeCoaching, model.SourceEmail, 10, 8, 100)

	pred, err := NewEngine(st).Predict(context.Background(),
		model.TypeCoaching, model.SourceEmail)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeConversion, pred.PredictedOutcome)
	assert.InDelta(t, 80.0, pred.ConversionProbability, 0.001)
	// 8 conversions at $100 across 10 analogs.
	assert.InDelta(t, 80.0, pred.PredictedRevenue, 0.001)
	assert.InDelta(t, 0.5, pred.Confidence, 0.001)
	assert.Equal(t, 10, pred.SimilarCount)
	assert.Contains(t, pred.Reasoning, "Sample size: high")
	require.NotNil(t, pred.MostSimilar)
}

func TestPredict_MinorityConversion(t *testing.T) {
	st := newTestStore(t)
	seedHistory(t, st, model.TypeGeneral, model.SourceTwitter, 10, 3, 50)

	pred, err := NewEngine(st).Predict(context.Background(),
		model.TypeGeneral, model.SourceTwitter)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeNoConversion, pred.PredictedOutcome)
	assert.InDelta(t, 30.0, pred.ConversionProbability, 0.001)
}

func TestPredict_ExactlyHalfIsConversion(t *testing.T) {
	st := newTestStore(t)
	seedHistory(t, st, model.TypeFitness, model.SourceTwitter, 4, 2, 60)

	pred, err := NewEngine(st).Predict(context.Background(),
		model.TypeFitness, model.SourceTwitter)
	require.NoError(t, err)

	// The threshold is inclusive: exactly 50% predicts conversion.
	assert.Equal(t, model.OutcomeConversion, pred.PredictedOutcome)
	assert.InDelta(t, 50.0, pred.ConversionProbability, 0.001)
}

func TestPredict_ConfidenceMonotoneAndSaturating(t *testing.T) {
	var prev float64
	for _, n := range []int{2, 5, 10, 20} {
		st := newTestStore(t)
		seedHistory(t, st, model.TypeCoaching, model.SourceEmail, n, n, 100)

		pred, err := NewEngine(st).Predict(context.Background(),
			model.TypeCoaching, model.SourceEmail)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pred.Confidence, prev)
		prev = pred.Confidence
	}
	assert.InDelta(t, 1.0, prev, 0.001)
}

func TestPredict_CapsAnalogsAtTwenty(t *testing.T) {
	st := newTestStore(t)
	seedHistory(t, st, model.TypeCoaching, model.SourceEmail, 30, 30, 100)

	pred, err := NewEngine(st).Predict(context.Background(),
		model.TypeCoaching, model.SourceEmail)
	require.NoError(t, err)

	assert.Equal(t, 20, pred.SimilarCount)
	assert.InDelta(t, 1.0, pred.Confidence, 0.001)
}

func TestPredict_MostSimilarIsMostRecent(t *testing.T) {
	st := newTestStore(t)
	seedHistory(t, st, model.TypeCoaching, model.SourceEmail, 5, 2, 75)

	pred, err := NewEngine(st).Predict(context.Background(),
		model.TypeCoaching, model.SourceEmail)
	require.NoError(t, err)

	require.NotNil(t, pred.MostSimilar)
	// Decisions are seeded oldest-first; the last id is the newest.
	assert.Equal(t, "email-coaching-004", pred.MostSimilar.DecisionID)
}
