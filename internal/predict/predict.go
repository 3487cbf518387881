// Package predict estimates outcomes for not-yet-decided opportunities
// from historical analogs sharing the same (type, source) pair.
package predict

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

// maxAnalogs caps how many historical analogs feed a prediction. It is
// also the sample size at which confidence reaches 1.0.
const maxAnalogs = 20

// conversionThreshold splits predicted_outcome: at or above predicts
// conversion, below predicts no_conversion.
const conversionThreshold = 0.5

// Engine predicts outcomes from the ledger history.
type Engine struct {
	store store.Store
}

// NewEngine creates an Engine over st.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// Predict estimates the outcome of a candidate (type, source) pair from
// up to 20 of the most recent analog decisions that have recorded
// outcomes. With zero analogs it returns the defined "unknown" result
// rather than an error.
func (e *Engine) Predict(ctx context.Context, typ model.OpportunityType, source model.Source) (*model.Prediction, error) {
	history, err := e.store.ListHistory(ctx, typ, source, maxAnalogs)
	if err != nil {
		return nil, eris.Wrapf(err, "predict: load analogs for %s/%s", typ, source)
	}

	if len(history) == 0 {
		return &model.Prediction{
			PredictedOutcome: model.OutcomeUnknown,
			Reasoning:        "No historical data for this opportunity type and source",
		}, nil
	}

	var conversions int
	var revenueSum, hoursSum float64
	for _, h := range history {
		if h.CustomerAcquired {
			conversions++
		}
		revenueSum += h.RevenueGenerated
		hoursSum += h.TimeToOutcomeHours
	}

	n := float64(len(history))
	probability := float64(conversions) / n
	avgRevenue := revenueSum / n
	avgHours := hoursSum / n

	outcome := model.OutcomeNoConversion
	if probability >= conversionThreshold {
		outcome = model.OutcomeConversion
	}

	// The store returns analogs newest-first; the most similar one is
	// the most recent.
	recent := history[0]

	return &model.Prediction{
		PredictedOutcome:      outcome,
		ConversionProbability: probability * 100,
		PredictedRevenue:      avgRevenue,
		AvgTimeToCloseHours:   avgHours,
		AvgTimeToCloseDays:    avgHours / 24,
		Confidence:            min(n/maxAnalogs, 1.0),
		Reasoning: fmt.Sprintf("Based on %d similar decisions: %d converted (%.0f%%), avg revenue $%.2f. Sample size: %s.",
			len(history), conversions, probability*100, avgRevenue, sampleLabel(len(history))),
		SimilarCount: len(history),
		MostSimilar: &model.SimilarDecision{
			DecisionID: recent.DecisionID,
			Revenue:    recent.RevenueGenerated,
			Converted:  recent.CustomerAcquired,
		},
	}, nil
}

// sampleLabel buckets the analog count: fewer than 5 is low, 5-9 is
// moderate, 10 or more is high.
func sampleLabel(n int) string {
	switch {
	case n < 5:
		return "low"
	case n < 10:
		return "moderate"
	default:
		return "high"
	}
}
