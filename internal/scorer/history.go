package scorer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// History supplies the ledger-derived data the history scorer blends in.
type History interface {
	ConversionRates(ctx context.Context) ([]model.ConversionMetric, error)
	ROIByType(ctx context.Context) ([]model.ROIRow, error)
	Predict(ctx context.Context, typ model.OpportunityType, source model.Source) (*model.Prediction, error)
}

// ScoredOpportunity is an opportunity enriched with history-adjusted
// scoring.
type ScoredOpportunity struct {
	model.Opportunity
	OriginalScore         int     `json:"original_score"`
	AdjustedScore         int     `json:"adjusted_score"`
	PredictedRevenue      float64 `json:"predicted_revenue"`
	ConversionProbability float64 `json:"conversion_probability"`
	PredictionConfidence  float64 `json:"prediction_confidence"`
	SampleSize            int     `json:"sample_size"`
	Reasoning             string  `json:"reasoning"`
	Recommendation        string  `json:"recommendation"`
}

// ScoringReport aggregates one batch of history-adjusted scoring.
type ScoringReport struct {
	Timestamp             time.Time           `json:"timestamp"`
	TotalOpportunities    int                 `json:"total_opportunities"`
	AverageScore          float64             `json:"average_score"`
	TotalPredictedRevenue float64             `json:"total_predicted_revenue"`
	HighPriority          int                 `json:"high_priority"`
	MediumPriority        int                 `json:"medium_priority"`
	LowPriority           int                 `json:"low_priority"`
	Top                   []ScoredOpportunity `json:"top_opportunities"`
}

// HistoryScorer adjusts content-derived scores with what actually
// happened to similar opportunities: conversion rates, realized revenue,
// and the prediction engine's confidence.
type HistoryScorer struct {
	history History
	rates   map[string]model.ConversionMetric
	roi     map[string]model.ROIRow
}

// NewHistoryScorer creates a HistoryScorer and loads the current
// aggregates once; a scorer serves a single batch run.
func NewHistoryScorer(ctx context.Context, history History) (*HistoryScorer, error) {
	hs := &HistoryScorer{
		history: history,
		rates:   make(map[string]model.ConversionMetric),
		roi:     make(map[string]model.ROIRow),
	}

	rates, err := history.ConversionRates(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: load conversion rates")
	}
	for _, r := range rates {
		hs.rates[pairKey(r.Source, r.OpportunityType)] = r
	}

	roi, err := history.ROIByType(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: load roi")
	}
	for _, r := range roi {
		hs.roi[pairKey(r.Source, r.OpportunityType)] = r
	}

	return hs, nil
}

// Score blends the content-derived score with historical performance:
// base 40%, conversion rate 30%, realized revenue 20%, prediction
// confidence 10%. Pairs with fewer than three decisions fall back to the
// base score for the missing component.
func (hs *HistoryScorer) Score(ctx context.Context, opp model.Opportunity) (*ScoredOpportunity, error) {
	pred, err := hs.history.Predict(ctx, opp.Type, opp.Source)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: predict")
	}

	key := pairKey(opp.Source, opp.Type)
	rate, hasRate := hs.rates[key]
	roi, hasROI := hs.roi[key]

	base := float64(opp.Score)
	score := base * 0.4

	if hasRate && rate.TotalDecisions >= 3 {
		score += rate.ConversionRate / 100 * 30
	} else {
		score += base * 0.3
	}

	if hasROI && roi.DecisionsMade >= 3 {
		// $50 of realized average revenue buys one point, capped at 20.
		score += min(roi.AvgRevenuePerDecision/50, 20)
	} else {
		score += base * 0.2
	}

	score += pred.Confidence * 10

	adjusted := max(0, min(100, int(score)))

	result := &ScoredOpportunity{
		Opportunity:           opp,
		OriginalScore:         opp.Score,
		AdjustedScore:         adjusted,
		PredictedRevenue:      pred.PredictedRevenue,
		ConversionProbability: pred.ConversionProbability,
		PredictionConfidence:  pred.Confidence,
		SampleSize:            pred.SimilarCount,
		Recommendation:        recommendation(adjusted, pred),
	}
	result.Reasoning = hs.reasoning(result, rate, hasRate, roi, hasROI)
	return result, nil
}

// ScoreBatch scores opportunities and returns them ranked by adjusted
// score, with a summary report.
func (hs *HistoryScorer) ScoreBatch(ctx context.Context, opps []model.Opportunity) (*ScoringReport, error) {
	scored := make([]ScoredOpportunity, 0, len(opps))
	for _, opp := range opps {
		s, err := hs.Score(ctx, opp)
		if err != nil {
			return nil, err
		}
		scored = append(scored, *s)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].AdjustedScore > scored[j].AdjustedScore
	})

	report := &ScoringReport{
		Timestamp:          time.Now().UTC(),
		TotalOpportunities: len(scored),
	}
	var totalScore float64
	for _, s := range scored {
		totalScore += float64(s.AdjustedScore)
		report.TotalPredictedRevenue += s.PredictedRevenue
		switch {
		case s.AdjustedScore >= 80:
			report.HighPriority++
		case s.AdjustedScore >= 50:
			report.MediumPriority++
		default:
			report.LowPriority++
		}
	}
	if len(scored) > 0 {
		report.AverageScore = totalScore / float64(len(scored))
	}
	if len(scored) > 5 {
		report.Top = scored[:5]
	} else {
		report.Top = scored
	}

	zap.L().Info("scorer: batch scored",
		zap.Int("opportunities", len(scored)),
		zap.Float64("average_score", report.AverageScore),
	)
	return report, nil
}

func (hs *HistoryScorer) reasoning(s *ScoredOpportunity, rate model.ConversionMetric, hasRate bool, roi model.ROIRow, hasROI bool) string {
	var reasons []string

	switch {
	case s.AdjustedScore > s.OriginalScore+5:
		reasons = append(reasons, fmt.Sprintf("Score increased from %d to %d based on strong historical performance", s.OriginalScore, s.AdjustedScore))
	case s.AdjustedScore < s.OriginalScore-5:
		reasons = append(reasons, fmt.Sprintf("Score decreased from %d to %d based on weak historical performance", s.OriginalScore, s.AdjustedScore))
	default:
		reasons = append(reasons, fmt.Sprintf("Score maintained at %d (similar to base score)", s.AdjustedScore))
	}

	if hasRate && rate.TotalDecisions >= 3 {
		label := "Low"
		if rate.ConversionRate >= 60 {
			label = "High"
		} else if rate.ConversionRate >= 30 {
			label = "Moderate"
		}
		reasons = append(reasons, fmt.Sprintf("%s conversion rate: %.1f%% (%d past opportunities)", label, rate.ConversionRate, rate.TotalDecisions))
	} else {
		reasons = append(reasons, "Limited historical data - score based on content analysis")
	}

	if hasROI && roi.DecisionsMade >= 3 {
		label := "Low"
		if roi.AvgRevenuePerDecision >= 200 {
			label = "High"
		} else if roi.AvgRevenuePerDecision >= 50 {
			label = "Moderate"
		}
		reasons = append(reasons, fmt.Sprintf("%s revenue potential: avg $%.2f per opportunity", label, roi.AvgRevenuePerDecision))
	}

	if s.SampleSize >= 5 {
		reasons = append(reasons, fmt.Sprintf("Prediction based on %d similar opportunities", s.SampleSize))
		if s.ConversionProbability >= 60 {
			reasons = append(reasons, fmt.Sprintf("Strong likelihood of conversion (%.0f%%)", s.ConversionProbability))
		}
	}

	return strings.Join(reasons, ". ")
}

func recommendation(score int, pred *model.Prediction) string {
	switch {
	case score >= 85 && pred.ConversionProbability >= 60:
		return "HIGH PRIORITY - Respond immediately, high conversion likelihood"
	case score >= 70:
		return "MEDIUM-HIGH - Respond within 24 hours"
	case score >= 50:
		return "MEDIUM - Review and respond within 2-3 days"
	case score >= 30:
		return "LOW - Consider if time permits"
	default:
		return "VERY LOW - Likely not worth pursuing"
	}
}

func pairKey(source model.Source, typ model.OpportunityType) string {
	return string(source) + ":" + string(typ)
}
