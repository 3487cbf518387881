// Package insight runs a fixed battery of comparisons over the ledger
// aggregates and produces ranked, confidence-scored observations.
package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

// Sample sizes at which each heuristic reaches full confidence.
// Confidence ramps linearly: min(sample/required, 1).
const (
	conversionRequired = 10
	comparisonRequired = 5
	timingRequired     = 5
	revenueRequired    = 10
)

// comparisonRatio is the minimum best/worst average-conversion ratio
// before a source-vs-source insight is emitted.
const comparisonRatio = 1.5

var titleCaser = cases.Title(language.English)

// Generator derives insights from the conversion and ROI aggregates and
// persists each batch it produces.
type Generator struct {
	store store.Store
}

// NewGenerator creates a Generator over st.
func NewGenerator(st store.Store) *Generator {
	return &Generator{store: st}
}

// Generate runs all four heuristics, persists the results, and returns
// them. Insights are generated on demand and never auto-expired.
func (g *Generator) Generate(ctx context.Context) ([]model.Insight, error) {
	metrics, err := g.store.ListConversionMetrics(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "insight: load conversion metrics")
	}
	roi, err := g.store.ROIByType(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "insight: load roi")
	}

	now := time.Now().UTC()
	var insights []model.Insight
	if ins := bestConvertingPair(metrics, now); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := sourceComparison(metrics, now); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := slowestType(metrics, now); ins != nil {
		insights = append(insights, *ins)
	}
	if ins := topRevenueType(roi, now); ins != nil {
		insights = append(insights, *ins)
	}

	if err := g.store.SaveInsights(ctx, insights); err != nil {
		return nil, eris.Wrap(err, "insight: save")
	}

	zap.L().Info("insight: batch generated", zap.Int("insights", len(insights)))
	return insights, nil
}

// bestConvertingPair reports the best-converting (source, type) pair
// with at least three decisions behind it.
func bestConvertingPair(metrics []model.ConversionMetric, now time.Time) *model.Insight {
	var best *model.ConversionMetric
	for i := range metrics {
		m := &metrics[i]
		if m.TotalDecisions < 3 {
			continue
		}
		if best == nil || m.ConversionRate > best.ConversionRate {
			best = m
		}
	}
	if best == nil {
		return nil
	}

	return &model.Insight{
		Type:  model.InsightConversion,
		Title: fmt.Sprintf("%s converts best", titleCaser.String(string(best.Source))),
		Description: fmt.Sprintf("%s %s opportunities convert at %.1f%% (%d decisions)",
			titleCaser.String(string(best.Source)), best.OpportunityType,
			best.ConversionRate, best.TotalDecisions),
		Confidence:  confidence(best.TotalDecisions, conversionRequired),
		DataPoints:  best.TotalDecisions,
		GeneratedAt: now,
		IsActive:    true,
	}
}

// sourceComparison compares average conversion across sources and emits
// an insight when the best beats the worst by more than 1.5x.
func sourceComparison(metrics []model.ConversionMetric, now time.Time) *model.Insight {
	type agg struct {
		sum float64
		n   int
	}
	bySource := make(map[model.Source]*agg)
	for _, m := range metrics {
		if m.TotalDecisions < 2 {
			continue
		}
		a := bySource[m.Source]
		if a == nil {
			a = &agg{}
			bySource[m.Source] = a
		}
		a.sum += m.ConversionRate
		a.n++
	}
	if len(bySource) < 2 {
		return nil
	}

	type avg struct {
		source model.Source
		rate   float64
	}
	avgs := make([]avg, 0, len(bySource))
	for src, a := range bySource {
		avgs = append(avgs, avg{source: src, rate: a.sum / float64(a.n)})
	}
	sort.Slice(avgs, func(i, j int) bool { return avgs[i].rate > avgs[j].rate })

	best, worst := avgs[0], avgs[len(avgs)-1]
	if worst.rate <= 0 {
		return nil
	}
	ratio := best.rate / worst.rate
	if ratio <= comparisonRatio {
		return nil
	}

	return &model.Insight{
		Type: model.InsightComparison,
		Title: fmt.Sprintf("%s converts %.1fx better than %s",
			titleCaser.String(string(best.source)), ratio, titleCaser.String(string(worst.source))),
		Description: fmt.Sprintf("%s averages %.1f%% conversion vs %.1f%% for %s",
			titleCaser.String(string(best.source)), best.rate,
			worst.rate, titleCaser.String(string(worst.source))),
		Confidence:  confidence(len(metrics), comparisonRequired),
		DataPoints:  len(avgs),
		GeneratedAt: now,
		IsActive:    true,
	}
}

// slowestType reports the opportunity type with the highest average time
// to conversion.
func slowestType(metrics []model.ConversionMetric, now time.Time) *model.Insight {
	type agg struct {
		sum float64
		n   int
	}
	byType := make(map[model.OpportunityType]*agg)
	for _, m := range metrics {
		if m.AvgTimeToConversionHours <= 0 {
			continue
		}
		a := byType[m.OpportunityType]
		if a == nil {
			a = &agg{}
			byType[m.OpportunityType] = a
		}
		a.sum += m.AvgTimeToConversionHours
		a.n++
	}
	if len(byType) == 0 {
		return nil
	}

	var slowest model.OpportunityType
	var slowestHours float64
	for typ, a := range byType {
		hours := a.sum / float64(a.n)
		if hours > slowestHours {
			slowest, slowestHours = typ, hours
		}
	}

	days := slowestHours / 24
	return &model.Insight{
		Type: model.InsightTiming,
		Title: fmt.Sprintf("%s takes ~%.0f days on average",
			titleCaser.String(typeLabel(slowest)), days),
		Description: fmt.Sprintf("Average time from decision to closed deal: %.1f hours (%.1f days)",
			slowestHours, days),
		Confidence:  confidence(len(byType), timingRequired),
		DataPoints:  len(byType),
		GeneratedAt: now,
		IsActive:    true,
	}
}

// topRevenueType reports the opportunity type generating the most total
// revenue.
func topRevenueType(roi []model.ROIRow, now time.Time) *model.Insight {
	if len(roi) == 0 {
		return nil
	}
	// ROIByType returns rows ordered by total revenue descending.
	best := roi[0]

	return &model.Insight{
		Type: model.InsightRevenue,
		Title: fmt.Sprintf("%s generates most revenue",
			titleCaser.String(typeLabel(best.OpportunityType))),
		Description: fmt.Sprintf("$%.2f total from %d decisions ($%.2f avg)",
			best.TotalRevenue, best.DecisionsMade, best.AvgRevenuePerDecision),
		Confidence:  confidence(best.DecisionsMade, revenueRequired),
		DataPoints:  best.DecisionsMade,
		GeneratedAt: now,
		IsActive:    true,
	}
}

func confidence(sample, required int) float64 {
	return min(float64(sample)/float64(required), 1.0)
}

func typeLabel(typ model.OpportunityType) string {
	return strings.ReplaceAll(string(typ), "_", " ")
}
