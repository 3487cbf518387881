package predict

import (
	"context"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

// HistorySource bundles the ledger aggregates with the prediction engine
// behind one surface for history-adjusted scoring.
type HistorySource struct {
	store  store.Store
	engine *Engine
}

// NewHistorySource creates a HistorySource over st.
func NewHistorySource(st store.Store) *HistorySource {
	return &HistorySource{store: st, engine: NewEngine(st)}
}

func (h *HistorySource) ConversionRates(ctx context.Context) ([]model.ConversionMetric, error) {
	return h.store.ListConversionMetrics(ctx)
}

func (h *HistorySource) ROIByType(ctx context.Context) ([]model.ROIRow, error) {
	return h.store.ROIByType(ctx)
}

func (h *HistorySource) Predict(ctx context.Context, typ model.OpportunityType, source model.Source) (*model.Prediction, error) {
	return h.engine.Predict(ctx, typ, source)
}
