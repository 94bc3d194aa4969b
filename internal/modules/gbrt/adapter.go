package gbrt

import (
	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/internal/modules/market"
)

// DemandAdapter plugs a fitted model into the market environment as its
// demand backend.
type DemandAdapter struct {
	model *Model
}

// NewDemandAdapter wraps a fitted model.
func NewDemandAdapter(m *Model) *DemandAdapter {
	return &DemandAdapter{model: m}
}

// PredictQuantity scores the record's features with the candidate price
// substituted in. The floor of one unit matches the elasticity backend.
func (d *DemandAdapter) PredictQuantity(rec domain.RetailRecord, _ market.State, price float64) float64 {
	row := FeatureVector(rec)
	row[FeaturePrice] = price

	qty := d.model.Predict(row)
	if qty < 1 {
		return 1
	}
	return qty
}
