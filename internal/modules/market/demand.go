package market

import (
	"math"

	"github.com/tarunbandi/repricer/internal/domain"
)

// DemandModel predicts the quantity sold for a record at a proposed price.
// The environment holds one as a strategy: the default exponential
// elasticity model, or a learned model injected after demand fitting.
type DemandModel interface {
	PredictQuantity(rec domain.RetailRecord, state State, price float64) float64
}

// baseElasticity is the unscaled price elasticity constant.
const baseElasticity = 0.7

// Clamp bounds for the effective elasticity.
const (
	minEffectiveElasticity = 0.05
	maxEffectiveElasticity = 4.0
)

// ElasticityModel is the default demand backend:
//
//	qty = max(1, baseQty * exp(-e * (price - basePrice) / basePrice))
//
// where e is the base elasticity scaled by state-dependent market factors.
// The state dependence is what makes different market conditions prefer
// different price points.
type ElasticityModel struct {
	encoder    *Encoder
	elasticity float64
}

// NewElasticityModel builds the default backend over the encoder's
// frozen statistics.
func NewElasticityModel(encoder *Encoder) *ElasticityModel {
	return &ElasticityModel{encoder: encoder, elasticity: baseElasticity}
}

// WithElasticity returns a copy using a different base elasticity
// constant. Used by what-if overrides.
func (m *ElasticityModel) WithElasticity(e float64) *ElasticityModel {
	return &ElasticityModel{encoder: m.encoder, elasticity: e}
}

// EffectiveElasticity scales the base constant by market condition:
// high demand, expensive competitors, summer, scarce inventory and a
// confident forecast all make customers less price sensitive.
func (m *ElasticityModel) EffectiveElasticity(s State) float64 {
	e := m.elasticity
	bins := m.encoder.bins

	demandFactor := 1.8 - float64(s.DemandBin)/float64(bins.Demand-1)*1.2
	compFactor := 1.6 - float64(s.CompetitorBin)/float64(bins.Competitor-1)*0.8

	seasonFactor := 1.0
	switch s.SeasonBin {
	case 2: // summer
		seasonFactor = 0.7
	case 0: // winter
		seasonFactor = 1.3
	}

	e *= demandFactor * compFactor * seasonFactor

	if m.encoder.hasExtendedState {
		inventoryFactor := 0.7 + float64(s.InventoryBin)/float64(bins.Inventory-1)*0.6
		forecastFactor := 1.2 - float64(s.ForecastBin)/float64(bins.Forecast-1)*0.4
		e *= inventoryFactor * forecastFactor
	}

	return clamp(e, minEffectiveElasticity, maxEffectiveElasticity)
}

// PredictQuantity applies the exponential demand curve. The demand
// forecast, when populated, is a better base than realized quantity.
func (m *ElasticityModel) PredictQuantity(rec domain.RetailRecord, state State, price float64) float64 {
	basePrice := m.encoder.basePrice
	if basePrice == 0 {
		basePrice = 1
	}

	baseQ := rec.Qty
	if m.encoder.hasExtendedState && rec.DemandForecast > 0 {
		baseQ = rec.DemandForecast
	}

	ratio := (price - m.encoder.basePrice) / basePrice
	qty := baseQ * math.Exp(-m.EffectiveElasticity(state)*ratio)
	return math.Max(1, qty)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
