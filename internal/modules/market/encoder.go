package market

import (
	"fmt"

	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/pkg/formulas"
)

// seasonBins is fixed: winter, spring, summer, fall.
const seasonBins = 4

// extendedStateMinCoverage is the fraction of rows that must carry
// inventory and forecast values before those dimensions join the state.
const extendedStateMinCoverage = 0.1

// BinConfig sets the number of quantile bins per discretized dimension.
type BinConfig struct {
	Demand     int
	Competitor int
	Lag        int
	Inventory  int
	Forecast   int
}

// DefaultBinConfig matches the standard 3-bin discretization.
func DefaultBinConfig() BinConfig {
	return BinConfig{Demand: 3, Competitor: 3, Lag: 3, Inventory: 3, Forecast: 3}
}

// Validate rejects bin counts below 2. Elasticity scaling divides by
// bins-1, so a single-bin dimension would poison every factor.
func (b BinConfig) Validate() error {
	for _, dim := range []struct {
		name  string
		count int
	}{
		{"demand", b.Demand},
		{"competitor", b.Competitor},
		{"lag", b.Lag},
		{"inventory", b.Inventory},
		{"forecast", b.Forecast},
	} {
		if dim.count < 2 {
			return fmt.Errorf("bin config: %s bins must be >= 2, got %d", dim.name, dim.count)
		}
	}
	return nil
}

// Encoder converts continuous retail observations into discrete market
// states. Thresholds are quantiles frozen at construction.
type Encoder struct {
	bins BinConfig

	demandThresholds     []float64
	competitorThresholds []float64
	lagThresholds        []float64
	inventoryThresholds  []float64
	forecastThresholds   []float64

	hasExtendedState bool

	// Observed value ranges, used to reconstruct representative records
	// for synthetic states.
	qtyMin, qtyMax           float64
	compMin, compMax         float64
	lagMin, lagMax           float64
	invMin, invMax           float64
	forecastMin, forecastMax float64

	basePrice float64
	baseCost  float64
	baseQty   float64
}

// NewEncoder computes quantile thresholds and base statistics from the
// historical slice. Missing competitor/lag columns fall back to a trivial
// two-point threshold set rather than failing.
func NewEncoder(rows []domain.RetailRecord, bins BinConfig) *Encoder {
	e := &Encoder{bins: bins}

	qtys := make([]float64, len(rows))
	prices := make([]float64, len(rows))
	costs := make([]float64, len(rows))
	var comps, lags, invs, forecasts []float64

	for i, r := range rows {
		qtys[i] = r.Qty
		prices[i] = r.UnitPrice
		costs[i] = r.FreightPrice
		if r.CompetitorOne > 0 {
			comps = append(comps, r.CompetitorOne)
		}
		if r.LagPrice > 0 {
			lags = append(lags, r.LagPrice)
		}
		if r.InventoryLevel > 0 {
			invs = append(invs, r.InventoryLevel)
		}
		if r.DemandForecast > 0 {
			forecasts = append(forecasts, r.DemandForecast)
		}
	}

	e.demandThresholds = formulas.QuantileThresholds(qtys, bins.Demand)
	e.competitorThresholds = thresholdsOrFallback(comps, bins.Competitor)
	e.lagThresholds = thresholdsOrFallback(lags, bins.Lag)

	minCoverage := float64(len(rows)) * extendedStateMinCoverage
	e.hasExtendedState = float64(len(invs)) > minCoverage && float64(len(forecasts)) > minCoverage
	if e.hasExtendedState {
		e.inventoryThresholds = formulas.QuantileThresholds(invs, bins.Inventory)
		e.forecastThresholds = formulas.QuantileThresholds(forecasts, bins.Forecast)
	}

	e.qtyMin, e.qtyMax = minMax(qtys, 0, 1)
	e.compMin, e.compMax = minMax(comps, 0, 1)
	e.lagMin, e.lagMax = minMax(lags, 0, 1)
	e.invMin, e.invMax = minMax(invs, 0, 1)
	e.forecastMin, e.forecastMax = minMax(forecasts, 0, 1)

	e.basePrice = formulas.Mean(prices)
	e.baseCost = formulas.Mean(costs)
	e.baseQty = formulas.Mean(qtys)

	return e
}

func thresholdsOrFallback(values []float64, bins int) []float64 {
	if len(values) == 0 {
		return formulas.QuantileThresholds([]float64{0, 1}, bins)
	}
	return formulas.QuantileThresholds(values, bins)
}

func minMax(values []float64, defMin, defMax float64) (float64, float64) {
	if len(values) == 0 {
		return defMin, defMax
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// EncodeState maps a retail record to its discrete market state.
func (e *Encoder) EncodeState(r domain.RetailRecord) State {
	s := State{
		DemandBin:     formulas.Digitize(r.Qty, e.demandThresholds),
		CompetitorBin: formulas.Digitize(r.CompetitorOne, e.competitorThresholds),
		SeasonBin:     SeasonBin(r.Month),
		LagBin:        formulas.Digitize(r.LagPrice, e.lagThresholds),
	}
	if e.hasExtendedState {
		s.InventoryBin = formulas.Digitize(r.InventoryLevel, e.inventoryThresholds)
		s.ForecastBin = formulas.Digitize(r.DemandForecast, e.forecastThresholds)
	}
	return s
}

// SeasonBin maps a calendar month to the fixed four-way seasonal split:
// winter (Dec-Feb)=0, spring (Mar-May)=1, summer (Jun-Aug)=2, fall (Sep-Nov)=3.
func SeasonBin(month int) int {
	switch {
	case month <= 2 || month == 12:
		return 0
	case month <= 5:
		return 1
	case month <= 8:
		return 2
	default:
		return 3
	}
}

// dimSizes returns the mixed-radix digit sizes. Unsupported dimensions
// collapse to size 1 so they contribute nothing to the index space.
func (e *Encoder) dimSizes() [6]int {
	inv, fc := 1, 1
	if e.hasExtendedState {
		inv = e.bins.Inventory
		fc = e.bins.Forecast
	}
	return [6]int{e.bins.Demand, e.bins.Competitor, seasonBins, e.bins.Lag, inv, fc}
}

// StateToIndex encodes a state as a single integer via mixed-radix
// encoding. Bijective with IndexToState for all reachable states.
func (e *Encoder) StateToIndex(s State) int {
	sizes := e.dimSizes()
	digits := [6]int{s.DemandBin, s.CompetitorBin, s.SeasonBin, s.LagBin, s.InventoryBin, s.ForecastBin}

	idx := 0
	for i := 5; i >= 0; i-- {
		idx = idx*sizes[i] + digits[i]
	}
	return idx
}

// IndexToState inverts StateToIndex.
func (e *Encoder) IndexToState(index int) State {
	sizes := e.dimSizes()
	var digits [6]int
	for i := 0; i < 6; i++ {
		digits[i] = index % sizes[i]
		index /= sizes[i]
	}
	return State{
		DemandBin:     digits[0],
		CompetitorBin: digits[1],
		SeasonBin:     digits[2],
		LagBin:        digits[3],
		InventoryBin:  digits[4],
		ForecastBin:   digits[5],
	}
}

// TotalStates returns the number of reachable state indices.
func (e *Encoder) TotalStates() int {
	sizes := e.dimSizes()
	total := 1
	for _, s := range sizes {
		total *= s
	}
	return total
}

// BinCounts returns the per-dimension bin counts in state order
// (demand, competitor, season, lag, inventory, forecast). Unsupported
// dimensions report 1.
func (e *Encoder) BinCounts() [6]int {
	return e.dimSizes()
}

// HasExtendedState reports whether inventory/forecast dimensions are live.
func (e *Encoder) HasExtendedState() bool {
	return e.hasExtendedState
}

// RecordFromState reconstructs a representative retail record for a
// synthetic state: each binned feature maps to the midpoint of its bin's
// share of the observed value range. The demand forecast is set equal to
// the scaled quantity so both demand backends see a consistent base.
func (e *Encoder) RecordFromState(s State) domain.RetailRecord {
	seasonToMonth := [seasonBins]int{1, 4, 7, 10}

	qty := e.baseQty * DemandScale(s.DemandBin, e.bins.Demand)

	rec := domain.RetailRecord{
		Month:         seasonToMonth[s.SeasonBin],
		UnitPrice:     e.basePrice,
		FreightPrice:  e.baseCost,
		Qty:           qty,
		CompetitorOne: binMidpoint(s.CompetitorBin, e.bins.Competitor, e.compMin, e.compMax),
		LagPrice:      binMidpoint(s.LagBin, e.bins.Lag, e.lagMin, e.lagMax),
	}
	if e.hasExtendedState {
		rec.InventoryLevel = binMidpoint(s.InventoryBin, e.bins.Inventory, e.invMin, e.invMax)
		rec.DemandForecast = qty
	}
	return rec
}

// DemandScale maps a demand bin to a multiplicative factor on the base
// quantity: lowest bin sells at 60% of base, highest at 110%.
func DemandScale(bin, bins int) float64 {
	if bins <= 1 {
		return 1
	}
	return 0.6 + float64(bin)/float64(bins-1)*0.5
}

func binMidpoint(bin, bins int, min, max float64) float64 {
	if bins <= 0 {
		return min
	}
	return min + (float64(bin)+0.5)/float64(bins)*(max-min)
}

// Base statistics accessors.

func (e *Encoder) BasePrice() float64 { return e.basePrice }

func (e *Encoder) BaseCost() float64 { return e.baseCost }

func (e *Encoder) BaseQty() float64 { return e.baseQty }
