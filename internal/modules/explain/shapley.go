package explain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/tarunbandi/repricer/internal/modules/market"
)

// minTemperature keeps the softmax defined when the Q-row is near zero.
const minTemperature = 0.05

// ValueTable is the slice of the agent the explainer needs: a Q-row per
// discrete state.
type ValueTable interface {
	QValues(stateIndex int) []float64
}

// Attribution is one state feature's price contribution.
type Attribution struct {
	Feature string  `json:"feature"`
	Bin     int     `json:"bin"`
	Value   float64 `json:"value"`
}

// Explanation decomposes a recommended price into per-feature
// contributions. BasePrice is the policy's price at the baseline
// (median-bin) state; the attributions sum exactly to
// FinalPrice - BasePrice.
type Explanation struct {
	BasePrice    float64       `json:"base_price"`
	FinalPrice   float64       `json:"final_price"`
	Attributions []Attribution `json:"attributions"`
}

// dimension is one varying axis of the state space.
type dimension struct {
	name string
	bins int
	get  func(market.State) int
	set  func(*market.State, int)
}

// ComputeShapleyValues attributes the policy's price at the given state
// to its features by exact Shapley decomposition. The value of a
// coalition is the softmax-expected price of the Q-row at the composite
// state where coalition features take their actual bins and the rest sit
// at the baseline median bin. Exact enumeration is affordable because
// the state has at most six features.
func ComputeShapleyValues(state market.State, table ValueTable, env *market.Environment) (Explanation, error) {
	dims := activeDimensions(env)
	n := len(dims)
	if n == 0 {
		return Explanation{}, fmt.Errorf("state space has no varying features")
	}

	value := func(coalition []bool) float64 {
		composite := baselineState(dims)
		for i, in := range coalition {
			if in {
				dims[i].set(&composite, dims[i].get(state))
			}
		}
		idx := env.StateToIndex(composite)
		return expectedPrice(table.QValues(idx), env)
	}

	none := make([]bool, n)
	all := make([]bool, n)
	for i := range all {
		all[i] = true
	}

	exp := Explanation{
		BasePrice:    value(none),
		FinalPrice:   value(all),
		Attributions: make([]Attribution, n),
	}

	for i := range dims {
		others := make([]int, 0, n-1)
		for j := range dims {
			if j != i {
				others = append(others, j)
			}
		}

		var phi float64
		for k := 0; k <= len(others); k++ {
			weight := 1 / (float64(n) * float64(combin.Binomial(n-1, k)))
			for _, subset := range subsets(others, k) {
				coalition := make([]bool, n)
				for _, j := range subset {
					coalition[j] = true
				}
				without := value(coalition)
				coalition[i] = true
				with := value(coalition)
				phi += weight * (with - without)
			}
		}

		exp.Attributions[i] = Attribution{
			Feature: dims[i].name,
			Bin:     dims[i].get(state),
			Value:   phi,
		}
	}

	return exp, nil
}

// subsets enumerates the k-element subsets of the given indices.
func subsets(indices []int, k int) [][]int {
	if k == 0 {
		return [][]int{nil}
	}
	combos := combin.Combinations(len(indices), k)
	out := make([][]int, len(combos))
	for i, c := range combos {
		s := make([]int, k)
		for j, pos := range c {
			s[j] = indices[pos]
		}
		out[i] = s
	}
	return out
}

// expectedPrice collapses a Q-row into a price: softmax over the
// actions, weighted sum of the corresponding price points. The
// temperature scales with the row's magnitude so strong preferences
// stay sharp and weak ones stay smooth. An untrained (all-zero) row
// carries no preference and maps to the base price.
func expectedPrice(q []float64, env *market.Environment) float64 {
	basePrice := env.BasePrice()

	maxQ := q[0]
	allZero := true
	for _, v := range q {
		if v > maxQ {
			maxQ = v
		}
		if v != 0 {
			allZero = false
		}
	}
	if allZero {
		return basePrice
	}

	temp := 0.1 * maxQ
	if temp < minTemperature {
		temp = minTemperature
	}

	var z float64
	weights := make([]float64, len(q))
	for a, v := range q {
		weights[a] = math.Exp((v - maxQ) / temp)
		z += weights[a]
	}

	var price float64
	for a, m := range env.Multipliers() {
		price += weights[a] / z * m * basePrice
	}
	return price
}

// baselineState puts every varying feature at its median bin.
func baselineState(dims []dimension) market.State {
	var s market.State
	for _, d := range dims {
		d.set(&s, d.bins/2)
	}
	return s
}

// activeDimensions lists the state axes with more than one bin;
// collapsed axes cannot contribute to the price.
func activeDimensions(env *market.Environment) []dimension {
	counts := env.Encoder().BinCounts()

	all := []dimension{
		{
			name: "demand",
			get:  func(s market.State) int { return s.DemandBin },
			set:  func(s *market.State, b int) { s.DemandBin = b },
		},
		{
			name: "competitor",
			get:  func(s market.State) int { return s.CompetitorBin },
			set:  func(s *market.State, b int) { s.CompetitorBin = b },
		},
		{
			name: "season",
			get:  func(s market.State) int { return s.SeasonBin },
			set:  func(s *market.State, b int) { s.SeasonBin = b },
		},
		{
			name: "lag_price",
			get:  func(s market.State) int { return s.LagBin },
			set:  func(s *market.State, b int) { s.LagBin = b },
		},
		{
			name: "inventory",
			get:  func(s market.State) int { return s.InventoryBin },
			set:  func(s *market.State, b int) { s.InventoryBin = b },
		},
		{
			name: "forecast",
			get:  func(s market.State) int { return s.ForecastBin },
			set:  func(s *market.State, b int) { s.ForecastBin = b },
		},
	}

	var dims []dimension
	for i, d := range all {
		if counts[i] > 1 {
			d.bins = counts[i]
			dims = append(dims, d)
		}
	}
	return dims
}
