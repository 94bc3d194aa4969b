package gbrt

import (
	"fmt"

	"github.com/tarunbandi/repricer/pkg/formulas"
)

// CurvePoint is one price/quantity pair on a demand curve.
type CurvePoint struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// DemandCurve predicts quantity at each price with the remaining
// features held at their training means.
func (m *Model) DemandCurve(prices []float64) []CurvePoint {
	base := m.meanFeatures()

	curve := make([]CurvePoint, len(prices))
	for i, p := range prices {
		row := append([]float64(nil), base...)
		row[FeaturePrice] = p
		curve[i] = CurvePoint{Price: p, Quantity: m.Predict(row)}
	}
	return curve
}

// PartialDependence averages the model's prediction over every training
// row with the chosen feature pinned to each point in turn.
func (m *Model) PartialDependence(feature int, points []float64) ([]float64, error) {
	if feature < 0 || feature >= len(m.data.Names) {
		return nil, fmt.Errorf("feature index %d out of range", feature)
	}

	out := make([]float64, len(points))
	row := make([]float64, len(m.data.Names))
	for i, p := range points {
		var sum float64
		for _, x := range m.data.X {
			copy(row, x)
			row[feature] = p
			sum += m.Predict(row)
		}
		out[i] = sum / float64(m.data.Len())
	}
	return out, nil
}

// ConditionalDependence computes the partial dependence of a feature
// separately within quantile bins of a conditioning feature, exposing
// interactions a flat average would wash out. The result is one curve
// per bin.
func (m *Model) ConditionalDependence(feature int, points []float64, condFeature, bins int) ([][]float64, error) {
	if feature < 0 || feature >= len(m.data.Names) {
		return nil, fmt.Errorf("feature index %d out of range", feature)
	}
	if condFeature < 0 || condFeature >= len(m.data.Names) {
		return nil, fmt.Errorf("conditioning feature index %d out of range", condFeature)
	}
	if bins < 2 {
		return nil, fmt.Errorf("conditioning needs at least 2 bins, got %d", bins)
	}

	condValues := make([]float64, m.data.Len())
	for i, x := range m.data.X {
		condValues[i] = x[condFeature]
	}
	thresholds := formulas.QuantileThresholds(condValues, bins)

	groups := make([][]int, bins)
	for i, v := range condValues {
		b := formulas.Digitize(v, thresholds)
		groups[b] = append(groups[b], i)
	}

	curves := make([][]float64, bins)
	row := make([]float64, len(m.data.Names))
	for b, rows := range groups {
		curves[b] = make([]float64, len(points))
		if len(rows) == 0 {
			continue
		}
		for i, p := range points {
			var sum float64
			for _, r := range rows {
				copy(row, m.data.X[r])
				row[feature] = p
				sum += m.Predict(row)
			}
			curves[b][i] = sum / float64(len(rows))
		}
	}
	return curves, nil
}

// RSquared scores the model on an arbitrary dataset (training subset or
// held-out split).
func (m *Model) RSquared(ds Dataset) float64 {
	if ds.Len() == 0 {
		return 0
	}
	predicted := make([]float64, ds.Len())
	for i, x := range ds.X {
		predicted[i] = m.Predict(x)
	}
	return formulas.RSquared(predicted, ds.Y)
}

func (m *Model) meanFeatures() []float64 {
	means := make([]float64, len(m.data.Names))
	col := make([]float64, m.data.Len())
	for f := range means {
		for i, x := range m.data.X {
			col[i] = x[f]
		}
		means[f] = formulas.Mean(col)
	}
	return means
}
