package gbrt

import (
	"fmt"
	"math/rand"

	"github.com/tarunbandi/repricer/internal/domain"
	"github.com/tarunbandi/repricer/pkg/formulas"
)

// Feature column indices. Price must stay first so callers can override
// it for what-if predictions.
const (
	FeaturePrice = iota
	FeatureCompetitor
	FeatureLagPrice
	FeatureFreight
	FeatureMonth
	FeatureWeekday
	FeatureHoliday
	FeatureDemandSMA

	numFeatures
)

const demandSMAPeriod = 4

// FeatureNames returns the column names in matrix order.
func FeatureNames() []string {
	return []string{
		"price",
		"comp_1",
		"lag_price",
		"freight_price",
		"month",
		"weekday",
		"holiday",
		"demand_sma",
	}
}

// Dataset is a dense feature matrix with its target column.
type Dataset struct {
	X     [][]float64
	Y     []float64
	Names []string
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.X) }

// PrepareFeatures builds the training matrix from time-ordered records.
// The target is quantity sold. The rolling demand feature smooths the
// quantity series over the last few periods, so recent demand informs
// the prediction without leaking the current row's target directly.
func PrepareFeatures(records []domain.RetailRecord) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("no records to prepare features from")
	}

	qty := make([]float64, len(records))
	for i, r := range records {
		qty[i] = r.Qty
	}
	sma := formulas.RollingMean(qty, demandSMAPeriod)

	ds := Dataset{
		X:     make([][]float64, len(records)),
		Y:     qty,
		Names: FeatureNames(),
	}
	for i, r := range records {
		ds.X[i] = rowFeatures(r, sma[i])
	}
	return ds, nil
}

// FeatureVector builds a single prediction row. Without a series to
// smooth, the demand feature falls back to the forecast when present,
// otherwise the record's own quantity.
func FeatureVector(r domain.RetailRecord) []float64 {
	demand := r.Qty
	if r.DemandForecast > 0 {
		demand = r.DemandForecast
	}
	return rowFeatures(r, demand)
}

func rowFeatures(r domain.RetailRecord, demandSMA float64) []float64 {
	row := make([]float64, numFeatures)
	row[FeaturePrice] = r.UnitPrice
	row[FeatureCompetitor] = r.CompetitorOne
	row[FeatureLagPrice] = r.LagPrice
	row[FeatureFreight] = r.FreightPrice
	row[FeatureMonth] = float64(r.Month)
	row[FeatureWeekday] = float64(r.Weekday)
	row[FeatureHoliday] = float64(r.Holiday)
	row[FeatureDemandSMA] = demandSMA
	return row
}

// TrainTestSplit shuffles row indices and carves off the trailing
// fraction as the test set.
func TrainTestSplit(ds Dataset, testFrac float64, rng *rand.Rand) (train, test Dataset) {
	n := ds.Len()
	idx := rng.Perm(n)

	nTest := int(float64(n) * testFrac)
	if nTest < 1 && n > 1 && testFrac > 0 {
		nTest = 1
	}
	cut := n - nTest

	train = Dataset{Names: ds.Names}
	test = Dataset{Names: ds.Names}
	for i, j := range idx {
		if i < cut {
			train.X = append(train.X, ds.X[j])
			train.Y = append(train.Y, ds.Y[j])
		} else {
			test.X = append(test.X, ds.X[j])
			test.Y = append(test.Y, ds.Y[j])
		}
	}
	return train, test
}
