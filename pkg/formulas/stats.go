package formulas

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// QuantileThresholds computes (numBins - 1) empirical quantile cut points
// for binning a continuous feature. For numBins=3 the thresholds are the
// 33rd and 66th percentiles. The input slice is not modified.
func QuantileThresholds(data []float64, numBins int) []float64 {
	if len(data) == 0 || numBins < 2 {
		return nil
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	thresholds := make([]float64, 0, numBins-1)
	for i := 1; i < numBins; i++ {
		p := float64(i) / float64(numBins)
		thresholds = append(thresholds, stat.Quantile(p, stat.Empirical, sorted, nil))
	}
	return thresholds
}

// Digitize converts a continuous value to a bin index given ascending
// thresholds. Returns a value in [0, len(thresholds)].
func Digitize(value float64, thresholds []float64) int {
	for i, thresh := range thresholds {
		if value < thresh {
			return i
		}
	}
	return len(thresholds)
}

// RSquared calculates the coefficient of determination between predicted
// and actual values. Returns 0 for empty or mismatched inputs.
func RSquared(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}
