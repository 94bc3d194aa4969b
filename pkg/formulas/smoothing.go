package formulas

import (
	"github.com/markcheno/go-talib"
)

// RollingMean computes a simple moving average of the series with the given
// period. Positions before the window fills are backfilled with the first
// complete value so the result aligns 1:1 with the input.
func RollingMean(series []float64, period int) []float64 {
	if len(series) == 0 {
		return nil
	}
	if period < 2 || len(series) < period {
		out := make([]float64, len(series))
		copy(out, series)
		return out
	}

	sma := talib.Sma(series, period)

	// talib leaves the warmup prefix as zeros; backfill with the first
	// complete window so downstream features never see artificial zeros.
	first := sma[period-1]
	for i := 0; i < period-1; i++ {
		sma[i] = first
	}
	return sma
}

// ExponentialMean computes an exponential moving average of the series,
// backfilling the warmup prefix the same way as RollingMean.
func ExponentialMean(series []float64, period int) []float64 {
	if len(series) == 0 {
		return nil
	}
	if period < 2 || len(series) < period {
		out := make([]float64, len(series))
		copy(out, series)
		return out
	}

	ema := talib.Ema(series, period)
	first := ema[period-1]
	for i := 0; i < period-1; i++ {
		ema[i] = first
	}
	return ema
}
