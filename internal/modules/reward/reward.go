package reward

import (
	"fmt"
	"math"
)

// volumeThreshold is the fraction of the volume range above which the
// volume component receives full credit. Below it, credit falls off
// linearly. This keeps moderate price increases from being punished for
// acceptable volume loss while still penalizing demand collapse.
const volumeThreshold = 0.35

// Weights combines revenue, margin and volume into a single objective.
type Weights struct {
	Revenue float64 `json:"revenue"`
	Margin  float64 `json:"margin"`
	Volume  float64 `json:"volume"`
}

// Validate rejects weights that describe a meaningless objective.
func (w Weights) Validate() error {
	if w.Revenue < 0 || w.Margin < 0 || w.Volume < 0 {
		return fmt.Errorf("reward weights must be non-negative, got %+v", w)
	}
	if w.Revenue+w.Margin+w.Volume <= 0 {
		return fmt.Errorf("reward weights must sum to a positive value, got %+v", w)
	}
	return nil
}

// Range is a frozen min/max normalization interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Normalize min-max scales value into [0, 1]. Degenerate ranges map to 0.
func Normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

// Compute returns the weighted combination of normalized revenue, margin
// and volume. Revenue and margin are plain min-max normalized; volume gets
// full credit above volumeThreshold of its range and a linear penalty below.
func Compute(revenue, margin, volume float64, w Weights, revRange, marginRange, volRange Range) float64 {
	normRevenue := Normalize(revenue, revRange.Min, revRange.Max)
	normMargin := Normalize(margin, marginRange.Min, marginRange.Max)

	rawVolume := Normalize(volume, volRange.Min, volRange.Max)
	normVolume := 1.0
	if rawVolume < volumeThreshold {
		normVolume = rawVolume / volumeThreshold
	}

	return w.Revenue*normRevenue + w.Margin*normMargin + w.Volume*normVolume
}

// PriceChangePenalty penalizes switching between price multipliers to keep
// the learned policy stable: penalty = weight * |cur - prev| / prev.
func PriceChangePenalty(prevMultiplier, currentMultiplier, penaltyWeight float64) float64 {
	if prevMultiplier <= 0 {
		return 0
	}
	return penaltyWeight * math.Abs(currentMultiplier-prevMultiplier) / prevMultiplier
}
