package analysis

import "math"

// GrowthRate is the percentage change from previous to current; 0 when previous is 0.
func GrowthRate(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// Variance is the percentage deviation of actual from target; 0 when target is 0.
func Variance(actual, target float64) float64 {
	if target == 0 {
		return 0
	}
	return (actual - target) / target * 100
}

// Normalize scales values so the maximum becomes 100.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	maxVal := values[0]
	for _, v := range values[1:] {
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / maxVal * 100
	}
	return out
}

// MovingAverage returns the trailing mean over window; the first window-1
// positions are NaN.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}
