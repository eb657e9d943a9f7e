package forecast

import "math"

// Extrapolate projects series linearly for horizon steps using the last
// difference as the trend. Values are rounded to two decimals and clamped
// at zero. Fewer than two points yield horizon zeros.
func Extrapolate(series []float64, horizon int) []float64 {
	if horizon < 0 {
		horizon = 0
	}
	out := make([]float64, horizon)
	n := len(series)
	if n < 2 {
		return out
	}

	last := series[n-1]
	trend := last - series[n-2]
	for k := 1; k <= horizon; k++ {
		out[k-1] = math.Max(0, round(last+trend*float64(k), 2))
	}
	return out
}

// round rounds half away from zero to the given number of decimals.
func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
