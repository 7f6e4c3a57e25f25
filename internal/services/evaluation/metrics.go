package evaluation

import "math"

// MAE is the mean of absolute values; 0 for no input.
func MAE(errors []float64) float64 {
	if len(errors) == 0 {
		return 0
	}
	var sum float64
	for _, e := range errors {
		sum += math.Abs(e)
	}
	return sum / float64(len(errors))
}

// DirectionalAccuracy is the fraction of true values; 0 for no input.
func DirectionalAccuracy(correct []bool) float64 {
	if len(correct) == 0 {
		return 0
	}
	var n int
	for _, c := range correct {
		if c {
			n++
		}
	}
	return float64(n) / float64(len(correct))
}

// RollingAverage returns, for each index, the mean of the trailing window
// ending there. A non-positive window is treated as 1.
func RollingAverage(values []float64, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}
