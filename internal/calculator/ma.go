package calculator

import "math"

// Indicator periods stored with every daily bar.
const (
	SMAPeriod = 20
	EMASpan   = 20
	RSIPeriod = 14
)

// SMA returns the rolling simple moving average for every position.
// Positions before the first full window are NaN.
func SMA(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if period <= 0 {
		fillNaN(out)
		return out
	}
	for i := range prices {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += prices[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMA returns the recursive exponential moving average with
// alpha = 2/(span+1), seeded with the first price.
func EMA(prices []float64, span int) []float64 {
	out := make([]float64, len(prices))
	if span <= 0 {
		fillNaN(out)
		return out
	}
	alpha := 2.0 / float64(span+1)
	for i, p := range prices {
		if i == 0 {
			out[i] = p
			continue
		}
		out[i] = alpha*p + (1-alpha)*out[i-1]
	}
	return out
}

// Last returns the final value of a series, or NaN when empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func fillNaN(values []float64) {
	for i := range values {
		values[i] = math.NaN()
	}
}
