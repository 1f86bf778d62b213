package sentiment

import (
	"math"

	"github.com/guregu/null/v6"
)

// Rule weights. Each rule adds or subtracts within its band.
const (
	Baseline = 50

	TrendStrong = 20
	TrendWeak   = 10

	MomentumReversal = 15
	MomentumBias     = 5

	FilterWeight = 15
)

// Trend band around the EMA, and RSI zones.
const (
	trendUpperBand = 1.01
	trendLowerBand = 0.99

	rsiOversold   = 30.0
	rsiOverbought = 70.0
	rsiMidline    = 50.0
)

// present returns the indicator value when it can contribute to a rule.
// Null, zero and NaN are all treated as missing data.
func present(v null.Float) (float64, bool) {
	if !v.Valid || v.Float64 == 0 || math.IsNaN(v.Float64) {
		return 0, false
	}
	return v.Float64, true
}

// scoreTrend compares price with the 20-period EMA.
// A price exactly on the EMA fails every strict test and lands in the weak downtrend branch.
func scoreTrend(price float64, ema null.Float) int {
	e, ok := present(ema)
	if !ok {
		return 0
	}
	switch {
	case price > e*trendUpperBand:
		return TrendStrong
	case price > e:
		return TrendWeak
	case price < e*trendLowerBand:
		return -TrendStrong
	default:
		return -TrendWeak
	}
}

// scoreMomentum reads RSI(14) as a reversal signal at the extremes
// and as a momentum bias in between.
func scoreMomentum(rsi null.Float) int {
	r, ok := present(rsi)
	if !ok {
		return 0
	}
	switch {
	case r < rsiOversold:
		return MomentumReversal
	case r > rsiOverbought:
		return -MomentumReversal
	case r > rsiMidline:
		return MomentumBias
	default:
		return -MomentumBias
	}
}

// scoreFilter is the longer-term filter against the 20-period SMA.
func scoreFilter(price float64, sma null.Float) int {
	s, ok := present(sma)
	if !ok {
		return 0
	}
	if price > s {
		return FilterWeight
	}
	return -FilterWeight
}
