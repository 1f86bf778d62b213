package calculator

import (
	"errors"
	"math"

	"MarketConcierge/internal/model"
)

// TradingDaysPerYear is the bar count used for 52-week ranges.
const TradingDaysPerYear = 252

// TrailingRange scans the most recent n bars and returns the high and low.
func TrailingRange(bars []model.Bar, n int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	if n <= 0 {
		return 0, 0, errors.New("range length must be positive")
	}
	start := max(len(bars)-n, 0)
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// RangePosition returns where the current price sits within a range (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return max(0, min(1, pos)), nil
}

// DailyChange returns close minus open and the change as a percentage of
// open. ok is false when open is zero and the percentage is undefined.
func DailyChange(open, close float64) (change, pct float64, ok bool) {
	change = close - open
	if open == 0 {
		return change, 0, false
	}
	return change, change / open * 100, true
}
