package calculator

import (
	"math"

	"github.com/guregu/null/v6"

	"MarketConcierge/internal/model"
)

// Series converts raw indicator values to nullable ones. NaN, infinities
// and exact zeros become null, matching how stored indicators are read.
func Series(values []float64) []null.Float {
	out := make([]null.Float, len(values))
	for i, v := range values {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = null.FloatFrom(v)
	}
	return out
}

func SMASeries(closes []float64, period int) []null.Float { return Series(SMA(closes, period)) }

func EMASeries(closes []float64, span int) []null.Float { return Series(EMA(closes, span)) }

func RSISeries(closes []float64, period int) []null.Float { return Series(RSI(closes, period)) }

// Attach fills SMA20, EMA20 and RSI14 on bars ordered by ascending date.
func Attach(bars []model.Bar) {
	closes := model.Closes(bars)
	sma := SMASeries(closes, SMAPeriod)
	ema := EMASeries(closes, EMASpan)
	rsi := RSISeries(closes, RSIPeriod)
	for i := range bars {
		bars[i].SMA20 = sma[i]
		bars[i].EMA20 = ema[i]
		bars[i].RSI14 = rsi[i]
	}
}
