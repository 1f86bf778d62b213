package advisor

import (
	"math"
	"time"

	"MarketConcierge/internal/calculator"
	"MarketConcierge/internal/model"
)

// MinHistory is the number of closes needed before an assessment is made.
const MinHistory = 50

const longPeriod = 50

// RSIStatus classifies RSI against the overbought/oversold levels.
type RSIStatus string

const (
	RSIOverbought RSIStatus = "Overbought"
	RSIOversold   RSIStatus = "Oversold"
	RSINeutral    RSIStatus = "Neutral"
)

// Advice is one cell of the trend x RSI matrix.
type Advice struct {
	Sentiment string
	Score     int
	Title     string
	Message   string
}

var (
	insufficient = Advice{
		Sentiment: "NEUTRAL",
		Score:     50,
		Title:     "Insufficient Data",
		Message:   "We are currently gathering more market intelligence to provide an accurate assessment, Sir.",
	}
	observation = Advice{
		Sentiment: "NEUTRAL",
		Score:     50,
		Title:     "Market Observation",
		Message:   "The market is currently showing mixed signals, Sir. Patience is advised.",
	}
)

// Matrix maps trend and RSI status to advice. A missing RSI entry uses the
// RSINeutral cell; a missing trend uses observation.
var Matrix = map[model.Trend]map[RSIStatus]Advice{
	model.TrendBullish: {
		RSIOversold: {
			"STRONG BUY", 90, "Prime Accumulation Zone",
			"An exceptional opportunity, Sir. The asset is in a strong uptrend yet currently undervalued. Ideally positioned for accumulation.",
		},
		RSIOverbought: {
			"HOLD", 65, "Momentum is High",
			"The trend is robust, but the price is slightly extended. I would advise holding your current position rather than chasing, Sir.",
		},
		RSINeutral: {
			"BUY", 75, "Steady Growth Trajectory",
			"Performance remains solid with a healthy upward trajectory. Adding to your portfolio at these levels appears prudent.",
		},
	},
	model.TrendBearish: {
		RSIOverbought: {
			"STRONG SELL", 10, "Capital Preservation Advised",
			"The structure is weakening and price is elevated. It would be wise to liquidate positions to preserve your capital, Sir.",
		},
		RSIOversold: {
			"WATCHLIST", 40, "Potential Reversal Forming",
			"The asset is heavily discounted. While still risky, it warrants close observation for a potential reversal entry.",
		},
		RSINeutral: {
			"SELL", 25, "Negative Outlook",
			"The prevailing trend is downward. I cannot recommend entry at this time; existing exposure should be minimized.",
		},
	},
}

// ClassifyTrend compares price against the long SMA and the EMA20.
func ClassifyTrend(price, smaLong, ema float64) model.Trend {
	switch {
	case price > smaLong && price > ema:
		return model.TrendBullish
	case price < smaLong && price < ema:
		return model.TrendBearish
	default:
		return model.TrendSideways
	}
}

// ClassifyRSI returns the RSI status. An undefined RSI is neutral.
func ClassifyRSI(rsi float64) RSIStatus {
	switch {
	case rsi > 70:
		return RSIOverbought
	case rsi < 30:
		return RSIOversold
	default:
		return RSINeutral
	}
}

func lookup(trend model.Trend, status RSIStatus) Advice {
	row, ok := Matrix[trend]
	if !ok {
		return observation
	}
	return row[status]
}

// Generate builds the advisor insight for a symbol from its full close
// history in ascending order.
func Generate(symbol string, closes []float64, now time.Time) model.Insight {
	insight := model.Insight{
		Symbol:    symbol,
		Trend:     model.TrendSideways,
		UpdatedAt: now,
	}
	if len(closes) < MinHistory {
		apply(&insight, insufficient)
		return insight
	}

	price := closes[len(closes)-1]
	rsi := calculator.Last(calculator.RSI(closes, calculator.RSIPeriod))
	ema := calculator.Last(calculator.EMA(closes, calculator.EMASpan))
	smaLong := calculator.Last(calculator.SMA(closes, longPeriod))

	trend := ClassifyTrend(price, smaLong, ema)
	apply(&insight, lookup(trend, ClassifyRSI(rsi)))
	insight.Trend = trend
	insight.RSI = round2(rsi)
	insight.EMA20 = round2(ema)
	return insight
}

func apply(insight *model.Insight, a Advice) {
	insight.Sentiment = a.Sentiment
	insight.Score = a.Score
	insight.Title = a.Title
	insight.Message = a.Message
}

// round2 rounds to two decimals; undefined values become 0.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
