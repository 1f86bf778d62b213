package model

import "time"

// SentimentLabel is the discrete trading signal shown on the gauge.
type SentimentLabel string

const (
	LabelStrongBuy  SentimentLabel = "STRONG BUY"
	LabelBuy        SentimentLabel = "BUY"
	LabelNeutral    SentimentLabel = "NEUTRAL"
	LabelSell       SentimentLabel = "SELL"
	LabelStrongSell SentimentLabel = "STRONG SELL"
)

// SentimentResult is the output of the scoring engine.
type SentimentResult struct {
	Score int            `json:"score"`
	Label SentimentLabel `json:"label"`
}

// Trend describes the advisor's view of price against its averages.
type Trend string

const (
	TrendBullish  Trend = "Bullish"
	TrendBearish  Trend = "Bearish"
	TrendSideways Trend = "Sideways"
)

// Insight is the advisor row stored per symbol and pushed to subscribers.
// Sentiment also carries the advisor-only values HOLD and WATCHLIST.
type Insight struct {
	Symbol    string    `json:"symbol"`
	Sentiment string    `json:"sentiment"`
	Score     int       `json:"score"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RSI       float64   `json:"rsi"`
	EMA20     float64   `json:"ema_20"`
	Trend     Trend     `json:"trend"`
	UpdatedAt time.Time `json:"updated_at"`
}
