package model

import (
	"encoding/json"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar-date layout used for storage and JSON.
const DateLayout = "2006-01-02"

// Bar is one stored daily row: OHLCV plus the indicators computed at ingest.
type Bar struct {
	Symbol string     `json:"symbol"`
	Date   time.Time  `json:"date"`
	Open   float64    `json:"open"`
	High   float64    `json:"high"`
	Low    float64    `json:"low"`
	Close  float64    `json:"close"`
	Volume int64      `json:"volume"`
	SMA20  null.Float `json:"sma_20"`
	EMA20  null.Float `json:"ema_20"`
	RSI14  null.Float `json:"rsi_14"`
}

// PriceSeries holds raw price data returned by a fetcher.
type PriceSeries struct {
	Symbol    string
	Name      string
	Currency  string
	Bars      []Bar
	FetchedAt time.Time
}

// Closes returns the close prices of bars in order.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// ForecastPoint is one predicted close for a future trading day.
type ForecastPoint struct {
	Symbol       string    `json:"symbol"`
	Date         time.Time `json:"forecast_date"`
	Price        float64   `json:"predicted_price"`
	ModelVersion string    `json:"model_version"`
}

// MarketSample is one row of the chart sequence: historical rows carry
// OHLC and indicators, forecast rows carry only Predicted.
type MarketSample struct {
	Date      time.Time  `json:"-"`
	Open      null.Float `json:"open"`
	High      null.Float `json:"high"`
	Low       null.Float `json:"low"`
	Close     null.Float `json:"close"`
	SMA       null.Float `json:"sma"`
	EMA       null.Float `json:"ema"`
	RSI       null.Float `json:"rsi"`
	Predicted null.Float `json:"predicted"`
}

// IsHistorical reports whether the sample is a genuine observation
// (close and RSI both present).
func (s MarketSample) IsHistorical() bool {
	return s.Close.Valid && s.RSI.Valid
}

// SampleFromBar converts a stored bar into a historical chart sample.
func SampleFromBar(b Bar) MarketSample {
	return MarketSample{
		Date:  b.Date,
		Open:  null.FloatFrom(b.Open),
		High:  null.FloatFrom(b.High),
		Low:   null.FloatFrom(b.Low),
		Close: null.FloatFrom(b.Close),
		SMA:   b.SMA20,
		EMA:   b.EMA20,
		RSI:   b.RSI14,
	}
}

// MarshalJSON renders the date as a calendar date next to the price fields.
func (s MarketSample) MarshalJSON() ([]byte, error) {
	type alias MarketSample
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: s.Date.Format(DateLayout), alias: alias(s)})
}
