package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"MarketConcierge/internal/calculator"
	"MarketConcierge/internal/model"
)

// DefaultHistoryDays is roughly two years of trading days.
const DefaultHistoryDays = 504

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData []model.Bar
	Names     map[string]string
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) (*model.PriceSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	bars := m.DailyData
	if bars == nil {
		bars = generateMockBars(m.Price, days, time.Now())
	}
	return &model.PriceSeries{
		Symbol:    symbol,
		Name:      m.Names[symbol],
		Currency:  "IDR",
		Bars:      append([]model.Bar(nil), bars...),
		FetchedAt: time.Now(),
	}, nil
}

func generateMockBars(basePrice float64, count int, now time.Time) []model.Bar {
	bars := make([]model.Bar, count)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := count - 1; i >= 0; i-- {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, -1)
		}
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Date:   day,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
		day = day.AddDate(0, 0, -1)
	}
	return bars
}

// Collector fetches daily bars and attaches the stored indicators.
type Collector struct {
	Fetcher Fetcher
	Days    int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, days int) *Collector {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	return &Collector{Fetcher: fetcher, Days: days}
}

// Collect fetches market data for symbol and computes SMA20, EMA20 and
// RSI14 on every bar. Bars are returned in ascending date order.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	series, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.Days)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	if len(series.Bars) == 0 {
		return nil, fmt.Errorf("%s: no data returned by %s", symbol, c.Fetcher.Name())
	}

	sort.Slice(series.Bars, func(i, j int) bool { return series.Bars[i].Date.Before(series.Bars[j].Date) })
	series.Symbol = symbol
	for i := range series.Bars {
		series.Bars[i].Symbol = symbol
	}

	if len(series.Bars) < calculator.SMAPeriod {
		log.Warn().Str("symbol", symbol).Int("bars", len(series.Bars)).
			Msg("short history, early indicators will be null")
	}
	calculator.Attach(series.Bars)
	return series, nil
}
