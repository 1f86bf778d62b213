package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketConcierge/internal/model"
)

func TestSMA_Rolling(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4}, 2)
	require.Len(t, got, 4)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, got[1:])
}

func TestEMA(t *testing.T) {
	assert.Equal(t, []float64{2, 4, 6}, EMA([]float64{2, 4, 6}, 1))
	// span 3 gives alpha 0.5
	assert.Equal(t, []float64{2, 3, 4.5}, EMA([]float64{2, 4, 6}, 3))
	assert.Empty(t, EMA(nil, 20))
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		period int
		index  int
		want   float64
	}{
		{"only gains", []float64{1, 2, 3, 4, 5}, 3, 4, 100},
		{"equal gains and losses", []float64{10, 11, 10, 11}, 2, 2, 50},
		{"first change counts as zero", []float64{10, 11, 10}, 2, 1, 100},
		{"one loss in three", []float64{10, 12, 11, 13}, 3, 3, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RSI(tt.prices, tt.period)
			assert.InDelta(t, tt.want, got[tt.index], 1e-9)
			for i := 0; i < tt.period-1; i++ {
				assert.True(t, math.IsNaN(got[i]), "index %d", i)
			}
		})
	}
}

func TestRSI_FlatWindowIsUndefined(t *testing.T) {
	got := RSI([]float64{5, 5, 5, 5}, 3)
	assert.True(t, math.IsNaN(got[3]))
}

func TestRSI_Bounds(t *testing.T) {
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/3)
	}
	for i, v := range RSI(prices, RSIPeriod) {
		if math.IsNaN(v) {
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0, "index %d", i)
		assert.LessOrEqual(t, v, 100.0, "index %d", i)
	}
}

func TestSeries_NullsUndefinedAndZero(t *testing.T) {
	got := Series([]float64{math.NaN(), 0, 1.5, math.Inf(1)})
	require.Len(t, got, 4)
	assert.False(t, got[0].Valid)
	assert.False(t, got[1].Valid)
	assert.True(t, got[2].Valid)
	assert.Equal(t, 1.5, got[2].Float64)
	assert.False(t, got[3].Valid)
}

func TestAttach(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 30)
	for i := range bars {
		bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Close: float64(100 + i)}
	}
	Attach(bars)

	assert.False(t, bars[18].SMA20.Valid)
	require.True(t, bars[19].SMA20.Valid)
	assert.InDelta(t, 109.5, bars[19].SMA20.Float64, 1e-9)

	require.True(t, bars[0].EMA20.Valid)
	assert.Equal(t, 100.0, bars[0].EMA20.Float64)

	assert.False(t, bars[12].RSI14.Valid)
	require.True(t, bars[13].RSI14.Valid)
	assert.Equal(t, 100.0, bars[13].RSI14.Float64)
}

func TestTrailingRange(t *testing.T) {
	bars := []model.Bar{
		{High: 50, Low: 1},
		{High: 12, Low: 8},
		{High: 15, Low: 9},
		{High: 11, Low: 7},
	}
	high, low, err := TrailingRange(bars, 3)
	require.NoError(t, err)
	assert.Equal(t, 15.0, high)
	assert.Equal(t, 7.0, low)

	high, low, err = TrailingRange(bars, TradingDaysPerYear)
	require.NoError(t, err)
	assert.Equal(t, 50.0, high)
	assert.Equal(t, 1.0, low)

	_, _, err = TrailingRange(nil, 3)
	assert.Error(t, err)
}

func TestRangePosition(t *testing.T) {
	pos, err := RangePosition(75, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos)

	pos, err = RangePosition(120, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos)

	pos, err = RangePosition(10, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos)

	_, err = RangePosition(10, 5, 10)
	assert.Error(t, err)
}

func TestDailyChange(t *testing.T) {
	change, pct, ok := DailyChange(200, 210)
	assert.True(t, ok)
	assert.Equal(t, 10.0, change)
	assert.Equal(t, 5.0, pct)

	change, _, ok = DailyChange(0, 10)
	assert.False(t, ok)
	assert.Equal(t, 10.0, change)
}
