package dashboard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketConcierge/internal/ledger"
	"MarketConcierge/internal/model"
	"MarketConcierge/internal/store"
)

func day(n int) time.Time {
	return time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

type fixture struct {
	svc    *Service
	market *store.SQLStore
	ledger *ledger.Manager
}

func newFixture(t *testing.T, window int) fixture {
	t.Helper()
	dir := t.TempDir()
	market, err := store.OpenSQLite(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = market.Close() })
	book, err := ledger.NewManager(filepath.Join(dir, "ledger.json"), decimal.NewFromInt(100_000_000))
	require.NoError(t, err)
	return fixture{
		svc:    New(market, book, book, Options{Window: window, LotSize: 100}),
		market: market,
		ledger: book,
	}
}

func seedBars(t *testing.T, s *store.SQLStore, symbol string, closes ...float64) {
	t.Helper()
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Symbol: symbol, Date: day(i), Open: c - 10, High: c + 5, Low: c - 15, Close: c, Volume: 1000,
			RSI14: null.FloatFrom(55), EMA20: null.FloatFrom(c - 1), SMA20: null.FloatFrom(c - 2),
		}
	}
	require.NoError(t, s.UpsertBars(context.Background(), bars))
}

func TestMerge(t *testing.T) {
	bars := []model.Bar{
		{Date: day(0), Close: 100, RSI14: null.FloatFrom(50)},
		{Date: day(1), Close: 110, RSI14: null.FloatFrom(60)},
	}
	points := []model.ForecastPoint{
		{Date: day(1), Price: 999},
		{Date: day(2), Price: 111},
		{Date: day(3), Price: 112},
	}

	got := Merge(bars, points)
	require.Len(t, got, 5)
	assert.True(t, got[1].IsHistorical())
	bridge := got[2]
	assert.True(t, bridge.Date.Equal(day(1)))
	assert.Equal(t, null.FloatFrom(110), bridge.Predicted)
	assert.False(t, bridge.Close.Valid)
	assert.Equal(t, null.FloatFrom(111), got[3].Predicted)
	assert.Equal(t, null.FloatFrom(112), got[4].Predicted)

	noForecast := Merge(bars, nil)
	assert.Len(t, noForecast, 2)

	assert.Empty(t, Merge(nil, points))
}

func TestChart_WindowAndBridge(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	seedBars(t, f.market, "BBCA.JK", 100, 101, 102, 103, 104)
	require.NoError(t, f.market.UpsertForecast(ctx, []model.ForecastPoint{
		{Symbol: "BBCA.JK", Date: day(7), Price: 106},
		{Symbol: "BBCA.JK", Date: day(8), Price: 107},
	}))

	got, err := f.svc.Chart(ctx, "BBCA.JK")
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, 102.0, got[0].Close.Float64)
	assert.Equal(t, 104.0, got[2].Close.Float64)
	assert.Equal(t, 104.0, got[3].Predicted.Float64)
	assert.Equal(t, 107.0, got[5].Predicted.Float64)

	empty, err := f.svc.Chart(ctx, "NOPE.JK")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSentiment(t *testing.T) {
	f := newFixture(t, 90)
	ctx := context.Background()
	seedBars(t, f.market, "BBCA.JK", 100, 120)

	view, err := f.svc.Sentiment(ctx, "BBCA.JK")
	require.NoError(t, err)
	// 120 vs ema 119: weak uptrend +10, rsi 55 +5, above sma +15
	assert.True(t, view.Available)
	assert.Equal(t, 80, view.Score)
	assert.Equal(t, model.LabelStrongBuy, view.Label)
	assert.Equal(t, "emerald", view.Tone.Color)
	assert.Equal(t, 0.8, view.Gauge)

	none, err := f.svc.Sentiment(ctx, "NOPE.JK")
	require.NoError(t, err)
	assert.False(t, none.Available)
	assert.Equal(t, 50, none.Score)
	assert.Equal(t, model.LabelNeutral, none.Label)
}

func TestQuote(t *testing.T) {
	f := newFixture(t, 90)
	ctx := context.Background()
	seedBars(t, f.market, "TLKM.JK", 3000, 3100, 3050)
	require.NoError(t, f.market.UpsertProfile(ctx, model.CompanyProfile{Symbol: "TLKM.JK", CompanyName: "Telkom Indonesia"}))

	q, err := f.svc.Quote(ctx, "TLKM.JK")
	require.NoError(t, err)
	assert.Equal(t, 3050.0, q.Price)
	assert.Equal(t, 10.0, q.Change)
	assert.Equal(t, 3105.0, q.High52w)
	assert.Equal(t, 2985.0, q.Low52w)
	assert.Equal(t, "Telkom Indonesia", q.CompanyName)

	_, err = f.svc.Quote(ctx, "NOPE.JK")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t, 90)
	ctx := context.Background()
	seedBars(t, f.market, "BBCA.JK", 9000, 9500)

	txn, err := f.svc.PlaceOrder(ctx, "u1", "bbca.jk", model.SideBuy, 2)
	require.NoError(t, err)
	assert.Equal(t, "BBCA.JK", txn.Symbol)
	assert.Equal(t, int64(200), txn.Quantity)
	assert.True(t, decimal.NewFromInt(9500).Equal(txn.Price))

	ticket, err := f.svc.Ticket(ctx, "u1", "BBCA.JK")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ticket.OwnedLots)
	assert.True(t, decimal.NewFromInt(98_100_000).Equal(ticket.Balance), ticket.Balance.String())
	assert.Equal(t, int64(103), ticket.MaxBuyLots)

	tests := []struct {
		name   string
		symbol string
		side   model.Side
		lots   int64
		want   error
	}{
		{"zero lots", "BBCA.JK", model.SideBuy, 0, ErrInvalidOrder},
		{"bad side", "BBCA.JK", "HOLD", 1, ErrInvalidOrder},
		{"blank symbol", " ", model.SideBuy, 1, ErrInvalidOrder},
		{"no price", "NOPE.JK", model.SideBuy, 1, ErrNoPrice},
		{"oversell", "BBCA.JK", model.SideSell, 3, ledger.ErrInsufficientShares},
		{"overspend", "BBCA.JK", model.SideBuy, 1000, ledger.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(ctx, "u1", tt.symbol, tt.side, tt.lots)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPortfolio(t *testing.T) {
	f := newFixture(t, 90)
	ctx := context.Background()
	seedBars(t, f.market, "BBCA.JK", 1000)

	_, err := f.svc.PlaceOrder(ctx, "u1", "BBCA.JK", model.SideBuy, 1)
	require.NoError(t, err)
	seedBars(t, f.market, "BBCA.JK", 1100)

	// a holding with no stored price is valued at its average price
	_, err = f.ledger.ExecuteOrder(ctx, "u1", model.Order{
		Symbol: "GOTO.JK", Side: model.SideBuy, Quantity: 100, Price: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	view, err := f.svc.Portfolio(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Positions, 2)

	bbca := view.Positions[0]
	assert.Equal(t, "BBCA.JK", bbca.Symbol)
	assert.Equal(t, int64(1), bbca.Lots)
	assert.True(t, decimal.NewFromInt(110_000).Equal(bbca.MarketValue))
	assert.True(t, decimal.NewFromInt(10_000).Equal(bbca.UnrealizedPL))
	assert.True(t, decimal.NewFromInt(10).Equal(bbca.PLPercent))

	gotoPos := view.Positions[1]
	assert.True(t, decimal.NewFromInt(50).Equal(gotoPos.CurrentPrice))
	assert.True(t, gotoPos.UnrealizedPL.IsZero())

	wantCash := decimal.NewFromInt(100_000_000 - 100_000 - 5_000)
	assert.True(t, wantCash.Equal(view.Balance), view.Balance.String())
	assert.True(t, wantCash.Add(decimal.NewFromInt(115_000)).Equal(view.TotalEquity))

	txns, err := f.svc.Transactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t, 90)
	ctx := context.Background()
	seedBars(t, f.market, "BBCA.JK", 1000)

	_, err := f.svc.PlaceOrder(ctx, "rich", "BBCA.JK", model.SideBuy, 10)
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, "poor", "BBCA.JK", model.SideBuy, 1)
	require.NoError(t, err)
	seedBars(t, f.market, "BBCA.JK", 200_000)

	board, err := f.svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "rich", board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, TierPro, board[0].Tier)
	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, TierRetail, board[1].Tier)

	top, err := f.svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, TierWhale, TierFor(decimal.NewFromInt(500_000_000)))
	assert.Equal(t, TierPro, TierFor(decimal.NewFromInt(499_999_999)))
	assert.Equal(t, TierPro, TierFor(decimal.NewFromInt(150_000_000)))
	assert.Equal(t, TierRetail, TierFor(decimal.NewFromInt(149_999_999)))
}

func TestWatchlist(t *testing.T) {
	f := newFixture(t, 90)
	ctx := context.Background()
	seedBars(t, f.market, "BBCA.JK", 1000)
	require.NoError(t, f.market.UpsertProfile(ctx, model.CompanyProfile{Symbol: "BBCA.JK", CompanyName: "Bank Central Asia"}))

	require.NoError(t, f.svc.AddWatch(ctx, "u1", " bbca.jk "))
	assert.ErrorIs(t, f.svc.AddWatch(ctx, "u1", ""), ErrInvalidSymbol)

	items, err := f.svc.Watchlist(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bank Central Asia", items[0].CompanyName)
	assert.Equal(t, null.FloatFrom(1000), items[0].Price)
	assert.InDelta(t, 1.0101, items[0].ChangePct.Float64, 1e-3)

	watching, err := f.svc.ToggleWatch(ctx, "u1", "BBCA.JK")
	require.NoError(t, err)
	assert.False(t, watching)
	watching, err = f.svc.ToggleWatch(ctx, "u1", "TLKM.JK")
	require.NoError(t, err)
	assert.True(t, watching)

	ok, err := f.svc.Watching(ctx, "u1", "tlkm.jk")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.svc.RemoveWatch(ctx, "u1", "TLKM.JK"))
	assert.ErrorIs(t, f.svc.RemoveWatch(ctx, "u1", "TLKM.JK"), store.ErrNotFound)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, 90)
	ctx := context.Background()
	for _, p := range []model.CompanyProfile{
		{Symbol: "BBCA.JK", CompanyName: "Bank Central Asia"},
		{Symbol: "BBRI.JK", CompanyName: "Bank Rakyat Indonesia"},
		{Symbol: "TLKM.JK", CompanyName: "Telkom Indonesia"},
	} {
		require.NoError(t, f.market.UpsertProfile(ctx, p))
	}

	hits, err := f.svc.Search(ctx, "indonesia")
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = f.svc.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestScreener(t *testing.T) {
	f := newFixture(t, 90)
	ctx := context.Background()
	require.NoError(t, f.market.UpsertBars(ctx, []model.Bar{
		{Symbol: "BBCA.JK", Date: day(0), Open: 100, Close: 110, Volume: 10},
		{Symbol: "TLKM.JK", Date: day(0), Open: 100, Close: 90, Volume: 30},
		{Symbol: "ASII.JK", Date: day(0), Open: 100, Close: 105, Volume: 20},
		{Symbol: "UNPROFILED.JK", Date: day(0), Open: 1, Close: 2},
	}))
	for _, p := range []model.CompanyProfile{
		{Symbol: "BBCA.JK", CompanyName: "Bank Central Asia"},
		{Symbol: "TLKM.JK", CompanyName: "Telkom Indonesia"},
		{Symbol: "ASII.JK", CompanyName: "Astra International"},
		{Symbol: "NOPRICE.JK", CompanyName: "No Price"},
	} {
		require.NoError(t, f.market.UpsertProfile(ctx, p))
	}

	symbols := func(rows []ScreenerRow) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.Symbol)
		}
		return out
	}

	tests := []struct {
		name  string
		query ScreenerQuery
		want  []string
	}{
		{"default sorts by change desc", ScreenerQuery{}, []string{"BBCA.JK", "ASII.JK", "TLKM.JK"}},
		{"gainers", ScreenerQuery{Filter: "gainers"}, []string{"BBCA.JK", "ASII.JK"}},
		{"losers", ScreenerQuery{Filter: FilterLosers}, []string{"TLKM.JK"}},
		{"search by name", ScreenerQuery{Search: "bank"}, []string{"BBCA.JK"}},
		{"search by symbol", ScreenerQuery{Search: "asii"}, []string{"ASII.JK"}},
		{"volume ascending", ScreenerQuery{SortBy: "volume", Asc: true}, []string{"BBCA.JK", "ASII.JK", "TLKM.JK"}},
		{"symbol ascending", ScreenerQuery{SortBy: "symbol", Asc: true}, []string{"ASII.JK", "BBCA.JK", "TLKM.JK"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := f.svc.Screener(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, symbols(rows))
		})
	}

	_, err := f.svc.Screener(ctx, ScreenerQuery{SortBy: "nope"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = f.svc.Screener(ctx, ScreenerQuery{Filter: "nope"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
