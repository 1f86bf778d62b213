package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/guregu/null/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketConcierge/internal/dashboard"
	"MarketConcierge/internal/ledger"
	"MarketConcierge/internal/metrics"
	"MarketConcierge/internal/model"
	"MarketConcierge/internal/realtime"
	"MarketConcierge/internal/store"
	"MarketConcierge/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	job     worker.Job
	symbols []string
}

func (f *fakeRunner) RunAll(_ context.Context, job worker.Job, symbols []string) (map[string]string, error) {
	if job != worker.JobIngest && job != worker.JobForecast {
		return nil, worker.ErrUnknownJob
	}
	f.job, f.symbols = job, symbols
	out := map[string]string{}
	for _, s := range symbols {
		out[s] = worker.ResultSuccess
	}
	return out, nil
}

type testEnv struct {
	srv    *Server
	market *store.SQLStore
	hub    *realtime.Hub
	runner *fakeRunner
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	market, err := store.OpenSQLite(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = market.Close() })
	book, err := ledger.NewManager(filepath.Join(dir, "ledger.json"), decimal.NewFromInt(10_000_000))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, market.UpsertBars(ctx, []model.Bar{
		{Symbol: "BBCA.JK", Date: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), Open: 9000, High: 9100, Low: 8900, Close: 9000,
			EMA20: null.FloatFrom(8800), RSI14: null.FloatFrom(55), SMA20: null.FloatFrom(8700)},
		{Symbol: "BBCA.JK", Date: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), Open: 9000, High: 9300, Low: 8950, Close: 9200,
			EMA20: null.FloatFrom(8900), RSI14: null.FloatFrom(60), SMA20: null.FloatFrom(8800)},
	}))
	require.NoError(t, market.UpsertProfile(ctx, model.CompanyProfile{Symbol: "BBCA.JK", CompanyName: "Bank Central Asia", Sector: "Banks"}))

	hub := realtime.NewHub()
	runner := &fakeRunner{}
	svc := dashboard.New(market, book, book, dashboard.Options{})
	return testEnv{srv: New(svc, hub, runner, []string{"BBCA.JK", "TLKM.JK"}), market: market, hub: hub, runner: runner}
}

func (e testEnv) do(method, path, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/healthz", "200"))
	env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/healthz", "200")))

	w = env.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "concierge_http_requests_total")
}

func TestStockRoutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.market.UpsertInsight(ctx, model.Insight{Symbol: "BBCA.JK", Sentiment: "BUY", Score: 75}))

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/v1/stocks/bbca.jk/chart", http.StatusOK, `"close":9200`},
		{"/api/v1/stocks/BBCA.JK/sentiment", http.StatusOK, `"label":"STRONG BUY"`},
		{"/api/v1/stocks/BBCA.JK/quote", http.StatusOK, `"company_name":"Bank Central Asia"`},
		{"/api/v1/stocks/NOPE.JK/quote", http.StatusUnprocessableEntity, "no price"},
		{"/api/v1/stocks/BBCA.JK/insight", http.StatusOK, `"sentiment":"BUY"`},
		{"/api/v1/stocks/TLKM.JK/insight", http.StatusNotFound, "not found"},
		{"/api/v1/stocks/BBCA.JK/profile", http.StatusOK, `"sector":"Banks"`},
		{"/api/v1/stocks/NOPE.JK/chart", http.StatusOK, `"data":[]`},
		{"/api/v1/search?q=central", http.StatusOK, `"symbol":"BBCA.JK"`},
		{"/api/v1/search", http.StatusOK, `[]`},
		{"/api/v1/market?filter=gainers&sort=price&order=asc", http.StatusOK, `"change_percentage"`},
		{"/api/v1/market?sort=bogus", http.StatusBadRequest, "unknown sort key"},
		{"/api/v1/leaderboard?limit=x", http.StatusBadRequest, "limit"},
		{"/api/v1/leaderboard", http.StatusOK, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := env.do(http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestUserRoutesRequireHeader(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/v1/portfolio", "/api/v1/transactions", "/api/v1/watchlist", "/api/v1/stocks/BBCA.JK/ticket"} {
		w := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := env.do(http.MethodPost, "/api/v1/orders", "", map[string]any{"symbol": "BBCA.JK", "side": "BUY", "lots": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrders(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/orders", "alice", map[string]any{"symbol": "bbca.jk", "side": "buy", "lots": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	txn := decode[model.Transaction](t, w)
	assert.Equal(t, "BBCA.JK", txn.Symbol)
	assert.Equal(t, model.SideBuy, txn.Side)
	assert.Equal(t, int64(200), txn.Quantity)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing lots", map[string]any{"symbol": "BBCA.JK", "side": "BUY"}, http.StatusBadRequest},
		{"bad side", map[string]any{"symbol": "BBCA.JK", "side": "HOLD", "lots": 1}, http.StatusBadRequest},
		{"no price", map[string]any{"symbol": "NOPE.JK", "side": "BUY", "lots": 1}, http.StatusUnprocessableEntity},
		{"not enough shares", map[string]any{"symbol": "BBCA.JK", "side": "SELL", "lots": 5}, http.StatusConflict},
		{"not enough cash", map[string]any{"symbol": "BBCA.JK", "side": "BUY", "lots": 100}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/orders", "alice", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w = env.do(http.MethodGet, "/api/v1/portfolio", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[dashboard.PortfolioView](t, w)
	require.Len(t, view.Positions, 1)
	assert.Equal(t, int64(2), view.Positions[0].Lots)
	assert.True(t, decimal.NewFromInt(10_000_000-1_840_000).Equal(view.Balance), view.Balance.String())

	w = env.do(http.MethodGet, "/api/v1/transactions?limit=10", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Transaction](t, w), 1)

	w = env.do(http.MethodGet, "/api/v1/stocks/BBCA.JK/ticket", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[dashboard.Ticket](t, w).OwnedLots)

	w = env.do(http.MethodGet, "/api/v1/leaderboard", "", nil)
	board := decode[[]dashboard.LeaderboardEntry](t, w)
	require.Len(t, board, 1)
	assert.Equal(t, "alice", board[0].UserID)
	assert.Equal(t, dashboard.TierRetail, board[0].Tier)
}

func TestWatchlistRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/watchlist", "bob", map[string]string{"symbol": "bbca.jk"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(http.MethodPost, "/api/v1/watchlist", "bob", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/watchlist", "bob", nil)
	items := decode[[]dashboard.WatchItem](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, "Bank Central Asia", items[0].CompanyName)

	w = env.do(http.MethodGet, "/api/v1/watchlist/BBCA.JK", "bob", nil)
	assert.Contains(t, w.Body.String(), `"watching":true`)

	w = env.do(http.MethodPost, "/api/v1/watchlist/TLKM.JK/toggle", "bob", nil)
	assert.Contains(t, w.Body.String(), `"watching":true`)

	w = env.do(http.MethodDelete, "/api/v1/watchlist/BBCA.JK", "bob", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(http.MethodDelete, "/api/v1/watchlist/BBCA.JK", "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/jobs/ingest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, worker.JobIngest, env.runner.job)
	assert.Equal(t, []string{"BBCA.JK", "TLKM.JK"}, env.runner.symbols)

	resp := decode[struct {
		Status  string            `json:"status"`
		Details map[string]string `json:"details"`
	}](t, w)
	assert.Equal(t, "done", resp.Status)
	assert.Equal(t, worker.ResultSuccess, resp.Details["TLKM.JK"])

	w = env.do(http.MethodPost, "/api/v1/jobs/forecast", "", map[string][]string{"symbols": {"goto.jk", " "}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, worker.JobForecast, env.runner.job)
	assert.Equal(t, []string{"GOTO.JK"}, env.runner.symbols)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", store.ErrNotFound), http.StatusNotFound},
		{dashboard.ErrInvalidOrder, http.StatusBadRequest},
		{dashboard.ErrInvalidSymbol, http.StatusBadRequest},
		{ledger.ErrInsufficientFunds, http.StatusConflict},
		{fmt.Errorf("%w: p0001", store.ErrOrderRejected), http.StatusConflict},
		{dashboard.ErrNoPrice, http.StatusUnprocessableEntity},
		{store.ErrUnsupported, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestInsightStream_HubSnapshotSupersedesStored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.market.UpsertInsight(ctx, model.Insight{Symbol: "BBCA.JK", Sentiment: "HOLD", Score: 65}))
	env.hub.Publish(model.Insight{Symbol: "BBCA.JK", Sentiment: "BUY", Score: 75})

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stocks/BBCA.JK/insight/stream"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first model.Insight
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "BUY", first.Sentiment)

	// the older stored row must not follow
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var next model.Insight
	assert.Error(t, conn.ReadJSON(&next))
}

func TestInsightStream(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	stored := model.Insight{Symbol: "BBCA.JK", Sentiment: "HOLD", Score: 65}
	require.NoError(t, env.market.UpsertInsight(ctx, stored))

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stocks/bbca.jk/insight/stream"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first model.Insight
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "HOLD", first.Sentiment)

	require.Eventually(t, func() bool { return env.hub.Subscribers("BBCA.JK") == 1 }, time.Second, 10*time.Millisecond)
	env.hub.Publish(model.Insight{Symbol: "BBCA.JK", Sentiment: "BUY", Score: 75})

	var next model.Insight
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "BUY", next.Sentiment)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return env.hub.Subscribers("BBCA.JK") == 0 }, 2*time.Second, 10*time.Millisecond)
}
