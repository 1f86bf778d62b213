// Package server exposes the dashboard over HTTP: a JSON API, a websocket
// stream of advisor insights and the Prometheus endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"MarketConcierge/internal/dashboard"
	"MarketConcierge/internal/realtime"
	"MarketConcierge/internal/worker"
)

// Runner runs a batch job over symbols.
type Runner interface {
	RunAll(ctx context.Context, job worker.Job, symbols []string) (map[string]string, error)
}

// Server wires the HTTP routes to the dashboard service.
type Server struct {
	svc     *dashboard.Service
	hub     *realtime.Hub
	runner  Runner
	symbols []string
	engine  *gin.Engine
}

// New creates a Server. symbols are the default targets of job triggers.
func New(svc *dashboard.Service, hub *realtime.Hub, runner Runner, symbols []string) *Server {
	s := &Server{svc: svc, hub: hub, runner: runner, symbols: symbols}
	s.engine = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), requestMetrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "market-concierge"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	stocks := api.Group("/stocks/:symbol")
	stocks.GET("/chart", s.handleChart)
	stocks.GET("/sentiment", s.handleSentiment)
	stocks.GET("/quote", s.handleQuote)
	stocks.GET("/insight", s.handleInsight)
	stocks.GET("/insight/stream", s.handleInsightStream)
	stocks.GET("/profile", s.handleProfile)
	stocks.GET("/ticket", requireUser(), s.handleTicket)

	api.GET("/search", s.handleSearch)
	api.GET("/market", s.handleMarket)
	api.GET("/leaderboard", s.handleLeaderboard)

	user := api.Group("", requireUser())
	user.GET("/portfolio", s.handlePortfolio)
	user.GET("/transactions", s.handleTransactions)
	user.POST("/orders", s.handlePlaceOrder)
	user.GET("/watchlist", s.handleWatchlist)
	user.POST("/watchlist", s.handleAddWatch)
	user.GET("/watchlist/:symbol", s.handleWatching)
	user.POST("/watchlist/:symbol/toggle", s.handleToggleWatch)
	user.DELETE("/watchlist/:symbol", s.handleRemoveWatch)

	jobs := api.Group("/jobs")
	jobs.POST("/ingest", s.handleJob(worker.JobIngest))
	jobs.POST("/forecast", s.handleJob(worker.JobForecast))

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}
