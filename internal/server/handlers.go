package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"MarketConcierge/internal/dashboard"
	"MarketConcierge/internal/worker"
)

func symbolParam(c *gin.Context) string {
	return dashboard.NormalizeSymbol(c.Param("symbol"))
}

func (s *Server) handleChart(c *gin.Context) {
	symbol := symbolParam(c)
	samples, err := s.svc.Chart(c.Request.Context(), symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "data": samples})
}

func (s *Server) handleSentiment(c *gin.Context) {
	view, err := s.svc.Sentiment(c.Request.Context(), symbolParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleQuote(c *gin.Context) {
	q, err := s.svc.Quote(c.Request.Context(), symbolParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) handleInsight(c *gin.Context) {
	in, err := s.svc.Insight(c.Request.Context(), symbolParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, in)
}

func (s *Server) handleProfile(c *gin.Context) {
	p, err := s.svc.Profile(c.Request.Context(), symbolParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleSearch(c *gin.Context) {
	results, err := s.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) handleMarket(c *gin.Context) {
	q := dashboard.ScreenerQuery{
		Filter: c.Query("filter"),
		Search: c.Query("q"),
		SortBy: c.Query("sort"),
		Asc:    strings.EqualFold(c.Query("order"), "asc"),
	}
	rows, err := s.svc.Screener(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	entries, err := s.svc.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type jobRequest struct {
	Symbols []string `json:"symbols"`
}

// handleJob runs job synchronously over the requested symbols, or the
// configured ones when the body names none.
func (s *Server) handleJob(job worker.Job) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req jobRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
				return
			}
		}
		symbols := s.symbols
		if len(req.Symbols) > 0 {
			symbols = make([]string, 0, len(req.Symbols))
			for _, sym := range req.Symbols {
				if sym = dashboard.NormalizeSymbol(sym); sym != "" {
					symbols = append(symbols, sym)
				}
			}
		}

		details, err := s.runner.RunAll(c.Request.Context(), job, symbols)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "done", "details": details})
	}
}
