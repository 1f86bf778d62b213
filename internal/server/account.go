package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"MarketConcierge/internal/model"
)

func (s *Server) handlePortfolio(c *gin.Context) {
	view, err := s.svc.Portfolio(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleTransactions(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	txns, err := s.svc.Transactions(c.Request.Context(), userID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (s *Server) handleTicket(c *gin.Context) {
	t, err := s.svc.Ticket(c.Request.Context(), userID(c), symbolParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type orderRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Side   string `json:"side" binding:"required"`
	Lots   int64  `json:"lots" binding:"required"`
}

func (s *Server) handlePlaceOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	side := model.Side(strings.ToUpper(strings.TrimSpace(req.Side)))
	txn, err := s.svc.PlaceOrder(c.Request.Context(), userID(c), req.Symbol, side, req.Lots)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (s *Server) handleWatchlist(c *gin.Context) {
	items, err := s.svc.Watchlist(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type watchRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (s *Server) handleAddWatch(c *gin.Context) {
	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := s.svc.AddWatch(c.Request.Context(), userID(c), req.Symbol); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleWatching(c *gin.Context) {
	symbol := symbolParam(c)
	ok, err := s.svc.Watching(c.Request.Context(), userID(c), symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "watching": ok})
}

func (s *Server) handleToggleWatch(c *gin.Context) {
	symbol := symbolParam(c)
	ok, err := s.svc.ToggleWatch(c.Request.Context(), userID(c), symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "watching": ok})
}

func (s *Server) handleRemoveWatch(c *gin.Context) {
	if err := s.svc.RemoveWatch(c.Request.Context(), userID(c), symbolParam(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
