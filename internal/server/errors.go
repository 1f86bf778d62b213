package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"MarketConcierge/internal/dashboard"
	"MarketConcierge/internal/ledger"
	"MarketConcierge/internal/store"
	"MarketConcierge/internal/worker"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrInvalidOrder),
		errors.Is(err, dashboard.ErrInvalidSymbol),
		errors.Is(err, dashboard.ErrInvalidQuery),
		errors.Is(err, worker.ErrUnknownJob):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientShares),
		errors.Is(err, store.ErrOrderRejected):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNoPrice):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= 500 {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// intQuery reads an optional positive integer query parameter.
func intQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be a non-negative integer"})
		return 0, false
	}
	return n, true
}
