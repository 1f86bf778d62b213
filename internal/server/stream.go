package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"MarketConcierge/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleInsightStream pushes the symbol's insight every time the forecast
// job refreshes it. The stored insight is sent first unless the hub
// already holds a newer one.
func (s *Server) handleInsightStream(c *gin.Context) {
	symbol := symbolParam(c)
	ctx := c.Request.Context()

	// Loaded before subscribing so anything published later arrives after it.
	stored, storedErr := s.svc.Insight(ctx, symbol)
	if storedErr != nil && !errors.Is(storedErr, store.ErrNotFound) {
		log.Error().Err(storedErr).Str("symbol", symbol).Msg("load insight for stream")
	}

	updates, unsubscribe := s.hub.Subscribe(symbol)
	defer unsubscribe()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()
	log.Info().Str("symbol", symbol).Msg("insight stream opened")

	if _, ok := s.hub.Latest(symbol); !ok && storedErr == nil {
		if err := writeJSON(ws, stored); err != nil {
			return
		}
	}

	// the reader only watches for the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error { return ws.SetReadDeadline(time.Now().Add(pongWait)) })
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case in, ok := <-updates:
			if !ok {
				return
			}
			if err := writeJSON(ws, in); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			log.Info().Str("symbol", symbol).Msg("insight stream closed")
			return
		case <-ctx.Done():
			return
		}
	}
}

func writeJSON(ws *websocket.Conn, v any) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(v); err != nil {
		log.Warn().Err(err).Msg("websocket write failed")
		return err
	}
	return nil
}
