package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MacroCompass/pkg/http/middleware"
	xlogger "MacroCompass/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

func (h *RegimeEchoHandler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin accepts same-host pages and the configured origins.
func (h *RegimeEchoHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || middleware.OriginAllowed(h.origins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// Stream upgrades to a websocket and pushes the current result on connect
// and then every push interval until the client goes away.
func (h *RegimeEchoHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader().Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()
	// Drop the deadlines inherited from the HTTP server.
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Reader: notices close frames and dead peers.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	for {
		if err := h.push(ctx, conn); err != nil {
			h.logger.Debug("websocket closed", xlogger.Error(err))
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (h *RegimeEchoHandler) push(ctx context.Context, conn *websocket.Conn) error {
	res, err := h.provider.Current(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.logger.Warn("websocket push skipped", xlogger.Error(err))
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(res)
}
