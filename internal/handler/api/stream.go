package api

import (
	xlogger "Jarvis/pkg/logger"
	"Jarvis/pkg/ws"

	"github.com/labstack/echo/v4"
)

// StreamHandler upgrades /ws to the push hub.
type StreamHandler struct {
	logger *xlogger.Logger
	hub    *ws.Hub
}

func NewStreamHandler(logger *xlogger.Logger, hub *ws.Hub) *StreamHandler {
	return &StreamHandler{logger: logger, hub: hub}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve blocks for the life of the connection. The upgrader already wrote
// the error response when the handshake fails.
func (h *StreamHandler) Serve(c echo.Context) error {
	if err := h.hub.ServeWS(c.Response(), c.Request()); err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
	}
	return nil
}
