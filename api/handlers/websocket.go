package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/remote-shell-broker/backend/internal/ws"
)

// WebSocketHandler attaches terminal protocol connections.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{wsHandler: wsHandler}
}

// Attach handles GET /api/terminal: upgrades to WebSocket and services the
// session protocol until the connection drops.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	// Upgrade errors are already written to the response by the upgrader.
	h.wsHandler.HandleConnection(c.Writer, c.Request)
}

// RegisterRoutes registers the WebSocket route on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/terminal", h.Attach)
}
