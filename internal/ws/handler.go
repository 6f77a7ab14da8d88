package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/remote-shell-broker/backend/internal/broker"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Handler upgrades HTTP requests to WebSocket connections and bridges them
// to the broker.
type Handler struct {
	broker   *broker.Broker
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler for the given broker.
func NewHandler(b *broker.Broker, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		broker: b,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy belongs to the surrounding gateway.
				return true
			},
		},
	}
}

// HandleConnection upgrades the request and services the connection until
// it drops. On return, every session the connection owned has been torn
// down.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	connID := uuid.New().String()
	client := NewClient(conn)

	h.broker.Connect(connID, client)

	go h.writePump(client)
	h.readPump(connID, client)
	return nil
}

// readPump applies inbound messages to the broker in arrival order, which
// is what gives control messages their per-session ordering guarantee.
func (h *Handler) readPump(connID string, client *Client) {
	defer func() {
		h.broker.Disconnect(connID)
		client.Close()
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read error",
					zap.String("conn", connID),
					zap.Error(err))
			}
			return
		}

		var msg broker.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Warn("malformed message",
				zap.String("conn", connID),
				zap.Error(err))
			continue
		}

		h.broker.Handle(connID, &msg)
	}
}

// writePump serializes all writes to the connection and keeps it alive
// with periodic pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case data, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message so clients can parse frames directly.
			if err := client.Conn().WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
