package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/remote-shell-broker/backend/internal/broker"
)

// Client wraps one WebSocket connection with a buffered outbound queue. It
// implements broker.Sender: sends never block the broker, a client that
// cannot drain its queue is dropped.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client around an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Send marshals and queues a protocol message for delivery.
func (c *Client) Send(msg *broker.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// Slow consumer; drop the connection rather than block the broker.
		c.closeLocked()
	}
}

// Close shuts the outbound queue. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan exposes the outbound queue to the write pump.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}
