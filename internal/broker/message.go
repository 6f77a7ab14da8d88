package broker

// MessageType discriminates protocol messages exchanged with a client.
type MessageType string

const (
	// Client -> broker message types
	MessageTypeCreate MessageType = "create"
	MessageTypeInput  MessageType = "input"
	MessageTypeResize MessageType = "resize"
	MessageTypeKill   MessageType = "kill"
	MessageTypeAttach MessageType = "attach"

	// Broker -> client message types
	MessageTypeCreated  MessageType = "created"
	MessageTypeData     MessageType = "data"
	MessageTypeExit     MessageType = "exit"
	MessageTypeError    MessageType = "error"
	MessageTypeResized  MessageType = "resized"
	MessageTypeKilled   MessageType = "killed"
	MessageTypeAttached MessageType = "attached"
)

// Message is one framed protocol message. Unused fields are omitted on the
// wire. Data carries raw session bytes verbatim; the broker performs no
// line buffering and no encoding transformation.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Shell     string      `json:"shell,omitempty"`
	Cwd       string      `json:"cwd,omitempty"`
	Data      string      `json:"data,omitempty"`
	Cols      uint16      `json:"cols,omitempty"`
	Rows      uint16      `json:"rows,omitempty"`
	Code      *int        `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Sender delivers outbound messages to one client connection. Implementations
// must be safe for concurrent use and must not block the caller indefinitely;
// the websocket transport satisfies this with a buffered send queue.
type Sender interface {
	Send(*Message)
}

func errorMessage(sessionID, reason string) *Message {
	return &Message{Type: MessageTypeError, SessionID: sessionID, Error: reason}
}
