//go:build !windows

package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/remote-shell-broker/backend/internal/broker"
	"github.com/remote-shell-broker/backend/internal/registry"
	"github.com/remote-shell-broker/backend/internal/shell"
)

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	b := broker.New(reg, shell.NewLauncher(nil), nil, broker.Options{})
	h := NewHandler(b, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/terminal", func(c *gin.Context) {
		h.HandleConnection(c.Writer, c.Request)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(b.Shutdown)
	return srv, reg
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/terminal"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg *broker.Message) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

// readUntil reads frames until a message of the wanted type arrives,
// concatenating any data payloads seen along the way.
func readUntil(t *testing.T, conn *websocket.Conn, want broker.MessageType) (*broker.Message, string) {
	t.Helper()

	var data strings.Builder
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed waiting for %s: %v", want, err)
		}

		var msg broker.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("malformed frame: %v", err)
		}

		if msg.Type == broker.MessageTypeData {
			data.WriteString(msg.Data)
		}
		if msg.Type == want {
			return &msg, data.String()
		}
	}
}

func TestWebSocket_SessionRoundTrip(t *testing.T) {
	srv, reg := newTestServer(t)
	conn := dial(t, srv)

	sendMessage(t, conn, &broker.Message{
		Type:      broker.MessageTypeCreate,
		SessionID: "s1",
		Shell:     "sh",
		Cwd:       t.TempDir(),
	})

	created, _ := readUntil(t, conn, broker.MessageTypeCreated)
	if created.SessionID != "s1" {
		t.Errorf("expected session s1, got %s", created.SessionID)
	}
	if created.Cwd == "" {
		t.Error("created message should echo the resolved workdir")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", reg.Len())
	}

	sendMessage(t, conn, &broker.Message{
		Type:      broker.MessageTypeInput,
		SessionID: "s1",
		Data:      "echo round-trip\nexit\n",
	})

	exit, output := readUntil(t, conn, broker.MessageTypeExit)
	if exit.Code == nil || *exit.Code != 0 {
		t.Errorf("expected exit code 0, got %v", exit.Code)
	}
	if !strings.Contains(output, "round-trip") {
		t.Errorf("expected echoed output, got %q", output)
	}

	if reg.Len() != 0 {
		t.Errorf("registry should be empty after exit, got %d", reg.Len())
	}
}

func TestWebSocket_ErrorForUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	sendMessage(t, conn, &broker.Message{
		Type:      broker.MessageTypeInput,
		SessionID: "ghost",
		Data:      "ls\n",
	})

	errMsg, _ := readUntil(t, conn, broker.MessageTypeError)
	if errMsg.SessionID != "ghost" || errMsg.Error == "" {
		t.Errorf("expected tagged error message, got %+v", errMsg)
	}
}

func TestWebSocket_DisconnectTearsDownSessions(t *testing.T) {
	srv, reg := newTestServer(t)
	conn := dial(t, srv)

	for _, id := range []string{"d1", "d2"} {
		sendMessage(t, conn, &broker.Message{
			Type:      broker.MessageTypeCreate,
			SessionID: id,
			Shell:     "sh",
			Cwd:       t.TempDir(),
		})
		readUntil(t, conn, broker.MessageTypeCreated)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", reg.Len())
	}

	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for reg.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sessions not torn down after disconnect, %d remain", reg.Len())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWebSocket_MalformedFrameIsIgnored(t *testing.T) {
	srv, reg := newTestServer(t)
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// The connection stays usable after garbage.
	sendMessage(t, conn, &broker.Message{
		Type:      broker.MessageTypeCreate,
		SessionID: "s1",
		Shell:     "sh",
		Cwd:       t.TempDir(),
	})
	readUntil(t, conn, broker.MessageTypeCreated)

	if reg.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", reg.Len())
	}
}
