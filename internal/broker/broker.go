// Package broker owns the per-connection protocol state machine for
// terminal sessions. It is the only component that mutates the session
// registry: inbound control messages, subprocess exit callbacks, and
// connection disconnects all funnel through it.
package broker

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/remote-shell-broker/backend/internal/buffer"
	"github.com/remote-shell-broker/backend/internal/model"
	"github.com/remote-shell-broker/backend/internal/registry"
	"github.com/remote-shell-broker/backend/internal/shell"
)

const (
	// DefaultReplayBufferSize bounds the per-session output replay cache.
	DefaultReplayBufferSize = 64 * 1024

	// readBufferSize is the chunk size for draining session output.
	readBufferSize = 4096
)

// Recorder persists session audit records. Implementations must tolerate
// being called from multiple goroutines.
type Recorder interface {
	SessionStarted(ctx context.Context, rec *model.SessionRecord) (int64, error)
	SessionFinished(ctx context.Context, rowID int64, status model.SessionStatus, exitCode *int) error
}

// Options tunes broker construction.
type Options struct {
	// ReplayBufferSize is the per-session replay cache size in bytes.
	// Zero selects DefaultReplayBufferSize.
	ReplayBufferSize int

	// Recorder receives audit records; nil disables auditing.
	Recorder Recorder
}

// Broker relays bytes between shell subprocesses and remote clients and
// tracks session lifecycle and ownership. The registry is injected so
// independent brokers can coexist in tests.
type Broker struct {
	registry   *registry.Registry
	launcher   *shell.Launcher
	recorder   Recorder
	log        *zap.Logger
	replaySize int

	mu    sync.RWMutex
	conns map[string]Sender
}

// New creates a Broker around the given registry and launcher.
func New(reg *registry.Registry, launcher *shell.Launcher, log *zap.Logger, opts Options) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	size := opts.ReplayBufferSize
	if size <= 0 {
		size = DefaultReplayBufferSize
	}
	return &Broker{
		registry:   reg,
		launcher:   launcher,
		recorder:   opts.Recorder,
		log:        log,
		replaySize: size,
		conns:      make(map[string]Sender),
	}
}

// Connect registers a client connection and its outbound sender. Session
// output is routed to the sender registered for the session's owner.
func (b *Broker) Connect(connID string, out Sender) {
	b.mu.Lock()
	b.conns[connID] = out
	b.mu.Unlock()

	b.log.Info("connection opened", zap.String("conn", connID))
}

// Disconnect removes the connection and tears down every session it owns:
// each is removed from the registry and its process terminated if still
// alive. No messages are emitted, the connection is gone. Returns the
// number of sessions torn down.
func (b *Broker) Disconnect(connID string) int {
	b.mu.Lock()
	delete(b.conns, connID)
	b.mu.Unlock()

	swept := b.registry.RemoveAllOwnedBy(connID)
	for _, sess := range swept {
		sess.Handle.Kill()
		b.finishAudit(sess, model.SessionStatusKilled, nil)
	}

	b.log.Info("connection closed",
		zap.String("conn", connID),
		zap.Int("sessionsTornDown", len(swept)))
	return len(swept)
}

// Handle applies one inbound control message from connID. Control messages
// for a given session are applied in the order received from that
// connection; the caller (the transport read loop) provides that ordering.
func (b *Broker) Handle(connID string, msg *Message) {
	b.mu.RLock()
	out, ok := b.conns[connID]
	b.mu.RUnlock()
	if !ok {
		b.log.Warn("message from unregistered connection", zap.String("conn", connID))
		return
	}

	switch msg.Type {
	case MessageTypeCreate:
		b.handleCreate(connID, msg, out)
	case MessageTypeInput:
		b.handleInput(msg, out)
	case MessageTypeResize:
		b.handleResize(msg, out)
	case MessageTypeKill:
		b.handleKill(msg, out)
	case MessageTypeAttach:
		b.handleAttach(connID, msg, out)
	default:
		out.Send(errorMessage(msg.SessionID, "unknown message type: "+string(msg.Type)))
	}
}

func (b *Broker) handleCreate(connID string, msg *Message, out Sender) {
	if msg.SessionID == "" {
		out.Send(errorMessage("", "sessionId is required"))
		return
	}

	kind := model.ShellKind(msg.Shell)
	h, err := b.launcher.Launch(kind, msg.Cwd)
	if err != nil {
		b.log.Warn("launch failed",
			zap.String("session", msg.SessionID),
			zap.Error(err))
		out.Send(errorMessage(msg.SessionID, err.Error()))
		return
	}

	sess := registry.NewSession(msg.SessionID, connID, kind, h.Dir(), h, buffer.New(b.replaySize))
	b.startAudit(sess)

	// Duplicate identifiers are resolved by kill-and-replace: the displaced
	// entry is terminated here, never silently orphaned.
	if prior := b.registry.Insert(sess); prior != nil {
		b.log.Info("replacing live session",
			zap.String("session", sess.ID),
			zap.Int("priorPid", prior.Handle.PID()))
		prior.Handle.Kill()
		b.finishAudit(prior, model.SessionStatusKilled, nil)
	}

	go b.serve(sess)

	b.log.Info("session created",
		zap.String("session", sess.ID),
		zap.String("conn", connID),
		zap.String("shell", string(kind)),
		zap.Int("pid", h.PID()))
	out.Send(&Message{
		Type:      MessageTypeCreated,
		SessionID: sess.ID,
		Shell:     string(kind),
		Cwd:       sess.Workdir,
	})
}

func (b *Broker) handleInput(msg *Message, out Sender) {
	sess, ok := b.registry.Get(msg.SessionID)
	if !ok {
		out.Send(errorMessage(msg.SessionID, model.ErrSessionNotFound.Error()))
		return
	}

	if _, err := sess.Handle.Write([]byte(msg.Data)); err != nil {
		// A dead stdin means the process is gone or going; tear the
		// session down rather than keep accepting doomed writes.
		if b.registry.RemoveSession(sess) {
			sess.Handle.Kill()
			b.finishAudit(sess, model.SessionStatusFailed, nil)
		}
		out.Send(errorMessage(msg.SessionID, err.Error()))
	}
}

// handleResize acknowledges the request without effect: session processes
// run on plain pipes, not a pseudo-terminal, so there is no geometry to
// propagate. The ack tells callers the session is alive, nothing more.
func (b *Broker) handleResize(msg *Message, out Sender) {
	if _, ok := b.registry.Get(msg.SessionID); !ok {
		out.Send(errorMessage(msg.SessionID, model.ErrSessionNotFound.Error()))
		return
	}
	out.Send(&Message{Type: MessageTypeResized, SessionID: msg.SessionID})
}

func (b *Broker) handleKill(msg *Message, out Sender) {
	sess, ok := b.registry.Get(msg.SessionID)
	if !ok {
		out.Send(errorMessage(msg.SessionID, model.ErrSessionNotFound.Error()))
		return
	}

	// Removal precedes process death: termination is asynchronous and the
	// killed ack does not promise the process is already reaped.
	b.registry.RemoveSession(sess)
	sess.Handle.Kill()
	b.finishAudit(sess, model.SessionStatusKilled, nil)

	b.log.Info("session killed", zap.String("session", sess.ID))
	out.Send(&Message{Type: MessageTypeKilled, SessionID: sess.ID})
}

func (b *Broker) handleAttach(connID string, msg *Message, out Sender) {
	sess, ok := b.registry.Get(msg.SessionID)
	if !ok {
		out.Send(errorMessage(msg.SessionID, model.ErrSessionNotFound.Error()))
		return
	}

	sess.SetOwner(connID)
	out.Send(&Message{
		Type:      MessageTypeAttached,
		SessionID: sess.ID,
		Shell:     string(sess.Shell),
		Cwd:       sess.Workdir,
	})

	if replay := sess.Replay.Bytes(); len(replay) > 0 {
		out.Send(&Message{Type: MessageTypeData, SessionID: sess.ID, Data: string(replay)})
	}
}

// serve drains both output streams, reaps the process, and tears the
// session down. It runs for the life of the session; one hung subprocess
// never stalls other sessions.
func (b *Broker) serve(sess *registry.Session) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.pump(sess, sess.Handle.Stdout())
	}()
	go func() {
		defer wg.Done()
		b.pump(sess, sess.Handle.Stderr())
	}()
	wg.Wait()

	code, err := sess.Handle.Wait()

	// A false removal means the session was already taken out by kill,
	// replacement, or a disconnect sweep; those paths have reported.
	if !b.registry.RemoveSession(sess) {
		return
	}

	if err != nil {
		b.log.Warn("session process failed",
			zap.String("session", sess.ID),
			zap.Error(err))
		b.sendToOwner(sess, errorMessage(sess.ID, err.Error()))
		b.finishAudit(sess, model.SessionStatusFailed, nil)
		return
	}

	b.log.Info("session exited",
		zap.String("session", sess.ID),
		zap.Int("code", code))
	b.sendToOwner(sess, &Message{Type: MessageTypeExit, SessionID: sess.ID, Code: &code})
	b.finishAudit(sess, model.SessionStatusExited, &code)
}

// pump forwards one output stream verbatim as data events, preserving the
// order the subprocess produced on that stream. Stdout and stderr pump
// independently with no cross-stream ordering.
func (b *Broker) pump(sess *registry.Session, r io.Reader) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			sess.Replay.Write(chunk)
			b.sendToOwner(sess, &Message{
				Type:      MessageTypeData,
				SessionID: sess.ID,
				Data:      string(chunk),
			})
		}
		if err != nil {
			return
		}
	}
}

func (b *Broker) sendToOwner(sess *registry.Session, msg *Message) {
	b.mu.RLock()
	out, ok := b.conns[sess.Owner()]
	b.mu.RUnlock()
	if ok {
		out.Send(msg)
	}
}

func (b *Broker) startAudit(sess *registry.Session) {
	if b.recorder == nil {
		return
	}
	rowID, err := b.recorder.SessionStarted(context.Background(), &model.SessionRecord{
		SessionID: sess.ID,
		ConnID:    sess.Owner(),
		Shell:     sess.Shell,
		Workdir:   sess.Workdir,
		PID:       sess.Handle.PID(),
		Status:    model.SessionStatusRunning,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.CreatedAt,
	})
	if err != nil {
		b.log.Warn("failed to record session start",
			zap.String("session", sess.ID),
			zap.Error(err))
		return
	}
	sess.AuditID = rowID
}

func (b *Broker) finishAudit(sess *registry.Session, status model.SessionStatus, exitCode *int) {
	if b.recorder == nil || sess.AuditID == 0 {
		return
	}
	if err := b.recorder.SessionFinished(context.Background(), sess.AuditID, status, exitCode); err != nil {
		b.log.Warn("failed to record session end",
			zap.String("session", sess.ID),
			zap.Error(err))
	}
}

// Shutdown terminates every live session. Used on server exit.
func (b *Broker) Shutdown() {
	for _, sess := range b.registry.All() {
		if b.registry.RemoveSession(sess) {
			sess.Handle.Kill()
			b.finishAudit(sess, model.SessionStatusKilled, nil)
		}
	}
}
