// Package registry is the authoritative concurrency-safe store of live sessions.
package registry

import (
	"sync"
	"time"

	"github.com/remote-shell-broker/backend/internal/buffer"
	"github.com/remote-shell-broker/backend/internal/model"
	"github.com/remote-shell-broker/backend/internal/shell"
)

// Session is a live mapping from a client-chosen identifier to one spawned
// shell subprocess plus its metadata. The registry entry is the exclusive
// owner of the process Handle; no other component holds one.
//
// All fields except the owning connection are immutable after creation. The
// owner changes only when a connection re-attaches to its session.
type Session struct {
	ID        string
	Shell     model.ShellKind
	Workdir   string
	CreatedAt time.Time
	Handle    *shell.Handle

	// Replay buffers recent combined output for attach replay.
	Replay *buffer.RingBuffer

	// AuditID keys the persisted audit record, zero when auditing is off.
	AuditID int64

	mu    sync.Mutex
	owner string
}

// NewSession creates a session owned by connID.
func NewSession(id, connID string, kind model.ShellKind, workdir string, h *shell.Handle, replay *buffer.RingBuffer) *Session {
	return &Session{
		ID:        id,
		Shell:     kind,
		Workdir:   workdir,
		CreatedAt: time.Now(),
		Handle:    h,
		Replay:    replay,
		owner:     connID,
	}
}

// Owner returns the identifier of the connection that currently owns the session.
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// SetOwner transfers ownership to another connection.
func (s *Session) SetOwner(connID string) {
	s.mu.Lock()
	s.owner = connID
	s.mu.Unlock()
}

// Registry maps session identifiers to live sessions. It is injected into
// the broker at construction rather than shared as a singleton, so tests can
// run independent brokers side by side.
//
// Entries fetched with Get may be removed concurrently; callers must treat a
// fetched session as potentially stale once they yield control.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Insert stores s under its identifier and returns the entry it displaced,
// if any. The displaced entry is handed back rather than dropped so the
// caller can terminate its process; silently orphaning it would leak.
func (r *Registry) Insert(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := r.sessions[s.ID]
	r.sessions[s.ID] = s
	return prior
}

// Get returns the session for id, if present.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes the entry for id. Removing an absent identifier is a
// no-op. The removed session is returned so the caller can release its
// process.
func (r *Registry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// RemoveSession deletes the entry for s only if that exact session is still
// registered. This keeps a stale exit callback for a replaced session from
// removing its successor under the same identifier.
func (r *Registry) RemoveSession(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.ID]; ok && cur == s {
		delete(r.sessions, s.ID)
		return true
	}
	return false
}

// RemoveAllOwnedBy atomically sweeps out every session owned by connID and
// returns them for cleanup. Entries inserted concurrently for the same
// connection are either swept here or left fully intact, never half-processed.
func (r *Registry) RemoveAllOwnedBy(connID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []*Session
	for id, s := range r.sessions {
		if s.Owner() == connID {
			swept = append(swept, s)
			delete(r.sessions, id)
		}
	}
	return swept
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
