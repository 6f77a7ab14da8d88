package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/remote-shell-broker/backend/internal/model"
)

func newTestSession(id, conn string) *Session {
	return NewSession(id, conn, model.ShellSh, "/tmp", nil, nil)
}

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := New()

	s := newTestSession("s1", "c1")
	if prior := r.Insert(s); prior != nil {
		t.Errorf("expected no displaced entry, got %v", prior.ID)
	}

	got, ok := r.Get("s1")
	if !ok || got != s {
		t.Fatal("expected to get back the inserted session")
	}

	removed, ok := r.Remove("s1")
	if !ok || removed != s {
		t.Fatal("expected remove to return the session")
	}

	if _, ok := r.Get("s1"); ok {
		t.Error("session should be gone after remove")
	}
}

func TestRegistry_RemoveAbsentIsNoop(t *testing.T) {
	r := New()

	if _, ok := r.Remove("ghost"); ok {
		t.Error("removing an absent id should report not found")
	}
	// And again, to check idempotence.
	if _, ok := r.Remove("ghost"); ok {
		t.Error("removing an absent id should stay a no-op")
	}
}

func TestRegistry_InsertReturnsDisplacedEntry(t *testing.T) {
	r := New()

	first := newTestSession("dup", "c1")
	second := newTestSession("dup", "c1")

	r.Insert(first)
	prior := r.Insert(second)

	if prior != first {
		t.Fatal("expected the first session to be handed back on overwrite")
	}

	got, _ := r.Get("dup")
	if got != second {
		t.Error("expected the second session to be registered")
	}
}

func TestRegistry_RemoveSessionIgnoresReplaced(t *testing.T) {
	r := New()

	first := newTestSession("dup", "c1")
	second := newTestSession("dup", "c1")

	r.Insert(first)
	r.Insert(second)

	// A stale cleanup for the replaced session must not evict its successor.
	if r.RemoveSession(first) {
		t.Error("removing a replaced session should be a no-op")
	}
	if _, ok := r.Get("dup"); !ok {
		t.Fatal("successor session was evicted")
	}

	if !r.RemoveSession(second) {
		t.Error("removing the current session should succeed")
	}
}

func TestRegistry_RemoveAllOwnedBy(t *testing.T) {
	r := New()

	for i := 0; i < 3; i++ {
		r.Insert(newTestSession(fmt.Sprintf("a%d", i), "connA"))
	}
	for i := 0; i < 2; i++ {
		r.Insert(newTestSession(fmt.Sprintf("b%d", i), "connB"))
	}

	swept := r.RemoveAllOwnedBy("connA")
	if len(swept) != 3 {
		t.Errorf("expected 3 swept sessions, got %d", len(swept))
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 remaining sessions, got %d", r.Len())
	}
	for _, s := range r.All() {
		if s.Owner() != "connB" {
			t.Errorf("session %s with owner %s survived the sweep", s.ID, s.Owner())
		}
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for c := 0; c < 4; c++ {
		conn := fmt.Sprintf("conn%d", c)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("%s-s%d", conn, i)
				r.Insert(newTestSession(id, conn))
				r.Get(id)
				if i%2 == 0 {
					r.Remove(id)
				}
			}
			r.RemoveAllOwnedBy(conn)
		}()
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("expected empty registry after sweeps, got %d entries", r.Len())
	}
}
