// Package buffer provides a bounded ring buffer for caching recent session output.
package buffer

import "sync"

// RingBuffer is a thread-safe circular byte buffer that keeps the most
// recent data up to a fixed capacity. Older bytes are overwritten once the
// buffer is full.
//
// The broker keeps one per session so that a client attaching to a live
// session can be sent the recent output it missed. The buffer lives only in
// memory and dies with the session.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []byte
	start int
	size  int
}

// New creates a RingBuffer holding at most capacity bytes. A capacity below
// one is bumped to one.
func New(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Write appends p, overwriting the oldest bytes when the buffer is full.
// It always reports len(p) written and implements io.Writer.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	written := len(p)
	if written == 0 {
		return 0, nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	capacity := len(rb.buf)
	if written >= capacity {
		copy(rb.buf, p[written-capacity:])
		rb.start = 0
		rb.size = capacity
		return written, nil
	}

	end := (rb.start + rb.size) % capacity
	n := copy(rb.buf[end:], p)
	if n < len(p) {
		copy(rb.buf, p[n:])
	}

	rb.size += written
	if rb.size > capacity {
		rb.start = (rb.start + rb.size - capacity) % capacity
		rb.size = capacity
	}
	return written, nil
}

// Bytes returns a copy of the buffered data, oldest first.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return nil
	}

	out := make([]byte, rb.size)
	n := copy(out, rb.buf[rb.start:])
	if n < rb.size {
		copy(out[n:], rb.buf)
	}
	return out
}

// Len returns the number of buffered bytes.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Cap returns the buffer capacity.
func (rb *RingBuffer) Cap() int {
	return len(rb.buf)
}

// Reset discards all buffered data.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.start = 0
	rb.size = 0
}
