package buffer

import (
	"bytes"
	"sync"
	"testing"
)

func TestRingBuffer_WriteWithinCapacity(t *testing.T) {
	rb := New(16)

	rb.Write([]byte("hello "))
	rb.Write([]byte("world"))

	if got := rb.Bytes(); !bytes.Equal(got, []byte("hello world")) {
		t.Errorf("expected %q, got %q", "hello world", got)
	}
	if rb.Len() != 11 {
		t.Errorf("expected length 11, got %d", rb.Len())
	}
}

func TestRingBuffer_OverwritesOldest(t *testing.T) {
	rb := New(8)

	rb.Write([]byte("abcdefgh"))
	rb.Write([]byte("1234"))

	if got := rb.Bytes(); !bytes.Equal(got, []byte("efgh1234")) {
		t.Errorf("expected %q, got %q", "efgh1234", got)
	}
}

func TestRingBuffer_WriteLargerThanCapacity(t *testing.T) {
	rb := New(4)

	rb.Write([]byte("abcdefgh"))

	if got := rb.Bytes(); !bytes.Equal(got, []byte("efgh")) {
		t.Errorf("expected %q, got %q", "efgh", got)
	}
}

func TestRingBuffer_WrapAroundSequence(t *testing.T) {
	rb := New(5)

	// Repeated small writes force the start index to wrap.
	for _, chunk := range []string{"ab", "cd", "ef", "gh"} {
		rb.Write([]byte(chunk))
	}

	if got := rb.Bytes(); !bytes.Equal(got, []byte("defgh")) {
		t.Errorf("expected %q, got %q", "defgh", got)
	}
}

func TestRingBuffer_Empty(t *testing.T) {
	rb := New(8)

	if rb.Bytes() != nil {
		t.Error("expected nil for empty buffer")
	}
	if rb.Len() != 0 {
		t.Errorf("expected length 0, got %d", rb.Len())
	}
}

func TestRingBuffer_Reset(t *testing.T) {
	rb := New(8)
	rb.Write([]byte("data"))
	rb.Reset()

	if rb.Len() != 0 {
		t.Errorf("expected length 0 after reset, got %d", rb.Len())
	}
	if rb.Bytes() != nil {
		t.Error("expected nil after reset")
	}
}

func TestRingBuffer_MinimumCapacity(t *testing.T) {
	rb := New(0)
	if rb.Cap() != 1 {
		t.Errorf("expected capacity 1, got %d", rb.Cap())
	}
}

func TestRingBuffer_ConcurrentWrites(t *testing.T) {
	rb := New(1024)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rb.Write([]byte("xy"))
			}
		}()
	}
	wg.Wait()

	if rb.Len() != 1024 {
		t.Errorf("expected full buffer, got %d", rb.Len())
	}
}
