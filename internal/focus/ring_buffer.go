package focus

import "sync"

// RingBuffer is a fixed-capacity circular buffer of signals. It allows a
// late-connecting observer (the companion widget) to catch up on phase
// completions it missed while disconnected.
type RingBuffer struct {
	mu       sync.RWMutex
	buf      []Signal
	capacity int
	pos      int // next write position
	full     bool
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buf:      make([]Signal, capacity),
		capacity: capacity,
	}
}

// Write adds a signal to the ring buffer.
func (rb *RingBuffer) Write(sig Signal) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.pos] = sig
	rb.pos = (rb.pos + 1) % rb.capacity
	if rb.pos == 0 {
		rb.full = true
	}
}

// ReadAll returns all buffered signals in chronological order.
func (rb *RingBuffer) ReadAll() []Signal {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if !rb.full {
		result := make([]Signal, rb.pos)
		copy(result, rb.buf[:rb.pos])
		return result
	}

	result := make([]Signal, rb.capacity)
	copy(result, rb.buf[rb.pos:])
	copy(result[rb.capacity-rb.pos:], rb.buf[:rb.pos])
	return result
}
