package focus

import (
	"testing"
	"time"
)

func makeSignal(n int) Signal {
	return Signal{
		Type:                   SignalSessionCompleted,
		Target:                 "task",
		SessionsCompletedToday: n,
		At:                     time.Now().UTC(),
	}
}

func TestRingBuffer_EmptyRead(t *testing.T) {
	rb := NewRingBuffer(10)
	signals := rb.ReadAll()
	if len(signals) != 0 {
		t.Errorf("expected empty buffer, got %d signals", len(signals))
	}
}

func TestRingBuffer_PartialFill(t *testing.T) {
	rb := NewRingBuffer(10)
	for i := 0; i < 5; i++ {
		rb.Write(makeSignal(i))
	}

	signals := rb.ReadAll()
	if len(signals) != 5 {
		t.Fatalf("expected 5 signals, got %d", len(signals))
	}

	for i, s := range signals {
		if s.SessionsCompletedToday != i {
			t.Errorf("signal %d: expected counter %d, got %d", i, i, s.SessionsCompletedToday)
		}
	}
}

func TestRingBuffer_Overflow(t *testing.T) {
	rb := NewRingBuffer(5)
	for i := 0; i < 8; i++ {
		rb.Write(makeSignal(i))
	}

	signals := rb.ReadAll()
	if len(signals) != 5 {
		t.Fatalf("expected 5 signals, got %d", len(signals))
	}

	// Should hold signals 3..7 (oldest dropped).
	for i, s := range signals {
		if s.SessionsCompletedToday != i+3 {
			t.Errorf("signal %d: expected counter %d, got %d", i, i+3, s.SessionsCompletedToday)
		}
	}
}

func TestRingBuffer_ExactCapacity(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 3; i++ {
		rb.Write(makeSignal(i))
	}

	signals := rb.ReadAll()
	if len(signals) != 3 {
		t.Fatalf("expected 3 signals, got %d", len(signals))
	}

	for i, s := range signals {
		if s.SessionsCompletedToday != i {
			t.Errorf("signal %d: expected counter %d, got %d", i, i, s.SessionsCompletedToday)
		}
	}
}
