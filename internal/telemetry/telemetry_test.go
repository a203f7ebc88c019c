package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/finbrook/fundview/internal/interfaces"
)

type captureSink struct {
	mu      sync.Mutex
	batches [][]interfaces.TelemetryEvent
}

func (s *captureSink) Flush(events []interfaces.TelemetryEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, events)
}

func (s *captureSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *captureSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestBufferFlushesOnThreshold(t *testing.T) {
	sink := &captureSink{}
	b := NewBuffer(sink, WithBufferSize(3), WithFlushInterval(time.Hour))
	defer b.Close()

	b.Record(interfaces.TelemetryEvent{Name: "one"})
	b.Record(interfaces.TelemetryEvent{Name: "two"})
	if sink.batchCount() != 0 {
		t.Fatal("flushed before threshold")
	}

	b.Record(interfaces.TelemetryEvent{Name: "three"})
	if sink.batchCount() != 1 {
		t.Fatalf("expected 1 batch after threshold, got %d", sink.batchCount())
	}
	if sink.total() != 3 {
		t.Errorf("expected 3 events, got %d", sink.total())
	}
}

func TestBufferFlushesOnInterval(t *testing.T) {
	sink := &captureSink{}
	b := NewBuffer(sink, WithBufferSize(100), WithFlushInterval(20*time.Millisecond))
	defer b.Close()

	b.Record(interfaces.TelemetryEvent{Name: "slow"})

	deadline := time.Now().Add(2 * time.Second)
	for sink.total() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.total() != 1 {
		t.Fatalf("expected timed flush of 1 event, got %d", sink.total())
	}
}

func TestBufferCloseFlushesRemainder(t *testing.T) {
	sink := &captureSink{}
	b := NewBuffer(sink, WithBufferSize(100), WithFlushInterval(time.Hour))

	b.Record(interfaces.TelemetryEvent{Name: "pending"})
	b.Close()

	if sink.total() != 1 {
		t.Fatalf("expected close to flush 1 event, got %d", sink.total())
	}
	// Close is idempotent.
	b.Close()
}

func TestBufferStampsEventTime(t *testing.T) {
	sink := &captureSink{}
	b := NewBuffer(sink, WithBufferSize(100), WithFlushInterval(time.Hour))

	b.Record(interfaces.TelemetryEvent{Name: "unstamped"})
	b.Close()

	if sink.batches[0][0].At.IsZero() {
		t.Error("expected a recorded timestamp")
	}
}
