// Package telemetry buffers application events in memory and hands them
// to a sink in batches. Recording never blocks the caller: when the
// buffer is full the oldest pending events are dropped.
package telemetry

import (
	"sync"
	"time"

	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/interfaces"
)

const (
	defaultBufferSize    = 256
	defaultFlushInterval = 30 * time.Second
)

// Buffer collects events and flushes them when the buffer fills or the
// flush interval elapses, whichever comes first.
type Buffer struct {
	sink     interfaces.TelemetrySink
	logger   *common.Logger
	size     int
	interval time.Duration

	mu      sync.Mutex
	events  []interfaces.TelemetryEvent
	dropped int

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithBufferSize sets the flush threshold and capacity.
func WithBufferSize(size int) Option {
	return func(b *Buffer) {
		if size > 0 {
			b.size = size
		}
	}
}

// WithFlushInterval sets the periodic flush interval.
func WithFlushInterval(interval time.Duration) Option {
	return func(b *Buffer) {
		if interval > 0 {
			b.interval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) Option {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuffer creates a running buffer flushing into sink.
func NewBuffer(sink interfaces.TelemetrySink, opts ...Option) *Buffer {
	b := &Buffer{
		sink:     sink,
		logger:   common.NewSilentLogger(),
		size:     defaultBufferSize,
		interval: defaultFlushInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.events = make([]interfaces.TelemetryEvent, 0, b.size)

	b.wg.Add(1)
	go b.loop()
	return b
}

// Record buffers one event. Triggers a flush when the buffer reaches its
// threshold; drops the oldest event instead of blocking when a flush
// cannot keep up.
func (b *Buffer) Record(event interfaces.TelemetryEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.Lock()
	if len(b.events) >= b.size {
		b.events = b.events[1:]
		b.dropped++
	}
	b.events = append(b.events, event)
	full := len(b.events) >= b.size
	b.mu.Unlock()

	if full {
		b.Flush()
	}
}

// Flush delivers all pending events to the sink.
func (b *Buffer) Flush() {
	b.mu.Lock()
	if len(b.events) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.events
	b.events = make([]interfaces.TelemetryEvent, 0, b.size)
	dropped := b.dropped
	b.dropped = 0
	b.mu.Unlock()

	if dropped > 0 {
		b.logger.Warn().Int("dropped", dropped).Msg("Telemetry buffer overflowed")
	}
	b.sink.Flush(batch)
}

// Close flushes the remaining events and stops the background loop.
func (b *Buffer) Close() {
	b.once.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
	b.Flush()
}

func (b *Buffer) loop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.Flush()
		case <-b.done:
			return
		}
	}
}

// Ensure Buffer implements TelemetryRecorder
var _ interfaces.TelemetryRecorder = (*Buffer)(nil)

// LogSink writes flushed events to the application log.
type LogSink struct {
	logger *common.Logger
}

// NewLogSink creates a sink logging each batch at debug level.
func NewLogSink(logger *common.Logger) *LogSink {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &LogSink{logger: logger}
}

// Flush logs one line per event.
func (s *LogSink) Flush(events []interfaces.TelemetryEvent) {
	for _, e := range events {
		evt := s.logger.Debug().
			Str("event", e.Name).
			Time("at", e.At)
		if e.Duration > 0 {
			evt = evt.Dur("duration", e.Duration)
		}
		for k, v := range e.Fields {
			evt = evt.Str(k, v)
		}
		evt.Msg("Telemetry event")
	}
}

var _ interfaces.TelemetrySink = (*LogSink)(nil)
