package progress

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultBufferSize = 256

// Hub fans incoming events out to registered sinks from a single background
// goroutine, so sinks never see concurrent calls from fetch workers. Emit
// never blocks; when the buffer is full the event is dropped and counted.
type Hub struct {
	// events is never closed: Emit may race Close, so shutdown is signalled
	// through stopCh and run drains whatever is buffered before exiting.
	events  chan Event
	sinks   []Sink
	logger  *zap.Logger
	dropped atomic.Int64
	closed  atomic.Bool

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewHub starts the fan-out goroutine. The returned Hub accepts events
// immediately.
func NewHub(logger *zap.Logger, sinks ...Sink) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		events: make(chan Event, defaultBufferSize),
		sinks:  append([]Sink(nil), sinks...),
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go h.run()
	return h
}

// Emit enqueues an event without blocking. Invalid events are discarded
// with a debug log; events emitted after Close are dropped.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	select {
	case h.events <- evt:
	default:
		h.dropped.Add(1)
	}
}

// Close drains buffered events and waits for the fan-out goroutine to exit.
// Safe to call more than once and safe to call while emitters are running.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		close(h.stopCh)
	})
	<-h.doneCh
	if n := h.dropped.Load(); n > 0 {
		h.logger.Warn("progress events dropped due to backpressure", zap.Int64("dropped", n))
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)
	for {
		select {
		case evt := <-h.events:
			h.deliver(evt)
		case <-h.stopCh:
			// Drain what is already buffered, then stop.
			for {
				select {
				case evt := <-h.events:
					h.deliver(evt)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) deliver(evt Event) {
	for _, sink := range h.sinks {
		if sink != nil {
			sink.Consume(evt)
		}
	}
}

// Now returns the UTC timestamp emitters stamp on events.
func Now() time.Time {
	return time.Now().UTC()
}
