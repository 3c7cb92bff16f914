package progress

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// LogSink writes each event as a structured log line. Useful for
// interactive runs and audits.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume implements Sink.
func (s *LogSink) Consume(evt Event) {
	s.logger.Info("progress",
		zap.String("run_id", evt.RunID.String()),
		zap.String("stage", string(evt.Stage)),
		zap.String("source", evt.Source),
		zap.Int("completed", evt.Completed),
		zap.Int("total", evt.Total),
		zap.Int("results", evt.Results),
		zap.String("note", evt.Note),
	)
}

// PrometheusSink exports fetch progress counters. The report layer can
// gather them after the run without an HTTP listener.
type PrometheusSink struct {
	sourcesCompleted *prometheus.CounterVec
	postingsFetched  *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against reg (or the default
// registerer when nil).
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		sourcesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobscout_sources_completed_total",
			Help: "Sources that finished fetching, partitioned by source.",
		}, []string{"source"}),
		postingsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobscout_postings_fetched_total",
			Help: "Raw postings fetched, partitioned by source.",
		}, []string{"source"}),
	}
	for _, c := range []prometheus.Collector{s.sourcesCompleted, s.postingsFetched} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Consume implements Sink.
func (s *PrometheusSink) Consume(evt Event) {
	if evt.Stage != StageSourceDone {
		return
	}
	s.sourcesCompleted.WithLabelValues(evt.Source).Inc()
	s.postingsFetched.WithLabelValues(evt.Source).Add(float64(evt.Results))
}

// MemorySink retains events in arrival order for the report layer and for
// tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink constructs an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Consume implements Sink.
func (s *MemorySink) Consume(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

// Events returns a copy of everything consumed so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
