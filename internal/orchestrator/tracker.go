package orchestrator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/seekwell/jobscout/internal/progress"
)

// sourceTracker emits SOURCE_START before a source's first query runs and
// SOURCE_DONE after its last, regardless of which pool workers execute
// them. It is shared by all workers in a phase.
type sourceTracker struct {
	mu        sync.Mutex
	runID     uuid.UUID
	emitter   progress.Emitter
	total     int
	completed int

	started   map[string]bool
	remaining map[string]int
	results   map[string]int
}

func newSourceTracker(runID uuid.UUID, totalSources int, emitter progress.Emitter) *sourceTracker {
	return &sourceTracker{
		runID:     runID,
		emitter:   emitter,
		total:     totalSources,
		started:   make(map[string]bool),
		remaining: make(map[string]int),
		results:   make(map[string]int),
	}
}

func (t *sourceTracker) beginPhase(perSource map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for source, count := range perSource {
		t.remaining[source] = count
	}
}

func (t *sourceTracker) sourceStarted(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started[source] {
		return
	}
	t.started[source] = true
	t.emit(progress.Event{
		RunID:     t.runID,
		TS:        progress.Now(),
		Stage:     progress.StageSourceStart,
		Source:    source,
		Completed: t.completed,
		Total:     t.total,
	})
}

func (t *sourceTracker) queryFinished(source string, results int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[source] += results
	t.remaining[source]--
	if t.remaining[source] > 0 {
		return
	}
	t.completed++
	t.emit(progress.Event{
		RunID:     t.runID,
		TS:        progress.Now(),
		Stage:     progress.StageSourceDone,
		Source:    source,
		Completed: t.completed,
		Total:     t.total,
		Results:   t.results[source],
	})
}

func (t *sourceTracker) finishRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit(progress.Event{
		RunID:     t.runID,
		TS:        progress.Now(),
		Stage:     progress.StageRunDone,
		Completed: t.completed,
		Total:     t.total,
	})
}

func (t *sourceTracker) emit(evt progress.Event) {
	if t.emitter != nil {
		t.emitter.Emit(evt)
	}
}
