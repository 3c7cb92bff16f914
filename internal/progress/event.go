// Package progress defines the events the orchestrator emits as sources
// start and finish, and the hub that fans them out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageSourceStart Stage = "SOURCE_START"
	StageSourceDone  Stage = "SOURCE_DONE"
	StageRunDone     Stage = "RUN_DONE"
)

// Event is one progress milestone. For a given source, SOURCE_START always
// precedes SOURCE_DONE; no ordering holds across sources.
type Event struct {
	// RunID identifies the pipeline invocation.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is the milestone kind.
	Stage Stage
	// Source names the fetch source for source-scoped stages.
	Source string
	// Completed counts sources finished so far; Total is the full set.
	Completed int
	Total     int
	// Results carries the source's posting count on SOURCE_DONE.
	Results int
	// Note attaches low-volume context such as a quota warning.
	Note string
}

// Validate performs coarse validation before an event enters the hub.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunDone:
	case StageSourceStart, StageSourceDone:
		if e.Source == "" {
			return fmt.Errorf("%s requires a source", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	return nil
}

// Sink consumes progress events. Implementations must be safe for
// concurrent calls and must not block for long; the hub drops events under
// backpressure rather than stalling fetch workers.
type Sink interface {
	Consume(evt Event)
}

// Emitter publishes individual events; Hub satisfies this so workers stay
// agnostic about buffering.
type Emitter interface {
	Emit(evt Event)
}
