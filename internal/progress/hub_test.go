package progress

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(stage Stage, source string, results int) Event {
	return Event{
		RunID:   uuid.New(),
		TS:      Now(),
		Stage:   stage,
		Source:  source,
		Results: results,
		Total:   3,
	}
}

func TestHub_DeliversToAllSinks(t *testing.T) {
	t.Parallel()
	a, b := NewMemorySink(), NewMemorySink()
	hub := NewHub(nil, a, b)

	hub.Emit(event(StageSourceStart, "remotive", 0))
	hub.Emit(event(StageSourceDone, "remotive", 12))
	hub.Emit(event(StageRunDone, "", 0))
	hub.Close()

	require.Len(t, a.Events(), 3)
	require.Len(t, b.Events(), 3)
	assert.Equal(t, StageSourceStart, a.Events()[0].Stage)
	assert.Equal(t, StageRunDone, a.Events()[2].Stage)
}

func TestHub_DiscardsInvalidEvents(t *testing.T) {
	t.Parallel()
	sink := NewMemorySink()
	hub := NewHub(nil, sink)

	hub.Emit(Event{})                                   // missing everything
	hub.Emit(event(Stage("BOGUS"), "remotive", 0))      // unknown stage
	hub.Emit(event(StageSourceDone, "", 0))             // source-scoped stage without a source
	hub.Emit(event(StageSourceDone, "weworkremotely", 4)) // valid
	hub.Close()

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "weworkremotely", events[0].Source)
}

func TestHub_EmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()
	sink := NewMemorySink()
	hub := NewHub(nil, sink)
	hub.Close()

	// Must not panic on the closed channel, and must deliver nothing.
	hub.Emit(event(StageSourceStart, "remotive", 0))
	assert.Empty(t, sink.Events())
}

func TestHub_ConcurrentEmitDuringClose(t *testing.T) {
	t.Parallel()
	sink := NewMemorySink()
	hub := NewHub(nil, sink)

	// Emitters race Close; events landing after shutdown are dropped, never
	// a panic on the event channel.
	var wg sync.WaitGroup
	start := make(chan struct{})
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < 200; i++ {
				hub.Emit(event(StageSourceDone, "remotive", 1))
			}
		}()
	}
	close(start)
	hub.Close()
	wg.Wait()

	for _, evt := range sink.Events() {
		assert.Equal(t, StageSourceDone, evt.Stage)
		assert.Equal(t, "remotive", evt.Source)
	}
}

func TestHub_NilHubIsSafe(t *testing.T) {
	t.Parallel()
	var hub *Hub
	hub.Emit(event(StageSourceStart, "remotive", 0))
	hub.Close()
}

func TestEventValidate(t *testing.T) {
	t.Parallel()
	valid := event(StageSourceDone, "remotive", 3)
	assert.NoError(t, valid.Validate())

	noSource := valid
	noSource.Source = ""
	require.Error(t, noSource.Validate())

	runDone := valid
	runDone.Stage = StageRunDone
	runDone.Source = ""
	assert.NoError(t, runDone.Validate(), "RUN_DONE is not source-scoped")

	noID := valid
	noID.RunID = uuid.Nil
	require.Error(t, noID.Validate())
}

func TestPrometheusSink_CountsSourceDone(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	sink.Consume(event(StageSourceStart, "remotive", 0))
	sink.Consume(event(StageSourceDone, "remotive", 7))
	sink.Consume(event(StageSourceDone, "remotive", 5))
	sink.Consume(event(StageSourceDone, "adzuna", 2))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.sourcesCompleted.WithLabelValues("remotive")))
	assert.Equal(t, 12.0, testutil.ToFloat64(sink.postingsFetched.WithLabelValues("remotive")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.postingsFetched.WithLabelValues("adzuna")))
}
