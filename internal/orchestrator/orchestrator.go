// Package orchestrator fans (source, query) work items out over a bounded
// worker pool, in three source phases, and gathers partial results under
// cooperative cancellation.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/model"
	"github.com/seekwell/jobscout/internal/profile"
	"github.com/seekwell/jobscout/internal/progress"
)

// DefaultWorkers bounds concurrent outbound fetches. The pool size is fixed
// and independent of the source count.
const DefaultWorkers = 4

// SourceStats aggregates one source's outcome across all of its queries.
type SourceStats struct {
	Source  string
	Fetched int
	Status  fetch.Status
	Warning string
}

// Config configures an Orchestrator.
type Config struct {
	Workers int
	Emitter progress.Emitter
	Logger  *zap.Logger
}

// Orchestrator executes the fetch plan. One source failing never aborts the
// run; every failure degrades to that source's stats entry.
type Orchestrator struct {
	sources []fetch.Source
	workers int
	emitter progress.Emitter
	logger  *zap.Logger
}

// New builds an Orchestrator over the given sources.
func New(sources []fetch.Source, cfg Config) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sources: sources,
		workers: workers,
		emitter: cfg.Emitter,
		logger:  logger,
	}
}

// Queries derives the search work from the profile: one query per target
// title, bound to the profile's location and arrangement preference.
func Queries(p *profile.CandidateProfile) []fetch.Query {
	remote := p.Arrangement == "remote"
	queries := make([]fetch.Query, 0, len(p.TargetTitles))
	for _, title := range p.TargetTitles {
		queries = append(queries, fetch.Query{
			Title:    title,
			Location: p.Location,
			Remote:   remote,
		})
	}
	return queries
}

type workItem struct {
	source fetch.Source
	query  fetch.Query
	idx    int
}

// Run executes all phases in order and returns the gathered postings in
// phase order plus per-source stats. On cancellation, dispatch stops,
// in-flight fetches finish, and whatever was gathered is returned.
func (o *Orchestrator) Run(ctx context.Context, queries []fetch.Query) ([]model.JobPosting, map[string]SourceStats) {
	runID := uuid.New()
	stats := make(map[string]SourceStats, len(o.sources))
	for _, src := range o.sources {
		stats[src.Name()] = SourceStats{Source: src.Name(), Status: fetch.StatusOK}
	}

	tracker := newSourceTracker(runID, len(o.sources), o.emitter)

	var postings []model.JobPosting
	for _, phase := range []fetch.Phase{fetch.PhaseScraper, fetch.PhaseNativeAPI, fetch.PhaseAggregator} {
		results := o.runPhase(ctx, phase, queries, tracker)
		for _, res := range results {
			postings = append(postings, res.Postings...)
			mergeStats(stats, res)
		}
		if ctx.Err() != nil {
			break
		}
	}

	tracker.finishRun()
	return postings, stats
}

// runPhase executes every (source, query) combination for sources in the
// phase through the shared bounded pool, returning results in item order so
// downstream dedup sees a deterministic sequence.
func (o *Orchestrator) runPhase(ctx context.Context, phase fetch.Phase, queries []fetch.Query, tracker *sourceTracker) []fetch.Result {
	var items []workItem
	for _, src := range o.sources {
		if src.Phase() != phase {
			continue
		}
		for _, q := range queries {
			items = append(items, workItem{source: src, query: q, idx: len(items)})
		}
	}
	if len(items) == 0 {
		return nil
	}

	perSource := make(map[string]int, len(items))
	for _, item := range items {
		perSource[item.source.Name()]++
	}
	tracker.beginPhase(perSource)

	results := make([]fetch.Result, len(items))
	executed := make([]bool, len(items))
	jobs := make(chan workItem)

	var wg sync.WaitGroup
	workers := o.workers
	if workers > len(items) {
		workers = len(items)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				tracker.sourceStarted(item.source.Name())
				res := item.source.Fetch(ctx, item.query)
				results[item.idx] = res
				executed[item.idx] = true
				tracker.queryFinished(item.source.Name(), len(res.Postings))
			}
		}()
	}

dispatch:
	for _, item := range items {
		select {
		case <-ctx.Done():
			o.logger.Info("cancellation requested, halting dispatch",
				zap.Int("remaining", len(items)-item.idx))
			break dispatch
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()

	out := make([]fetch.Result, 0, len(items))
	for idx, res := range results {
		if executed[idx] {
			out = append(out, res)
		}
	}
	return out
}

// mergeStats folds one query result into the source's aggregate. The worst
// status wins so a single auth failure is not masked by later successes.
func mergeStats(stats map[string]SourceStats, res fetch.Result) {
	entry := stats[res.Source]
	entry.Source = res.Source
	entry.Fetched += len(res.Postings)
	if statusRank(res.Status) > statusRank(entry.Status) {
		entry.Status = res.Status
		switch res.Status {
		case fetch.StatusAuthFailed:
			entry.Warning = fmt.Sprintf("authentication failed, check credentials: %v", res.Err)
		case fetch.StatusRateLimited:
			entry.Warning = "quota exhausted, source skipped"
		case fetch.StatusErrored:
			entry.Warning = fmt.Sprintf("source errored: %v", res.Err)
		}
	}
	stats[res.Source] = entry
}

func statusRank(s fetch.Status) int {
	switch s {
	case fetch.StatusOK:
		return 0
	case fetch.StatusRateLimited:
		return 1
	case fetch.StatusErrored:
		return 2
	case fetch.StatusAuthFailed:
		return 3
	default:
		return 0
	}
}

// SortedStats renders the stats map in stable source order for reports.
func SortedStats(stats map[string]SourceStats) []SourceStats {
	out := make([]SourceStats, 0, len(stats))
	for _, s := range stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
