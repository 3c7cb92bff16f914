// Package pipeline wires the full ingest, dedup, score, track run behind
// one explicit handle. Everything a run needs is constructed here and
// threaded through; there are no ambient singletons.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/config"
	"github.com/seekwell/jobscout/internal/dedup"
	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/fetch/sources"
	"github.com/seekwell/jobscout/internal/model"
	"github.com/seekwell/jobscout/internal/orchestrator"
	"github.com/seekwell/jobscout/internal/profile"
	"github.com/seekwell/jobscout/internal/progress"
	"github.com/seekwell/jobscout/internal/ratelimit"
	"github.com/seekwell/jobscout/internal/score"
	"github.com/seekwell/jobscout/internal/track"
)

// Report is everything the report/UI layer receives from a run.
type Report struct {
	// Postings is deduplicated, scored, and classified, sorted by score
	// descending.
	Postings     []model.JobPosting
	SourceStats  []orchestrator.SourceStats
	DedupStats   dedup.Stats
	TrackerStats track.RunStats
	// Committed is false when the run was cancelled and tracker state was
	// left untouched.
	Committed bool
	// Warnings carries per-source quota and auth notices.
	Warnings []string
}

// Options assembles a Pipeline from explicit parts; tests inject fake
// sources and temp-dir state through it.
type Options struct {
	Sources     []fetch.Source
	Limiter     *ratelimit.Limiter
	TrackerPath string
	Workers     int
	Emitter     progress.Emitter
	Logger      *zap.Logger
}

// Pipeline is the per-invocation handle over all components.
type Pipeline struct {
	sources     []fetch.Source
	limiter     *ratelimit.Limiter
	trackerPath string
	workers     int
	emitter     progress.Emitter
	logger      *zap.Logger
}

// New constructs the production pipeline from configuration: durable rate
// limiter, shared HTTP client, and the full source set.
func New(cfg config.Config, logger *zap.Logger, emitter progress.Emitter) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter, err := ratelimit.New(ratelimit.Config{
		Path:      cfg.State.RateLimitPath(),
		Overrides: cfg.RateLimitOverrides(),
		Aliases:   cfg.RateLimitAliases,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init rate limiter: %w", err)
	}

	client := fetch.NewClient(fetch.ClientConfig{
		Timeout:     time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		MaxAttempts: cfg.HTTP.MaxRetries,
		BaseDelay:   time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
		UserAgent:   cfg.Fetch.UserAgent,
	})

	deps := sources.Deps{Client: client, Limiter: limiter, Logger: logger}
	creds := sources.Credentials{
		USAJobsKey:   cfg.Sources.USAJobsKey,
		USAJobsEmail: cfg.Sources.USAJobsEmail,
		AdzunaAppID:  cfg.Sources.AdzunaAppID,
		AdzunaAppKey: cfg.Sources.AdzunaAppKey,
		JoobleKey:    cfg.Sources.JoobleKey,
	}

	return NewCustom(Options{
		Sources:     sources.All(deps, creds),
		Limiter:     limiter,
		TrackerPath: cfg.State.TrackerPath(),
		Workers:     cfg.Fetch.Workers,
		Emitter:     emitter,
		Logger:      logger,
	}), nil
}

// NewCustom builds a Pipeline from pre-assembled parts.
func NewCustom(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		sources:     opts.Sources,
		limiter:     opts.Limiter,
		trackerPath: opts.TrackerPath,
		workers:     opts.Workers,
		emitter:     opts.Emitter,
		logger:      logger,
	}
}

// Close releases the durable stores.
func (p *Pipeline) Close() error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Close()
}

// Run executes one full pipeline pass. Profile validation failure is the
// only fatal condition; every per-source and per-posting failure degrades
// into the Report instead.
func (p *Pipeline) Run(ctx context.Context, prof *profile.CandidateProfile) (*Report, error) {
	if err := prof.Validate(); err != nil {
		return nil, fmt.Errorf("profile invalid: %w", err)
	}

	orch := orchestrator.New(p.sources, orchestrator.Config{
		Workers: p.workers,
		Emitter: p.emitter,
		Logger:  p.logger,
	})

	queries := orchestrator.Queries(prof)
	raw, stats := orch.Run(ctx, queries)
	p.logger.Info("fetch complete",
		zap.Int("queries", len(queries)),
		zap.Int("raw_postings", len(raw)),
	)

	deduped, dedupStats := dedup.Run(raw, p.logger)
	p.logger.Info("dedup complete",
		zap.Int("examined", dedupStats.Examined),
		zap.Int("exact_dropped", dedupStats.ExactDropped),
		zap.Int("fuzzy_dropped", dedupStats.FuzzyDropped),
	)

	scorer := score.New(prof)
	for i := range deduped {
		result := scorer.Score(deduped[i])
		deduped[i].Score = &result
	}

	tracker := track.Load(p.trackerPath, p.logger)
	classified := tracker.Classify(deduped)

	report := &Report{
		Postings:    classified,
		SourceStats: orchestrator.SortedStats(stats),
		DedupStats:  dedupStats,
	}
	for _, s := range report.SourceStats {
		if s.Warning != "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", s.Source, s.Warning))
		}
	}

	// A cancelled run must not extend seen state, so an interrupted fetch
	// re-surfaces its postings as new on the next complete run.
	if ctx.Err() == nil {
		runStats, err := tracker.Commit(classified)
		if err != nil {
			p.logger.Warn("tracker commit failed", zap.Error(err))
			report.Warnings = append(report.Warnings, fmt.Sprintf("tracker: %v", err))
		} else {
			report.TrackerStats = runStats
			report.Committed = true
		}
	}

	sortByScore(report.Postings)
	return report, nil
}

// Usage reports current quota utilization per backend without fetching.
func (p *Pipeline) Usage(ctx context.Context) ([]UsageEntry, error) {
	seen := make(map[string]bool)
	var entries []UsageEntry
	for _, src := range p.sources {
		backend := p.limiter.Backend(src.Name())
		if seen[backend] {
			continue
		}
		seen[backend] = true
		used, limit, window, err := p.limiter.Usage(ctx, backend)
		if err != nil {
			return nil, fmt.Errorf("usage %s: %w", backend, err)
		}
		entries = append(entries, UsageEntry{
			Backend: backend,
			Used:    used,
			Limit:   limit,
			Window:  window,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Backend < entries[j].Backend })
	return entries, nil
}

// UsageEntry is one backend's most restrictive window utilization.
type UsageEntry struct {
	Backend string
	Used    int
	Limit   int
	Window  time.Duration
}

func sortByScore(postings []model.JobPosting) {
	sort.SliceStable(postings, func(i, j int) bool {
		var si, sj float64
		if postings[i].Score != nil {
			si = postings[i].Score.Overall
		}
		if postings[j].Score != nil {
			sj = postings[j].Score.Overall
		}
		return si > sj
	})
}
