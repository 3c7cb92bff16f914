// Package fetch defines the source fetcher contract and the shared HTTP,
// HTML, and normalization helpers every concrete source builds on.
package fetch

import (
	"context"

	"github.com/seekwell/jobscout/internal/model"
)

// Phase orders sources by authority. Dedup keeps the posting from the
// earliest phase on collision, so scrapers beat native APIs beat
// aggregators that may re-surface the same listings.
type Phase int

// Fetch phases, executed in order.
const (
	PhaseScraper Phase = iota
	PhaseNativeAPI
	PhaseAggregator
)

// Query is one unit of search work derived from the candidate profile.
type Query struct {
	Title    string
	Location string
	Remote   bool
}

// Status classifies a fetch outcome so callers can tell "nothing matched"
// apart from "source errored".
type Status string

// Fetch outcome statuses.
const (
	StatusOK          Status = "ok"
	StatusRateLimited Status = "rate_limited"
	StatusAuthFailed  Status = "auth_failed"
	StatusErrored     Status = "errored"
)

// Result is the typed outcome of one (source, query) fetch. Err is set only
// for auth_failed and errored; both still carry any postings gathered
// before the failure.
type Result struct {
	Source   string
	Query    Query
	Status   Status
	Postings []model.JobPosting
	Err      error
}

// Acquirer grants rate-limit quota. Satisfied by *ratelimit.Limiter, which
// resolves the source name to its quota bucket: sources configured with the
// same alias share one bucket, so a source never names a bucket itself.
type Acquirer interface {
	Acquire(ctx context.Context, source string) (bool, error)
}

// Source retrieves postings for one upstream job board or API.
type Source interface {
	// Name identifies the source on postings, progress events, and quota
	// acquisitions.
	Name() string
	// Phase places the source in the orchestrator's execution order.
	Phase() Phase
	// Fetch runs one query. It must call Acquire first and return a
	// rate_limited Result immediately on denial. It never panics and
	// never returns a raw transport error as a Go error to the caller;
	// failures are folded into the Result.
	Fetch(ctx context.Context, q Query) Result
}

// Denied builds the Result for a rate-limit denial.
func Denied(source string, q Query) Result {
	return Result{Source: source, Query: q, Status: StatusRateLimited}
}

// OK builds a successful Result.
func OK(source string, q Query, postings []model.JobPosting) Result {
	return Result{Source: source, Query: q, Status: StatusOK, Postings: postings}
}

// Failed folds an error into a Result, distinguishing auth failures.
func Failed(source string, q Query, err error) Result {
	status := StatusErrored
	if IsAuthError(err) {
		status = StatusAuthFailed
	}
	return Result{Source: source, Query: q, Status: status, Err: err}
}
