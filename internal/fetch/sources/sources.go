// Package sources implements the concrete job-board fetchers. Each source
// acquires rate-limit quota before touching the network, maps its response
// into canonical postings, and discards records missing the title/company/
// url invariant instead of failing the run.
package sources

import (
	"time"

	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/model"
)

// Deps aggregates what every source needs.
type Deps struct {
	Client  *fetch.Client
	Limiter fetch.Acquirer
	Logger  *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// keepValid filters out postings that fail the entry invariant, logging
// each discard at debug level. Malformed records are never fatal.
func keepValid(logger *zap.Logger, source string, postings []model.JobPosting) []model.JobPosting {
	kept := postings[:0]
	for _, p := range postings {
		if err := p.Validate(); err != nil {
			logger.Debug("discarding incomplete posting",
				zap.String("source", source),
				zap.String("url", p.URL),
				zap.Error(err),
			)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// parseDate tries the timestamp layouts seen across source APIs. A zero
// time means the source gave nothing usable; the response-likelihood
// subscore treats that as stale.
func parseDate(raw string) time.Time {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// All builds the full source set from configured credentials. Sources with
// missing credentials are still constructed; they degrade to auth failures
// or empty results at fetch time rather than being silently absent.
func All(deps Deps, creds Credentials) []fetch.Source {
	return []fetch.Source{
		NewWeWorkRemotely(deps),
		NewRemotive(deps),
		NewUSAJobs(deps, creds.USAJobsKey, creds.USAJobsEmail),
		NewAdzuna(deps, creds.AdzunaAppID, creds.AdzunaAppKey),
		NewJooble(deps, creds.JoobleKey),
	}
}

// Credentials carries per-source API secrets from configuration.
type Credentials struct {
	USAJobsKey   string
	USAJobsEmail string
	AdzunaAppID  string
	AdzunaAppKey string
	JoobleKey    string
}
