package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/model"
)

const wwrDefaultURL = "https://weworkremotely.com"

// WeWorkRemotely scrapes the We Work Remotely search listing. It is the
// only phase-1 scraper, so on dedup collisions its postings win over every
// API source.
type WeWorkRemotely struct {
	deps    Deps
	BaseURL string
	// Timeout bounds one listing fetch.
	Timeout time.Duration
}

// NewWeWorkRemotely constructs the source.
func NewWeWorkRemotely(deps Deps) *WeWorkRemotely {
	return &WeWorkRemotely{deps: deps, BaseURL: wwrDefaultURL, Timeout: 15 * time.Second}
}

// Name implements fetch.Source.
func (w *WeWorkRemotely) Name() string { return "weworkremotely" }

// Phase implements fetch.Source.
func (w *WeWorkRemotely) Phase() fetch.Phase { return fetch.PhaseScraper }

// Fetch implements fetch.Source. The collector run is raced against ctx so
// cancellation returns promptly even mid-visit.
func (w *WeWorkRemotely) Fetch(ctx context.Context, q fetch.Query) fetch.Result {
	ok, err := w.deps.Limiter.Acquire(ctx, w.Name())
	if err != nil {
		return fetch.Failed(w.Name(), q, fmt.Errorf("acquire quota: %w", err))
	}
	if !ok {
		return fetch.Denied(w.Name(), q)
	}

	var postings []model.JobPosting
	collector := colly.NewCollector(colly.Async(false))
	collector.SetRequestTimeout(w.Timeout)

	collector.OnHTML("section.jobs li", func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText("span.title"))
		company := strings.TrimSpace(e.ChildText("span.company"))
		region := strings.TrimSpace(e.ChildText("span.region"))
		href := e.ChildAttr("a[href*='/remote-jobs/']", "href")
		if href != "" {
			href = e.Request.AbsoluteURL(href)
		}
		postings = append(postings, model.JobPosting{
			Title:       title,
			Company:     company,
			Location:    fetch.NormalizeLocation(region),
			Arrangement: model.ArrangementRemote,
			URL:         href,
			Source:      w.Name(),
			// Listing rows carry no description or date.
			Confidence: model.ConfidenceLow,
		})
	})

	var fetchErr error
	collector.OnError(func(resp *colly.Response, err error) {
		if resp != nil && (resp.StatusCode == 401 || resp.StatusCode == 403) {
			fetchErr = &fetch.AuthError{StatusCode: resp.StatusCode, URL: resp.Request.URL.String()}
			return
		}
		fetchErr = err
	})

	target := fmt.Sprintf("%s/remote-jobs/search?%s", w.BaseURL, url.Values{"term": {q.Title}}.Encode())
	if err := w.visit(ctx, collector, target); err != nil {
		// OnError saw the response and classified it; prefer that over
		// Visit's flattened error.
		if fetchErr != nil {
			return fetch.Failed(w.Name(), q, fmt.Errorf("fetch listing: %w", fetchErr))
		}
		return fetch.Failed(w.Name(), q, err)
	}
	return fetch.OK(w.Name(), q, keepValid(w.deps.logger(), w.Name(), postings))
}

func (w *WeWorkRemotely) visit(ctx context.Context, collector *colly.Collector, target string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("scrape canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit listing: %w", err)
		}
		return nil
	}
}
