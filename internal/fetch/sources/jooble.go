package sources

import (
	"context"
	"fmt"

	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/model"
)

const joobleDefaultURL = "https://jooble.org/api"

// Jooble fetches from the Jooble aggregator API. The API key rides in the
// request path and queries are POSTed as JSON.
type Jooble struct {
	deps    Deps
	apiKey  string
	BaseURL string
}

// NewJooble constructs the source.
func NewJooble(deps Deps, apiKey string) *Jooble {
	return &Jooble{deps: deps, apiKey: apiKey, BaseURL: joobleDefaultURL}
}

// Name implements fetch.Source.
func (j *Jooble) Name() string { return "jooble" }

// Phase implements fetch.Source.
func (j *Jooble) Phase() fetch.Phase { return fetch.PhaseAggregator }

type joobleRequest struct {
	Keywords string `json:"keywords"`
	Location string `json:"location,omitempty"`
}

type joobleResponse struct {
	Jobs []joobleJob `json:"jobs"`
}

type joobleJob struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Snippet  string `json:"snippet"`
	Salary   string `json:"salary"`
	Type     string `json:"type"`
	Link     string `json:"link"`
	Company  string `json:"company"`
	Updated  string `json:"updated"`
}

// Fetch implements fetch.Source.
func (j *Jooble) Fetch(ctx context.Context, q fetch.Query) fetch.Result {
	if j.apiKey == "" {
		j.deps.logger().Warn("jooble api key not configured, skipping")
		return fetch.OK(j.Name(), q, nil)
	}

	ok, err := j.deps.Limiter.Acquire(ctx, j.Name())
	if err != nil {
		return fetch.Failed(j.Name(), q, fmt.Errorf("acquire quota: %w", err))
	}
	if !ok {
		return fetch.Denied(j.Name(), q)
	}

	payload := joobleRequest{Keywords: q.Title}
	if q.Location != "" && !q.Remote {
		payload.Location = q.Location
	}

	var resp joobleResponse
	if err := j.deps.Client.PostJSON(ctx, j.BaseURL+"/"+j.apiKey, nil, payload, &resp); err != nil {
		return fetch.Failed(j.Name(), q, err)
	}

	postings := make([]model.JobPosting, 0, len(resp.Jobs))
	for _, job := range resp.Jobs {
		snippet := fetch.StripHTML(job.Snippet)
		postings = append(postings, model.JobPosting{
			Title:          job.Title,
			Company:        job.Company,
			Location:       fetch.NormalizeLocation(job.Location),
			Arrangement:    fetch.InferArrangement(job.Title, snippet),
			DatePosted:     parseDate(job.Updated),
			Description:    snippet,
			URL:            job.Link,
			Source:         j.Name(),
			EmploymentType: job.Type,
			// Jooble snippets are heavily truncated and salary is free text.
			Confidence: model.ConfidenceLow,
		})
	}
	return fetch.OK(j.Name(), q, keepValid(j.deps.logger(), j.Name(), postings))
}
