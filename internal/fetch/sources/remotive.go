package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/model"
)

const remotiveDefaultURL = "https://remotive.com/api/remote-jobs"

// Remotive fetches from the public Remotive remote-jobs API. No
// authentication is required.
type Remotive struct {
	deps Deps
	// BaseURL is overridable for tests.
	BaseURL string
}

// NewRemotive constructs the source.
func NewRemotive(deps Deps) *Remotive {
	return &Remotive{deps: deps, BaseURL: remotiveDefaultURL}
}

// Name implements fetch.Source.
func (r *Remotive) Name() string { return "remotive" }

// Phase implements fetch.Source.
func (r *Remotive) Phase() fetch.Phase { return fetch.PhaseNativeAPI }

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	CompanyName     string `json:"company_name"`
	Location        string `json:"candidate_required_location"`
	JobType         string `json:"job_type"`
	PublicationDate string `json:"publication_date"`
	Description     string `json:"description"`
}

// Fetch implements fetch.Source.
func (r *Remotive) Fetch(ctx context.Context, q fetch.Query) fetch.Result {
	ok, err := r.deps.Limiter.Acquire(ctx, r.Name())
	if err != nil {
		return fetch.Failed(r.Name(), q, fmt.Errorf("acquire quota: %w", err))
	}
	if !ok {
		return fetch.Denied(r.Name(), q)
	}

	endpoint := r.BaseURL + "?" + url.Values{"search": {q.Title}}.Encode()
	var resp remotiveResponse
	if err := r.deps.Client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return fetch.Failed(r.Name(), q, err)
	}

	postings := make([]model.JobPosting, 0, len(resp.Jobs))
	for _, job := range resp.Jobs {
		description := fetch.StripHTML(job.Description)
		postings = append(postings, model.JobPosting{
			Title:   job.Title,
			Company: job.CompanyName,
			// Remotive lists remote roles only; location names the
			// required candidate region.
			Location:       fetch.NormalizeLocation(job.Location),
			Arrangement:    model.ArrangementRemote,
			DatePosted:     parseDate(job.PublicationDate),
			Description:    description,
			URL:            job.URL,
			Source:         r.Name(),
			EmploymentType: job.JobType,
			Confidence:     model.ConfidenceHigh,
		})
	}
	return fetch.OK(r.Name(), q, keepValid(r.deps.logger(), r.Name(), postings))
}
