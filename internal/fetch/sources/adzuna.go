package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/model"
)

const (
	adzunaDefaultURL = "https://api.adzuna.com/v1/api/jobs/us/search"
	adzunaPageSize   = 50
	// adzunaMaxPages bounds results per query; the aggregator re-surfaces
	// the primary sources anyway, so depth buys little.
	adzunaMaxPages = 3
)

// Adzuna fetches from the Adzuna aggregator API using app id/key
// credentials. As a phase-3 aggregator it loses dedup ties to the primary
// sources it re-surfaces.
type Adzuna struct {
	deps    Deps
	appID   string
	appKey  string
	BaseURL string
}

// NewAdzuna constructs the source.
func NewAdzuna(deps Deps, appID, appKey string) *Adzuna {
	return &Adzuna{deps: deps, appID: appID, appKey: appKey, BaseURL: adzunaDefaultURL}
}

// Name implements fetch.Source.
func (a *Adzuna) Name() string { return "adzuna" }

// Phase implements fetch.Source.
func (a *Adzuna) Phase() fetch.Phase { return fetch.PhaseAggregator }

type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
}

type adzunaResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	SalaryMin    float64 `json:"salary_min"`
	SalaryMax    float64 `json:"salary_max"`
	RedirectURL  string  `json:"redirect_url"`
	Created      string  `json:"created"`
	ContractTime string  `json:"contract_time"`
}

// Fetch implements fetch.Source. Pages are fetched until a short page, the
// page cap, or quota denial; postings gathered before a denial are kept.
func (a *Adzuna) Fetch(ctx context.Context, q fetch.Query) fetch.Result {
	if a.appID == "" || a.appKey == "" {
		a.deps.logger().Warn("adzuna credentials not configured, skipping")
		return fetch.OK(a.Name(), q, nil)
	}

	var postings []model.JobPosting
	for page := 1; page <= adzunaMaxPages; page++ {
		ok, err := a.deps.Limiter.Acquire(ctx, a.Name())
		if err != nil {
			return fetch.Failed(a.Name(), q, fmt.Errorf("acquire quota: %w", err))
		}
		if !ok {
			if len(postings) > 0 {
				break
			}
			return fetch.Denied(a.Name(), q)
		}

		batch, err := a.fetchPage(ctx, q, page)
		if err != nil {
			if len(postings) > 0 {
				// Keep what earlier pages returned.
				break
			}
			return fetch.Failed(a.Name(), q, err)
		}
		postings = append(postings, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}
	return fetch.OK(a.Name(), q, keepValid(a.deps.logger(), a.Name(), postings))
}

func (a *Adzuna) fetchPage(ctx context.Context, q fetch.Query, page int) ([]model.JobPosting, error) {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", q.Title)
	params.Set("sort_by", "date")
	if q.Location != "" && !q.Remote {
		params.Set("where", q.Location)
	}

	endpoint := fmt.Sprintf("%s/%d?%s", a.BaseURL, page, params.Encode())
	var resp adzunaResponse
	if err := a.deps.Client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	postings := make([]model.JobPosting, 0, len(resp.Results))
	for _, r := range resp.Results {
		description := fetch.StripHTML(r.Description)
		postings = append(postings, model.JobPosting{
			Title:          r.Title,
			Company:        r.Company.DisplayName,
			Location:       fetch.NormalizeLocation(r.Location.DisplayName),
			Arrangement:    fetch.InferArrangement(r.Title, description),
			Salary:         fetch.BuildSalary(r.SalaryMin, r.SalaryMax, "USD", "year"),
			DatePosted:     parseDate(r.Created),
			Description:    description,
			URL:            r.RedirectURL,
			Source:         a.Name(),
			EmploymentType: r.ContractTime,
			// Aggregator snippets are truncated and fields lossy.
			Confidence: model.ConfidenceMedium,
		})
	}
	return postings, nil
}
