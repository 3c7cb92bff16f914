package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/model"
)

const usajobsDefaultURL = "https://data.usajobs.gov/api/search"

// USAJobs fetches from the USAJOBS search API, which requires an API key
// and a registered email in the User-Agent header. 401/403 responses are
// surfaced as auth failures so the operator knows to fix credentials.
type USAJobs struct {
	deps    Deps
	apiKey  string
	email   string
	BaseURL string
}

// NewUSAJobs constructs the source. Missing credentials are allowed; the
// API will reject the call and the source degrades to zero results.
func NewUSAJobs(deps Deps, apiKey, email string) *USAJobs {
	return &USAJobs{deps: deps, apiKey: apiKey, email: email, BaseURL: usajobsDefaultURL}
}

// Name implements fetch.Source.
func (u *USAJobs) Name() string { return "usajobs" }

// Phase implements fetch.Source.
func (u *USAJobs) Phase() fetch.Phase { return fetch.PhaseNativeAPI }

type usajobsResponse struct {
	SearchResult struct {
		SearchResultItems []struct {
			MatchedObjectDescriptor usajobsDescriptor `json:"MatchedObjectDescriptor"`
		} `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

type usajobsDescriptor struct {
	PositionTitle           string   `json:"PositionTitle"`
	OrganizationName        string   `json:"OrganizationName"`
	PositionURI             string   `json:"PositionURI"`
	PositionLocationDisplay string   `json:"PositionLocationDisplay"`
	PublicationStartDate    string   `json:"PublicationStartDate"`
	PositionSchedule        []kvName `json:"PositionSchedule"`
	PositionRemuneration    []struct {
		MinimumRange     string `json:"MinimumRange"`
		MaximumRange     string `json:"MaximumRange"`
		RateIntervalCode string `json:"RateIntervalCode"`
	} `json:"PositionRemuneration"`
	UserArea struct {
		Details struct {
			JobSummary       string `json:"JobSummary"`
			TeleworkEligible bool   `json:"TeleworkEligible"`
		} `json:"Details"`
	} `json:"UserArea"`
}

type kvName struct {
	Name string `json:"Name"`
}

// Fetch implements fetch.Source.
func (u *USAJobs) Fetch(ctx context.Context, q fetch.Query) fetch.Result {
	ok, err := u.deps.Limiter.Acquire(ctx, u.Name())
	if err != nil {
		return fetch.Failed(u.Name(), q, fmt.Errorf("acquire quota: %w", err))
	}
	if !ok {
		return fetch.Denied(u.Name(), q)
	}

	params := url.Values{"Keyword": {q.Title}, "ResultsPerPage": {"100"}}
	if q.Location != "" && !q.Remote {
		params.Set("LocationName", q.Location)
	}
	headers := map[string]string{
		"Authorization-Key": u.apiKey,
		"User-Agent":        u.email,
	}

	var resp usajobsResponse
	if err := u.deps.Client.GetJSON(ctx, u.BaseURL+"?"+params.Encode(), headers, &resp); err != nil {
		return fetch.Failed(u.Name(), q, err)
	}

	items := resp.SearchResult.SearchResultItems
	postings := make([]model.JobPosting, 0, len(items))
	for _, item := range items {
		postings = append(postings, u.mapDescriptor(item.MatchedObjectDescriptor))
	}
	return fetch.OK(u.Name(), q, keepValid(u.deps.logger(), u.Name(), postings))
}

func (u *USAJobs) mapDescriptor(d usajobsDescriptor) model.JobPosting {
	summary := fetch.StripHTML(d.UserArea.Details.JobSummary)

	// The API flags telework eligibility explicitly; keyword inference is
	// only the fallback.
	arrangement := fetch.InferArrangement(d.PositionTitle, summary)
	if d.UserArea.Details.TeleworkEligible {
		arrangement = model.ArrangementRemote
	}

	var salary model.Salary
	if len(d.PositionRemuneration) > 0 {
		rem := d.PositionRemuneration[0]
		min, _ := strconv.ParseFloat(rem.MinimumRange, 64)
		max, _ := strconv.ParseFloat(rem.MaximumRange, 64)
		period := "year"
		if rem.RateIntervalCode == "PH" {
			period = "hour"
		}
		salary = fetch.BuildSalary(min, max, "USD", period)
	}

	employment := ""
	if len(d.PositionSchedule) > 0 {
		employment = d.PositionSchedule[0].Name
	}

	return model.JobPosting{
		Title:          d.PositionTitle,
		Company:        d.OrganizationName,
		Location:       fetch.NormalizeLocation(d.PositionLocationDisplay),
		Arrangement:    arrangement,
		Salary:         salary,
		DatePosted:     parseDate(d.PublicationStartDate),
		Description:    summary,
		URL:            d.PositionURI,
		Source:         u.Name(),
		EmploymentType: employment,
		Confidence:     model.ConfidenceHigh,
	}
}
