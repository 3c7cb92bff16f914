package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/fetch"
	"github.com/seekwell/jobscout/internal/model"
)

// grantAll approves every acquisition; denyAll refuses them.
type grantAll struct{}

func (grantAll) Acquire(context.Context, string) (bool, error) { return true, nil }

type denyAll struct{}

func (denyAll) Acquire(context.Context, string) (bool, error) { return false, nil }

func testDeps(limiter fetch.Acquirer) Deps {
	return Deps{
		Client: fetch.NewClient(fetch.ClientConfig{
			Timeout:     2 * time.Second,
			MaxAttempts: 1,
			BaseDelay:   time.Millisecond,
		}),
		Limiter: limiter,
		Logger:  zap.NewNop(),
	}
}

func TestRemotive_MapsAndDiscards(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "backend engineer", r.URL.Query().Get("search"))
		w.Write([]byte(`{"jobs": [
			{
				"url": "https://remotive.com/remote-jobs/software-dev/backend-1",
				"title": "Backend Engineer",
				"company_name": "Acme",
				"candidate_required_location": "USA",
				"job_type": "full_time",
				"publication_date": "2026-08-20T00:00:00",
				"description": "<p>Build <b>Go</b> services</p>"
			},
			{
				"url": "https://remotive.com/remote-jobs/software-dev/broken-2",
				"title": "Missing Company",
				"company_name": "",
				"description": "incomplete record"
			}
		]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	src := NewRemotive(testDeps(grantAll{}))
	src.BaseURL = srv.URL

	res := src.Fetch(context.Background(), fetch.Query{Title: "backend engineer"})
	require.Equal(t, fetch.StatusOK, res.Status)
	require.Len(t, res.Postings, 1, "record missing company must be discarded")

	p := res.Postings[0]
	assert.Equal(t, "Backend Engineer", p.Title)
	assert.Equal(t, "Acme", p.Company)
	assert.Equal(t, model.ArrangementRemote, p.Arrangement)
	assert.Equal(t, "Build Go services", p.Description)
	assert.Equal(t, "remotive", p.Source)
	assert.Equal(t, model.ConfidenceHigh, p.Confidence)
	assert.Equal(t, 2026, p.DatePosted.Year())
}

func TestRemotive_RateLimitDenialSkipsNetwork(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("denied fetch must not reach the network")
	}))
	defer srv.Close()

	src := NewRemotive(testDeps(denyAll{}))
	src.BaseURL = srv.URL

	res := src.Fetch(context.Background(), fetch.Query{Title: "backend engineer"})
	require.Equal(t, fetch.StatusRateLimited, res.Status)
	require.Empty(t, res.Postings)
}

func TestUSAJobs_AuthFailureClassified(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	src := NewUSAJobs(testDeps(grantAll{}), "bad-key", "me@example.com")
	src.BaseURL = srv.URL

	res := src.Fetch(context.Background(), fetch.Query{Title: "backend engineer"})
	require.Equal(t, fetch.StatusAuthFailed, res.Status)
	require.Error(t, res.Err)
	require.Empty(t, res.Postings)
}

func TestUSAJobs_MapsDescriptor(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bad-key", r.Header.Get("Authorization-Key"))
		w.Write([]byte(`{"SearchResult": {"SearchResultItems": [
			{"MatchedObjectDescriptor": {
				"PositionTitle": "Software Developer",
				"OrganizationName": "Dept of Examples",
				"PositionURI": "https://www.usajobs.gov/job/123",
				"PositionLocationDisplay": "Austin, Texas",
				"PublicationStartDate": "2026-08-25",
				"PositionSchedule": [{"Name": "Full-time"}],
				"PositionRemuneration": [{"MinimumRange": "90000", "MaximumRange": "120000", "RateIntervalCode": "PA"}],
				"UserArea": {"Details": {"JobSummary": "Ship software.", "TeleworkEligible": true}}
			}}
		]}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	src := NewUSAJobs(testDeps(grantAll{}), "bad-key", "me@example.com")
	src.BaseURL = srv.URL

	res := src.Fetch(context.Background(), fetch.Query{Title: "software developer"})
	require.Equal(t, fetch.StatusOK, res.Status)
	require.Len(t, res.Postings, 1)

	p := res.Postings[0]
	assert.Equal(t, "Austin, TX", p.Location)
	assert.Equal(t, model.ArrangementRemote, p.Arrangement, "telework flag beats keyword inference")
	assert.True(t, p.Salary.Specified)
	assert.InDelta(t, 90000, p.Salary.Min, 0.01)
	assert.Equal(t, "Full-time", p.EmploymentType)
}

func TestAdzuna_MissingCredentialsDegradesEmpty(t *testing.T) {
	t.Parallel()
	src := NewAdzuna(testDeps(grantAll{}), "", "")
	res := src.Fetch(context.Background(), fetch.Query{Title: "backend engineer"})
	require.Equal(t, fetch.StatusOK, res.Status)
	require.Empty(t, res.Postings)
}

func TestAdzuna_StopsAfterShortPage(t *testing.T) {
	t.Parallel()
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pages++
		w.Write([]byte(`{"results": [
			{"title": "Backend Engineer", "description": "Go services",
			 "company": {"display_name": "Acme"}, "location": {"display_name": "Austin, Texas"},
			 "redirect_url": "https://adzuna.example/1", "created": "2026-08-20T00:00:00Z"}
		]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	src := NewAdzuna(testDeps(grantAll{}), "id", "key")
	src.BaseURL = srv.URL

	res := src.Fetch(context.Background(), fetch.Query{Title: "backend engineer"})
	require.Equal(t, fetch.StatusOK, res.Status)
	require.Len(t, res.Postings, 1)
	require.Equal(t, 1, pages, "a short page must stop pagination")
	assert.Equal(t, model.ConfidenceMedium, res.Postings[0].Confidence)
}

func TestJooble_MissingKeyDegradesEmpty(t *testing.T) {
	t.Parallel()
	src := NewJooble(testDeps(grantAll{}), "")
	res := src.Fetch(context.Background(), fetch.Query{Title: "backend engineer"})
	require.Equal(t, fetch.StatusOK, res.Status)
	require.Empty(t, res.Postings)
}

func TestJooble_PostsKeywordsWithKeyInPath(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/secret-key", r.URL.Path)
		var req struct {
			Keywords string `json:"keywords"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "backend engineer", req.Keywords)
		w.Write([]byte(`{"jobs": [
			{"title": "Backend Engineer", "company": "Acme", "location": "Remote",
			 "snippet": "Build <b>Go</b> services, fully remote", "link": "https://jooble.org/job/1",
			 "updated": "2026-08-21T00:00:00Z"}
		]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	src := NewJooble(testDeps(grantAll{}), "secret-key")
	src.BaseURL = srv.URL

	res := src.Fetch(context.Background(), fetch.Query{Title: "backend engineer", Remote: true})
	require.Equal(t, fetch.StatusOK, res.Status)
	require.Len(t, res.Postings, 1)
	assert.Equal(t, model.ConfidenceLow, res.Postings[0].Confidence)
	assert.Equal(t, model.ArrangementRemote, res.Postings[0].Arrangement)
}

func TestWeWorkRemotely_ParsesListing(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><section class="jobs"><ul>
			<li>
				<a href="/remote-jobs/acme-backend-engineer">
					<span class="title">Backend Engineer</span>
					<span class="company">Acme</span>
					<span class="region">Anywhere in the World</span>
				</a>
			</li>
			<li>
				<a href="/remote-jobs/broken">
					<span class="title">No Company Row</span>
				</a>
			</li>
		</ul></section></body></html>`)) //nolint:errcheck
	}))
	defer srv.Close()

	src := NewWeWorkRemotely(testDeps(grantAll{}))
	src.BaseURL = srv.URL

	res := src.Fetch(context.Background(), fetch.Query{Title: "backend engineer"})
	require.Equal(t, fetch.StatusOK, res.Status)
	require.Len(t, res.Postings, 1, "row without company must be discarded")

	p := res.Postings[0]
	assert.Equal(t, "Backend Engineer", p.Title)
	assert.Equal(t, "Acme", p.Company)
	assert.Equal(t, model.ArrangementRemote, p.Arrangement)
	assert.Contains(t, p.URL, "/remote-jobs/acme-backend-engineer")
}

func TestAll_BuildsFiveSources(t *testing.T) {
	t.Parallel()
	srcs := All(testDeps(grantAll{}), Credentials{})
	require.Len(t, srcs, 5)

	var scrapers, native, aggregators int
	for _, s := range srcs {
		switch s.Phase() {
		case fetch.PhaseScraper:
			scrapers++
		case fetch.PhaseNativeAPI:
			native++
		case fetch.PhaseAggregator:
			aggregators++
		}
	}
	assert.Equal(t, 1, scrapers)
	assert.Equal(t, 2, native)
	assert.Equal(t, 2, aggregators)
}
