package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekwell/jobscout/internal/model"
)

func posting(source, title, company, location, url string) model.JobPosting {
	return model.JobPosting{
		Source:   source,
		Title:    title,
		Company:  company,
		Location: location,
		URL:      url,
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"scheme and www stripped", "https://www.example.com/jobs/1", "example.com/jobs/1"},
		{"host lowercased", "HTTPS://EXAMPLE.com/Jobs/1", "example.com/Jobs/1"},
		{"trailing slash dropped", "https://example.com/jobs/1/", "example.com/jobs/1"},
		{"fragment dropped", "https://example.com/jobs/1#apply", "example.com/jobs/1"},
		{"tracking params dropped", "https://example.com/jobs/1?utm_source=x&utm_medium=y&ref=z", "example.com/jobs/1"},
		{"real params kept", "https://example.com/jobs?id=1&utm_campaign=a", "example.com/jobs?id=1"},
		{"param order canonicalized", "https://example.com/jobs?lang=en&id=1", "example.com/jobs?id=1&lang=en"},
		{"bare host", "http://example.com/", "example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestRun_ExactURLDuplicates(t *testing.T) {
	t.Parallel()
	in := []model.JobPosting{
		posting("weworkremotely", "Backend Engineer", "Acme", "Remote", "https://www.acme.com/jobs/1?utm_source=wwr"),
		posting("adzuna", "Backend Engineer (Go)", "Acme Inc", "Remote", "http://acme.com/jobs/1/"),
	}

	out, stats := Run(in, nil)
	require.Len(t, out, 1)
	assert.Equal(t, 1, stats.ExactDropped)
	assert.Equal(t, 0, stats.FuzzyDropped)
	assert.Equal(t, 1, stats.Kept())

	// The earlier, more authoritative posting wins and records the loser.
	assert.Equal(t, "weworkremotely", out[0].Source)
	assert.Equal(t, []string{"adzuna"}, out[0].SeenSources)
}

func TestRun_TupleDuplicates(t *testing.T) {
	t.Parallel()
	in := []model.JobPosting{
		posting("remotive", "Backend  Engineer", "ACME", "Austin, TX", "https://remotive.com/1"),
		posting("jooble", "backend engineer", "acme", "austin, tx", "https://jooble.org/2"),
	}

	out, stats := Run(in, nil)
	require.Len(t, out, 1)
	assert.Equal(t, 1, stats.ExactDropped)
	assert.Equal(t, "remotive", out[0].Source)
}

func TestRun_FuzzyWithinCompanyBlock(t *testing.T) {
	t.Parallel()
	in := []model.JobPosting{
		posting("remotive", "Senior Backend Engineer", "Acme", "Austin, TX", "https://remotive.com/1"),
		posting("adzuna", "Senior Backend Engineeer", "Acme", "Austin, TX", "https://adzuna.example/2"),
	}

	out, stats := Run(in, nil)
	require.Len(t, out, 1)
	assert.Equal(t, 0, stats.ExactDropped)
	assert.Equal(t, 1, stats.FuzzyDropped)
	assert.Equal(t, "remotive", out[0].Source)
	assert.Equal(t, []string{"adzuna"}, out[0].SeenSources)
}

func TestRun_FuzzyBlockedAcrossCompanies(t *testing.T) {
	t.Parallel()
	// Near-identical titles at different companies must both survive.
	in := []model.JobPosting{
		posting("remotive", "Senior Backend Engineer", "Acme", "Austin, TX", "https://remotive.com/1"),
		posting("adzuna", "Senior Backend Engineer", "Globex", "Austin, TX", "https://adzuna.example/2"),
	}

	out, stats := Run(in, nil)
	require.Len(t, out, 2)
	assert.Equal(t, 0, stats.FuzzyDropped)
}

func TestRun_DistinctPostingsSurvive(t *testing.T) {
	t.Parallel()
	in := []model.JobPosting{
		posting("remotive", "Backend Engineer", "Acme", "Remote", "https://acme.com/jobs/1"),
		posting("remotive", "Frontend Engineer", "Acme", "Remote", "https://acme.com/jobs/2"),
		posting("adzuna", "Data Engineer", "Globex", "NYC", "https://globex.com/jobs/3"),
	}

	out, stats := Run(in, nil)
	require.Len(t, out, 3)
	assert.Equal(t, 3, stats.Kept())
	// Survivor order follows input order.
	assert.Equal(t, "Backend Engineer", out[0].Title)
	assert.Equal(t, "Data Engineer", out[2].Title)
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()
	in := []model.JobPosting{
		posting("weworkremotely", "Backend Engineer", "Acme", "Remote", "https://acme.com/jobs/1"),
		posting("adzuna", "Backend Engineer", "Acme", "Remote", "https://acme.com/jobs/1?ref=feed"),
	}

	first, _ := Run(in, nil)
	second, stats := Run(first, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, stats.ExactDropped+stats.FuzzyDropped)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abcd", "wxyz"))
	assert.InDelta(t, 0.8, Similarity("abcde", "abcdX"), 0.001)
	assert.Less(t, Similarity("backend engineer", "frontend designer"), Threshold)
}
