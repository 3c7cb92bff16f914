package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobPosting_Validate(t *testing.T) {
	t.Parallel()
	valid := JobPosting{Title: "Backend Engineer", Company: "Acme", URL: "https://acme.com/jobs/1"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*JobPosting)
	}{
		{"missing title", func(p *JobPosting) { p.Title = "" }},
		{"blank title", func(p *JobPosting) { p.Title = "   " }},
		{"missing company", func(p *JobPosting) { p.Company = "" }},
		{"missing url", func(p *JobPosting) { p.URL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := valid
			tt.mutate(&p)
			require.Error(t, p.Validate())
		})
	}
}

func TestSalary_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "not specified", Salary{}.String())
	assert.Equal(t, "USD 90000-120000/year",
		Salary{Specified: true, Min: 90000, Max: 120000, Currency: "USD", Period: "year"}.String())
	assert.Equal(t, "USD 120000/year",
		Salary{Specified: true, Max: 120000, Currency: "USD", Period: "year"}.String())
}
