// Package model defines the canonical job posting types shared by every
// pipeline stage. A JobPosting is created exactly once by a source fetcher
// and only annotated (never mutated) as it passes through dedup, scoring,
// and tracking.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Arrangement describes where the work happens.
type Arrangement string

// Supported work arrangements.
const (
	ArrangementRemote  Arrangement = "remote"
	ArrangementHybrid  Arrangement = "hybrid"
	ArrangementOnsite  Arrangement = "onsite"
	ArrangementUnknown Arrangement = "unknown"
)

// ParseConfidence is a fetcher's self-reported confidence in how completely
// it extracted a posting's fields.
type ParseConfidence string

// Supported parse confidence levels.
const (
	ConfidenceHigh   ParseConfidence = "high"
	ConfidenceMedium ParseConfidence = "medium"
	ConfidenceLow    ParseConfidence = "low"
)

// Salary holds structured compensation when the source provides it.
// Specified is false when the posting carries no usable salary data.
type Salary struct {
	Specified bool    `json:"specified"`
	Min       float64 `json:"min,omitempty"`
	Max       float64 `json:"max,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	Period    string  `json:"period,omitempty"`
}

// String renders the salary for reports.
func (s Salary) String() string {
	if !s.Specified {
		return "not specified"
	}
	switch {
	case s.Min > 0 && s.Max > 0 && s.Min != s.Max:
		return fmt.Sprintf("%s %.0f-%.0f/%s", s.Currency, s.Min, s.Max, s.Period)
	case s.Max > 0:
		return fmt.Sprintf("%s %.0f/%s", s.Currency, s.Max, s.Period)
	default:
		return fmt.Sprintf("%s %.0f/%s", s.Currency, s.Min, s.Period)
	}
}

// JobPosting is the canonical record every source maps into.
type JobPosting struct {
	Title          string          `json:"title"`
	Company        string          `json:"company"`
	Location       string          `json:"location"`
	Arrangement    Arrangement     `json:"arrangement"`
	Salary         Salary          `json:"salary"`
	DatePosted     time.Time       `json:"date_posted"`
	Description    string          `json:"description"`
	URL            string          `json:"url"`
	Source         string          `json:"source"`
	EmploymentType string          `json:"employment_type"`
	Confidence     ParseConfidence `json:"parse_confidence"`

	// SeenSources lists other sources that carried the same posting,
	// filled in by the deduplicator.
	SeenSources []string `json:"seen_sources,omitempty"`

	// Annotations applied after fetch. Nil until the relevant stage runs.
	IsNew *bool        `json:"is_new,omitempty"`
	Score *ScoreResult `json:"score,omitempty"`
}

// Validate reports whether the posting satisfies the pipeline entry
// invariant: title, company, and url must all be non-empty.
func (p JobPosting) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("posting title is empty")
	}
	if strings.TrimSpace(p.Company) == "" {
		return errors.New("posting company is empty")
	}
	if strings.TrimSpace(p.URL) == "" {
		return errors.New("posting url is empty")
	}
	return nil
}

// Text returns the searchable text of the posting, used for dealbreaker and
// keyword scans.
func (p JobPosting) Text() string {
	return p.Title + "\n" + p.Description
}

// ScoreResult captures the outcome of scoring one posting against a profile.
type ScoreResult struct {
	Overall        float64            `json:"overall"`
	Components     map[string]float64 `json:"components"`
	Recommendation string             `json:"recommendation"`
	// Dealbreaker explains a forced 0.0 score; empty otherwise.
	Dealbreaker string `json:"dealbreaker,omitempty"`
}
