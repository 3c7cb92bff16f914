// Package profile defines the candidate profile consumed by the scoring
// engine and the query builder, including its versioned on-disk schema.
package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// CurrentSchemaVersion is the schema written by Save. Older documents are
// migrated forward on load, one version at a time.
const CurrentSchemaVersion = 3

// StaffingPreference controls the post-scoring adjustment applied to
// postings from staffing or recruiting firms.
type StaffingPreference string

// Supported staffing preferences.
const (
	StaffingBoost    StaffingPreference = "boost"
	StaffingNeutral  StaffingPreference = "neutral"
	StaffingPenalize StaffingPreference = "penalize"
)

// SeniorityLevel orders career levels for the seniority-distance subscore.
type SeniorityLevel string

// Supported seniority levels, junior to executive.
const (
	LevelJunior    SeniorityLevel = "junior"
	LevelMid       SeniorityLevel = "mid"
	LevelSenior    SeniorityLevel = "senior"
	LevelStaff     SeniorityLevel = "staff"
	LevelPrincipal SeniorityLevel = "principal"
	LevelExecutive SeniorityLevel = "executive"
)

// ScoringWeights holds the six named component weights. Each must lie in
// [0.05, 1.0] and the six must sum to 1.0 within tolerance.
type ScoringWeights struct {
	Skills    float64 `json:"skills" mapstructure:"skills"`
	Title     float64 `json:"title" mapstructure:"title"`
	Seniority float64 `json:"seniority" mapstructure:"seniority"`
	Location  float64 `json:"location" mapstructure:"location"`
	Domain    float64 `json:"domain" mapstructure:"domain"`
	Response  float64 `json:"response" mapstructure:"response"`
}

// DefaultWeights reproduces the legacy fixed-weight formula. Scoring with
// these weights must yield byte-identical results to the pre-configurable
// scorer, so they must not drift.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		Skills:    0.30,
		Title:     0.20,
		Seniority: 0.15,
		Location:  0.15,
		Domain:    0.10,
		Response:  0.10,
	}
}

const (
	weightMin     = 0.05
	weightMax     = 1.0
	weightSumLow  = 0.99
	weightSumHigh = 1.01
)

// Validate checks bounds and the sum constraint.
func (w ScoringWeights) Validate() error {
	for name, v := range w.components() {
		if v < weightMin || v > weightMax {
			return fmt.Errorf("weight %s = %.3f outside [%.2f, %.2f]", name, v, weightMin, weightMax)
		}
	}
	sum := w.Sum()
	if sum < weightSumLow || sum > weightSumHigh {
		return fmt.Errorf("weights sum to %.3f, want 1.0 +/- 0.01", sum)
	}
	return nil
}

// Sum returns the total of all six weights.
func (w ScoringWeights) Sum() float64 {
	return w.Skills + w.Title + w.Seniority + w.Location + w.Domain + w.Response
}

func (w ScoringWeights) components() map[string]float64 {
	return map[string]float64{
		"skills":    w.Skills,
		"title":     w.Title,
		"seniority": w.Seniority,
		"location":  w.Location,
		"domain":    w.Domain,
		"response":  w.Response,
	}
}

// IsZero reports whether no weight is set, which is how an absent
// scoring_weights block deserializes.
func (w ScoringWeights) IsZero() bool {
	return w.Sum() == 0
}

// CandidateProfile is the validated profile handed to the core by the
// profile-setup layer.
type CandidateProfile struct {
	SchemaVersion int `json:"schema_version" mapstructure:"schema_version"`

	Name            string         `json:"name" mapstructure:"name"`
	YearsExperience int            `json:"years_experience" mapstructure:"years_experience"`
	Level           SeniorityLevel `json:"level" mapstructure:"level"`

	TargetTitles    []string `json:"target_titles" mapstructure:"target_titles"`
	CoreSkills      []string `json:"core_skills" mapstructure:"core_skills"`
	SecondarySkills []string `json:"secondary_skills" mapstructure:"secondary_skills"`
	Location        string   `json:"location" mapstructure:"location"`
	Arrangement     string   `json:"arrangement" mapstructure:"arrangement"`
	DomainExpertise []string `json:"domain_expertise" mapstructure:"domain_expertise"`
	CompFloor       float64  `json:"comp_floor" mapstructure:"comp_floor"`

	Dealbreakers []string `json:"dealbreakers" mapstructure:"dealbreakers"`

	ScoringWeights     ScoringWeights     `json:"scoring_weights" mapstructure:"scoring_weights"`
	StaffingPreference StaffingPreference `json:"staffing_preference" mapstructure:"staffing_preference"`
}

// Validate enforces the structural invariants the core depends on. A profile
// that fails validation is the one condition that prevents a run entirely.
func (p *CandidateProfile) Validate() error {
	if p == nil {
		return errors.New("profile is nil")
	}
	if len(p.TargetTitles) == 0 {
		return errors.New("profile has no target titles")
	}
	for i, t := range p.TargetTitles {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("target title %d is blank", i)
		}
	}
	if p.YearsExperience < 0 {
		return fmt.Errorf("years_experience %d is negative", p.YearsExperience)
	}
	switch p.StaffingPreference {
	case StaffingBoost, StaffingNeutral, StaffingPenalize:
	default:
		return fmt.Errorf("unknown staffing_preference %q", p.StaffingPreference)
	}
	if err := p.ScoringWeights.Validate(); err != nil {
		return fmt.Errorf("scoring_weights: %w", err)
	}
	return nil
}

// LevelRank maps a seniority level to its ordinal position. Unknown levels
// rank as mid.
func LevelRank(level SeniorityLevel) int {
	switch level {
	case LevelJunior:
		return 0
	case LevelMid:
		return 1
	case LevelSenior:
		return 2
	case LevelStaff:
		return 3
	case LevelPrincipal:
		return 4
	case LevelExecutive:
		return 5
	default:
		return 1
	}
}

// WeightsOrDefault returns the profile weights when valid, otherwise the
// legacy defaults. It never fails; the scorer's last-resort per-component
// constants cover the remaining (unreachable) gap.
func (p *CandidateProfile) WeightsOrDefault() ScoringWeights {
	if p == nil || p.ScoringWeights.IsZero() {
		return DefaultWeights()
	}
	if err := p.ScoringWeights.Validate(); err != nil {
		return DefaultWeights()
	}
	return p.ScoringWeights
}

// NearlyEqual compares floats with the tolerance used in weight checks.
func NearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
