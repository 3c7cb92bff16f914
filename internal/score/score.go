package score

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/seekwell/jobscout/internal/model"
	"github.com/seekwell/jobscout/internal/profile"
)

// Component names used as keys in ScoreResult.Components.
const (
	ComponentSkills    = "skills"
	ComponentTitle     = "title"
	ComponentSeniority = "seniority"
	ComponentLocation  = "location"
	ComponentDomain    = "domain"
	ComponentResponse  = "response"
)

// Last-resort per-component weights, used only if both the profile weights
// and the profile defaults are unavailable. They mirror the legacy formula.
var hardcodedWeights = map[string]float64{
	ComponentSkills:    0.30,
	ComponentTitle:     0.20,
	ComponentSeniority: 0.15,
	ComponentLocation:  0.15,
	ComponentDomain:    0.10,
	ComponentResponse:  0.10,
}

const (
	overallMin = 1.0
	overallMax = 5.0
)

// Scorer rates postings against one profile. Construct once per run; the
// profile's keyword sets are pre-tokenized here.
type Scorer struct {
	profile *profile.CandidateProfile
	weights profile.ScoringWeights
	now     func() time.Time
}

// New builds a Scorer. Invalid or missing profile weights silently fall
// back to the legacy defaults; validation rejecting bad weights at save
// time is the loud path.
func New(p *profile.CandidateProfile) *Scorer {
	return &Scorer{
		profile: p,
		weights: p.WeightsOrDefault(),
		now:     time.Now,
	}
}

// Score rates a single posting. Dealbreakers short-circuit to 0.0; the
// staffing adjustment is applied exactly once, after the weighted sum.
func (s *Scorer) Score(posting model.JobPosting) model.ScoreResult {
	if phrase, hit := s.dealbreaker(posting); hit {
		return model.ScoreResult{
			Overall:        0.0,
			Recommendation: "dealbreaker",
			Dealbreaker:    fmt.Sprintf("matched dealbreaker phrase %q", phrase),
		}
	}

	tokens := tokenize(posting.Text())
	components := map[string]float64{
		ComponentSkills:    s.scoreSkills(posting, tokens),
		ComponentTitle:     s.scoreTitle(posting),
		ComponentSeniority: s.scoreSeniority(posting),
		ComponentLocation:  s.scoreLocation(posting),
		ComponentDomain:    s.scoreDomain(posting, tokens),
		ComponentResponse:  s.scoreResponse(posting),
	}

	overall := s.weightedSum(components)
	overall = clamp(overall, overallMin, overallMax)
	overall = s.applyStaffingAdjustment(posting, overall)
	overall = roundTenth(overall)

	return model.ScoreResult{
		Overall:        overall,
		Components:     components,
		Recommendation: recommendation(overall),
	}
}

func (s *Scorer) dealbreaker(posting model.JobPosting) (string, bool) {
	text := posting.Text()
	for _, phrase := range s.profile.Dealbreakers {
		if containsPhrase(text, phrase) {
			return phrase, true
		}
	}
	return "", false
}

func (s *Scorer) weightedSum(components map[string]float64) float64 {
	w := map[string]float64{
		ComponentSkills:    s.weights.Skills,
		ComponentTitle:     s.weights.Title,
		ComponentSeniority: s.weights.Seniority,
		ComponentLocation:  s.weights.Location,
		ComponentDomain:    s.weights.Domain,
		ComponentResponse:  s.weights.Response,
	}
	var sum float64
	for name, sub := range components {
		weight := w[name]
		if weight <= 0 {
			weight = hardcodedWeights[name]
		}
		sum += sub * weight
	}
	return sum
}

// applyStaffingAdjustment nudges the overall score for staffing-firm
// employers per the profile preference. It must never run more than once
// per posting and never inside a component subscore.
func (s *Scorer) applyStaffingAdjustment(posting model.JobPosting, overall float64) float64 {
	if !IsStaffingFirm(posting.Company) {
		return overall
	}
	switch s.profile.StaffingPreference {
	case profile.StaffingBoost:
		return math.Min(overall+staffingBoostDelta, overallMax)
	case profile.StaffingPenalize:
		return math.Max(overall+staffingPenalizeDelta, overallMin)
	default:
		return overall
	}
}

// scoreSkills weighs core skills at 70% and secondary at 30% of the
// subscore. With no skills configured the component sits at the neutral
// midpoint.
func (s *Scorer) scoreSkills(posting model.JobPosting, tokens map[string]bool) float64 {
	core := s.profile.CoreSkills
	secondary := s.profile.SecondarySkills
	if len(core) == 0 && len(secondary) == 0 {
		return 2.5
	}
	text := posting.Text()
	var sub float64
	switch {
	case len(core) == 0:
		sub = hitRate(secondary, tokens, text)
	case len(secondary) == 0:
		sub = hitRate(core, tokens, text)
	default:
		sub = 0.7*hitRate(core, tokens, text) + 0.3*hitRate(secondary, tokens, text)
	}
	return sub * 5.0
}

// scoreTitle takes the best token-overlap against any target title.
func (s *Scorer) scoreTitle(posting model.JobPosting) float64 {
	postingTitle := strings.ToLower(posting.Title)
	postingTokens := tokenize(posting.Title)

	var best float64
	for _, target := range s.profile.TargetTitles {
		if strings.Contains(postingTitle, strings.ToLower(strings.TrimSpace(target))) {
			return 5.0
		}
		targetTokens := tokenize(target)
		if len(targetTokens) == 0 {
			continue
		}
		hits := 0
		for tok := range targetTokens {
			if postingTokens[tok] {
				hits++
			}
		}
		if frac := float64(hits) / float64(len(targetTokens)); frac > best {
			best = frac
		}
	}
	return best * 5.0
}

// titleLevels maps title markers to seniority ranks for distance scoring.
var titleLevels = []struct {
	marker string
	level  profile.SeniorityLevel
}{
	{"principal", profile.LevelPrincipal},
	{"staff", profile.LevelStaff},
	{"senior", profile.LevelSenior},
	{"sr.", profile.LevelSenior},
	{"sr ", profile.LevelSenior},
	{"lead", profile.LevelStaff},
	{"director", profile.LevelExecutive},
	{"vp ", profile.LevelExecutive},
	{"head of", profile.LevelExecutive},
	{"junior", profile.LevelJunior},
	{"jr.", profile.LevelJunior},
	{"jr ", profile.LevelJunior},
	{"entry", profile.LevelJunior},
	{"intern", profile.LevelJunior},
}

// scoreSeniority penalizes each step of level distance by 1.5 points.
// Postings with no detectable level sit at the neutral midpoint.
func (s *Scorer) scoreSeniority(posting model.JobPosting) float64 {
	title := strings.ToLower(posting.Title)
	detected := profile.SeniorityLevel("")
	for _, tl := range titleLevels {
		if strings.Contains(title, tl.marker) {
			detected = tl.level
			break
		}
	}
	if detected == "" {
		return 3.0
	}
	distance := math.Abs(float64(profile.LevelRank(detected) - profile.LevelRank(s.profile.Level)))
	return clamp(5.0-1.5*distance, 0, 5)
}

// scoreLocation rates arrangement compatibility first, then geography.
func (s *Scorer) scoreLocation(posting model.JobPosting) float64 {
	wantRemote := strings.EqualFold(s.profile.Arrangement, "remote")
	if wantRemote {
		switch posting.Arrangement {
		case model.ArrangementRemote:
			return 5.0
		case model.ArrangementHybrid:
			return 2.5
		case model.ArrangementOnsite:
			return 1.0
		default:
			return 3.0
		}
	}

	if posting.Arrangement == model.ArrangementRemote {
		// Remote still works for an office-preferring candidate.
		return 4.0
	}
	want := strings.ToLower(strings.TrimSpace(s.profile.Location))
	got := strings.ToLower(strings.TrimSpace(posting.Location))
	switch {
	case want == "" || got == "":
		return 3.0
	case got == want:
		return 5.0
	case sameState(want, got):
		return 3.5
	default:
		return 1.5
	}
}

func sameState(a, b string) bool {
	stateOf := func(loc string) string {
		parts := strings.Split(loc, ",")
		if len(parts) < 2 {
			return ""
		}
		return strings.TrimSpace(parts[len(parts)-1])
	}
	sa, sb := stateOf(a), stateOf(b)
	return sa != "" && sa == sb
}

// scoreDomain measures overlap with the profile's domain expertise.
func (s *Scorer) scoreDomain(posting model.JobPosting, tokens map[string]bool) float64 {
	if len(s.profile.DomainExpertise) == 0 {
		return 2.5
	}
	return hitRate(s.profile.DomainExpertise, tokens, posting.Text()) * 5.0
}

// scoreResponse is a heuristic for how likely an application gets a
// response: fresher and more specific postings score higher.
func (s *Scorer) scoreResponse(posting model.JobPosting) float64 {
	sub := 0.0

	// Freshness: up to 3 points.
	if !posting.DatePosted.IsZero() {
		age := s.now().Sub(posting.DatePosted)
		switch {
		case age <= 3*24*time.Hour:
			sub += 3.0
		case age <= 7*24*time.Hour:
			sub += 2.0
		case age <= 30*24*time.Hour:
			sub += 1.0
		}
	}

	// Specificity: up to 2 points.
	if posting.Salary.Specified {
		sub += 1.0
	}
	if len(posting.Description) >= 500 {
		sub += 1.0
	} else if len(posting.Description) >= 150 {
		sub += 0.5
	}
	return clamp(sub, 0, 5)
}

func recommendation(overall float64) string {
	switch {
	case overall >= 4.5:
		return "excellent match"
	case overall >= 3.5:
		return "strong match"
	case overall >= 2.5:
		return "possible match"
	case overall > 0:
		return "weak match"
	default:
		return "dealbreaker"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// roundTenth rounds half away from zero to one decimal, matching the
// legacy report format.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
