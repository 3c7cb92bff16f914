package score

import "strings"

// Staffing adjustment deltas, applied exactly once after the weighted sum.
const (
	staffingBoostDelta    = 0.5
	staffingPenalizeDelta = -1.0
)

// staffingKeywords flag employers that are staffing or recruiting firms
// rather than the hiring company itself.
var staffingKeywords = []string{
	"staffing",
	"recruiting",
	"recruitment",
	"talent",
	"consulting",
	"consultancy",
	"agency",
	"placement",
	"headhunt",
	"solutions group",
}

// knownStaffingFirms lists large firms whose names carry no telltale
// keyword.
var knownStaffingFirms = map[string]bool{
	"robert half":        true,
	"randstad":           true,
	"adecco":             true,
	"manpower":           true,
	"manpowergroup":      true,
	"kelly services":     true,
	"aerotek":            true,
	"teksystems":         true,
	"insight global":     true,
	"kforce":             true,
	"cybercoders":        true,
	"jobot":              true,
	"motion recruitment": true,
	"apex systems":       true,
}

// IsStaffingFirm reports whether the employer looks like a staffing or
// recruiting firm.
func IsStaffingFirm(company string) bool {
	name := strings.ToLower(strings.TrimSpace(company))
	if name == "" {
		return false
	}
	if knownStaffingFirms[name] {
		return true
	}
	for _, kw := range staffingKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
