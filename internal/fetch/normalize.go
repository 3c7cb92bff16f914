package fetch

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seekwell/jobscout/internal/model"
)

// DescriptionCap bounds stored description length after HTML stripping.
const DescriptionCap = 2000

var whitespaceRe = regexp.MustCompile(`\s+`)

// StripHTML reduces an HTML fragment to collapsed plain text, capped at
// DescriptionCap runes. Unparseable input falls back to a tag-blind trim of
// the raw string.
func StripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	var text string
	if err != nil {
		text = fragment
	} else {
		doc.Find("script, style").Remove()
		text = doc.Text()
	}
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	runes := []rune(text)
	if len(runes) > DescriptionCap {
		text = string(runes[:DescriptionCap])
	}
	return text
}

// stateAbbrevs maps lowercased US state names to their postal codes, plus
// identity entries for codes already in postal form.
var stateAbbrevs = buildStateAbbrevs()

func buildStateAbbrevs() map[string]string {
	names := map[string]string{
		"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
		"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
		"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
		"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
		"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
		"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
		"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
		"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
		"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
		"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
		"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
		"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
		"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
	}
	for _, code := range names {
		names[strings.ToLower(code)] = code
	}
	return names
}

// NormalizeLocation renders a raw location string as "City, ST" when a
// confident parse exists; otherwise it returns the trimmed input unchanged.
func NormalizeLocation(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.EqualFold(trimmed, "remote") {
		return "Remote"
	}

	parts := strings.Split(trimmed, ",")
	if len(parts) < 2 {
		return trimmed
	}
	city := strings.TrimSpace(parts[0])
	region := strings.TrimSpace(parts[1])
	if city == "" || region == "" {
		return trimmed
	}
	code, ok := stateAbbrevs[strings.ToLower(region)]
	if !ok {
		return trimmed
	}
	return city + ", " + code
}

var (
	remoteRe = regexp.MustCompile(`(?i)\b(fully[- ]remote|remote[- ]first|100% remote|work from home|remote)\b`)
	hybridRe = regexp.MustCompile(`(?i)\bhybrid\b`)
	onsiteRe = regexp.MustCompile(`(?i)\b(on[- ]?site|in[- ]office|in[- ]person)\b`)
)

// InferArrangement detects the work arrangement from posting text. Sources
// with an explicit API flag should prefer the flag and only fall back here.
func InferArrangement(title, description string) model.Arrangement {
	text := title + " " + description
	switch {
	case hybridRe.MatchString(text):
		return model.ArrangementHybrid
	case remoteRe.MatchString(text):
		return model.ArrangementRemote
	case onsiteRe.MatchString(text):
		return model.ArrangementOnsite
	default:
		return model.ArrangementUnknown
	}
}

// BuildSalary assembles a Salary from numeric bounds, treating zero bounds
// as unspecified.
func BuildSalary(min, max float64, currency, period string) model.Salary {
	if min <= 0 && max <= 0 {
		return model.Salary{}
	}
	if currency == "" {
		currency = "USD"
	}
	if period == "" {
		period = "year"
	}
	return model.Salary{Specified: true, Min: min, Max: max, Currency: currency, Period: period}
}
