// Package dedup removes cross-source duplicate postings in two stages:
// exact key matching, then fuzzy similarity within company-keyed blocks.
// Input order is phase order, so on any collision the earlier (more
// authoritative) posting wins and absorbs the loser's source attribution.
package dedup

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/model"
)

// Threshold is the fuzzy similarity at or above which two postings are
// duplicates. Similarity is pinned to normalized Levenshtein over the
// concatenated title|company|location string; changing the algorithm
// changes outcomes even at the same nominal threshold.
const Threshold = 0.85

// Stats summarizes one dedup pass.
type Stats struct {
	Examined     int
	ExactDropped int
	FuzzyDropped int
}

// Kept returns how many postings survived.
func (s Stats) Kept() int {
	return s.Examined - s.ExactDropped - s.FuzzyDropped
}

// Run deduplicates postings, preserving input order among survivors. The
// kept posting records which other sources carried the duplicate.
func Run(postings []model.JobPosting, logger *zap.Logger) ([]model.JobPosting, Stats) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := Stats{Examined: len(postings)}

	// Stage 1: exact keys. Postings are indexed on ingestion; the index
	// into kept is stable and later stages refer to postings by it.
	kept := make([]model.JobPosting, 0, len(postings))
	byURL := make(map[string]int, len(postings))
	byTuple := make(map[string]int, len(postings))

	for _, p := range postings {
		urlKey := NormalizeURL(p.URL)
		tupleKey := tupleKey(p)

		if idx, ok := byURL[urlKey]; ok {
			absorb(&kept[idx], p)
			stats.ExactDropped++
			continue
		}
		if idx, ok := byTuple[tupleKey]; ok {
			absorb(&kept[idx], p)
			stats.ExactDropped++
			continue
		}
		kept = append(kept, p)
		byURL[urlKey] = len(kept) - 1
		byTuple[tupleKey] = len(kept) - 1
	}

	// Stage 2: fuzzy, blocked by normalized company so comparisons stay
	// near-linear. Unblocked all-pairs comparison would be quadratic in
	// the whole run.
	blocks := make(map[string][]int)
	for idx, p := range kept {
		key := normalizeField(p.Company)
		blocks[key] = append(blocks[key], idx)
	}

	dropped := make([]bool, len(kept))
	for _, block := range blocks {
		for i := 0; i < len(block); i++ {
			if dropped[block[i]] {
				continue
			}
			for j := i + 1; j < len(block); j++ {
				if dropped[block[j]] {
					continue
				}
				a, b := &kept[block[i]], &kept[block[j]]
				sim := Similarity(fingerprintText(*a), fingerprintText(*b))
				if sim < Threshold {
					continue
				}
				absorb(a, *b)
				dropped[block[j]] = true
				stats.FuzzyDropped++
				logger.Debug("fuzzy duplicate dropped",
					zap.String("kept_url", a.URL),
					zap.String("dropped_url", b.URL),
					zap.Float64("similarity", sim),
				)
			}
		}
	}

	out := make([]model.JobPosting, 0, len(kept))
	for idx, p := range kept {
		if !dropped[idx] {
			out = append(out, p)
		}
	}
	return out, stats
}

// absorb records the dropped posting's source on the kept one.
func absorb(kept *model.JobPosting, dropped model.JobPosting) {
	if dropped.Source == kept.Source {
		return
	}
	for _, s := range kept.SeenSources {
		if s == dropped.Source {
			return
		}
	}
	kept.SeenSources = append(kept.SeenSources, dropped.Source)
}

// Similarity is normalized Levenshtein: 1 - distance/maxLen, in [0, 1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

func fingerprintText(p model.JobPosting) string {
	return normalizeField(p.Title) + "|" + normalizeField(p.Company) + "|" + normalizeField(p.Location)
}

var spaceCollapser = strings.NewReplacer("\t", " ", "\n", " ")

func normalizeField(s string) string {
	s = strings.ToLower(strings.TrimSpace(spaceCollapser.Replace(s)))
	return strings.Join(strings.Fields(s), " ")
}

func tupleKey(p model.JobPosting) string {
	return normalizeField(p.Title) + "\x00" + normalizeField(p.Company) + "\x00" + normalizeField(p.Location)
}

// trackingParams are query parameters stripped during URL normalization;
// they vary per referral without changing the underlying posting.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "ref": true, "source": true,
	"src": true, "gh_src": true,
}

// NormalizeURL canonicalizes a posting URL for exact matching: lowercased
// host, no scheme, no www prefix, tracking parameters and fragment
// removed, remaining parameters sorted, no trailing slash.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	if frag := strings.IndexByte(s, '#'); frag >= 0 {
		s = s[:frag]
	}

	host := s
	rest := ""
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		host, rest = s[:slash], s[slash:]
	}
	host = strings.ToLower(strings.TrimPrefix(strings.ToLower(host), "www."))

	path := rest
	query := ""
	if qm := strings.IndexByte(rest, '?'); qm >= 0 {
		path, query = rest[:qm], rest[qm+1:]
	}

	var keptParams []string
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if eq := strings.IndexByte(pair, '='); eq >= 0 {
			key = pair[:eq]
		}
		if !trackingParams[strings.ToLower(key)] {
			keptParams = append(keptParams, pair)
		}
	}

	out := host + strings.TrimSuffix(path, "/")
	if len(keptParams) > 0 {
		// Parameter order varies per referral; sort for a canonical key.
		sort.Strings(keptParams)
		out += "?" + strings.Join(keptParams, "&")
	}
	return out
}
