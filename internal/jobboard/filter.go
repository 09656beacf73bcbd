package jobboard

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/elevate/internal/domain"
)

// Filter selects job postings. Empty fields match everything.
type Filter struct {
	Location string   // case-insensitive substring
	Types    []string // any-of, e.g. "full-time", "Internship"
	Mode     string   // remote, hybrid, onsite
	Keyword  string   // fuzzy over title and company, ranks the result
}

// Match reports whether j passes the location, type and mode criteria.
func (f Filter) Match(j domain.Job) bool {
	if loc := strings.TrimSpace(f.Location); loc != "" &&
		!strings.Contains(strings.ToLower(j.Location), strings.ToLower(loc)) {
		return false
	}
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if normalizeType(t) == normalizeType(j.JobType) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Mode != "" && normalizeType(f.Mode) != normalizeType(j.Mode) {
		return false
	}
	return true
}

// Apply filters jobs. With a keyword the survivors are ranked by match
// distance and non-matching postings are dropped; otherwise order is kept.
func (f Filter) Apply(jobs []domain.Job) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if f.Match(j) {
			out = append(out, j)
		}
	}
	if strings.TrimSpace(f.Keyword) == "" {
		return out
	}
	return rankByKeyword(out, f.Keyword)
}

func rankByKeyword(jobs []domain.Job, keyword string) []domain.Job {
	keyword = strings.TrimSpace(keyword)
	targets := make([]string, len(jobs))
	for i, j := range jobs {
		targets[i] = j.Title + " " + j.CompanyName
	}

	ranks := fuzzy.RankFindNormalizedFold(keyword, targets)
	sort.Stable(ranks)

	out := make([]domain.Job, len(ranks))
	for i, r := range ranks {
		out[i] = jobs[r.OriginalIndex]
	}
	return out
}

// normalizeType folds "Full-time", "full time" and "FULL_TIME" together.
func normalizeType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(s)
}
