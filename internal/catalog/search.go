package catalog

import (
	"strings"

	"github.com/mmcdole/elevate/internal/domain"
	"github.com/sahilm/fuzzy"
)

// Match is a search hit with the title positions that matched, for highlighting.
type Match struct {
	Course         domain.Course
	MatchedIndexes []int
}

// titleIndex implements fuzzy.Source over lowercased course titles.
type titleIndex struct {
	courses     []domain.Course
	lowerTitles []string
}

func newTitleIndex(courses []domain.Course) *titleIndex {
	idx := &titleIndex{courses: courses, lowerTitles: make([]string, len(courses))}
	for i, c := range courses {
		idx.lowerTitles[i] = strings.ToLower(c.Title)
	}
	return idx
}

func (idx *titleIndex) String(i int) string { return idx.lowerTitles[i] }
func (idx *titleIndex) Len() int            { return len(idx.courses) }

// Search ranks courses by fuzzy title match, best first. An empty query
// returns every course unranked.
func Search(courses []domain.Course, query string) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Match, len(courses))
		for i, c := range courses {
			out[i] = Match{Course: c}
		}
		return out
	}

	matches := fuzzy.FindFrom(query, newTitleIndex(courses))
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = Match{Course: courses[m.Index], MatchedIndexes: m.MatchedIndexes}
	}
	return out
}
