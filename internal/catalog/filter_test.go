package catalog

import (
	"testing"

	"github.com/mmcdole/elevate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCourses() []domain.Course {
	return []domain.Course{
		{ID: "1", Title: "Web Development Bootcamp", Category: "Web Development", Language: "English", Price: 99, Discount: 15},
		{ID: "2", Title: "Data Science Fundamentals", Category: "Data Science", Difficulty: "Intermediate", Language: "English", Price: 79},
		{ID: "3", Title: "UX Design Principles", Category: "Design", Difficulty: "Beginner", Language: "English", Price: 0},
		{ID: "4", Title: "Full Stack Web Development", Category: "web development", Language: "Spanish", Price: 199.99, Discount: 20},
	}
}

func ids(courses []domain.Course) []domain.ID {
	out := make([]domain.ID, len(courses))
	for i, c := range courses {
		out[i] = c.ID
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	courses := sampleCourses()

	tests := []struct {
		name   string
		filter Filter
		want   []domain.ID
	}{
		{"zero", Filter{}, []domain.ID{"1", "2", "3", "4"}},
		{"category ignores case", Filter{Category: "Web Development"}, []domain.ID{"1", "4"}},
		{"difficulty", Filter{Difficulty: "beginner"}, []domain.ID{"3"}},
		{"language", Filter{Language: "Spanish"}, []domain.ID{"4"}},
		{"free", Filter{Price: PriceFree}, []domain.ID{"3"}},
		{"paid", Filter{Price: PricePaid}, []domain.ID{"1", "2", "4"}},
		{"combined", Filter{Category: "web development", Language: "English", Price: PricePaid}, []domain.ID{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(courses)))
		})
	}
}

func TestParsePriceFilter(t *testing.T) {
	p, ok := ParsePriceFilter("Free")
	assert.True(t, ok)
	assert.Equal(t, PriceFree, p)

	_, ok = ParsePriceFilter("cheap")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	courses := sampleCourses()

	matches := Search(courses, "webdev")
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.Contains(t, []domain.ID{"1", "4"}, m.Course.ID)
		assert.NotEmpty(t, m.MatchedIndexes)
	}

	assert.Empty(t, Search(courses, "zzzz"))
	assert.Len(t, Search(courses, "  "), len(courses))
}
