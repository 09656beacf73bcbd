package catalog

import (
	"strings"

	"github.com/mmcdole/elevate/internal/domain"
)

// PriceFilter narrows courses by cost.
type PriceFilter string

const (
	PriceAny  PriceFilter = ""
	PriceFree PriceFilter = "free"
	PricePaid PriceFilter = "paid"
)

// ParsePriceFilter accepts "free", "paid" or empty, in any case.
func ParsePriceFilter(s string) (PriceFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriceAny, true
	case "free":
		return PriceFree, true
	case "paid":
		return PricePaid, true
	}
	return PriceAny, false
}

// Filter selects courses. Empty fields match everything; text fields compare
// case-insensitively.
type Filter struct {
	Category   string
	Difficulty string
	Language   string
	Price      PriceFilter
}

// IsZero reports whether the filter matches every course.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether c passes every set criterion.
func (f Filter) Match(c domain.Course) bool {
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(c.Category), strings.TrimSpace(f.Category)) {
		return false
	}
	if f.Difficulty != "" && !strings.EqualFold(c.Difficulty, f.Difficulty) {
		return false
	}
	if f.Language != "" && !strings.EqualFold(c.Language, f.Language) {
		return false
	}
	switch f.Price {
	case PriceFree:
		return c.IsFree()
	case PricePaid:
		return !c.IsFree()
	}
	return true
}

// Apply returns the courses that match, in their original order.
func (f Filter) Apply(courses []domain.Course) []domain.Course {
	if f.IsZero() {
		return courses
	}
	out := make([]domain.Course, 0, len(courses))
	for _, c := range courses {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}
