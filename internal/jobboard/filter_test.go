package jobboard

import (
	"testing"
	"time"

	"github.com/mmcdole/elevate/internal/domain"
	"github.com/stretchr/testify/assert"
)

func sampleJobs() []domain.Job {
	return []domain.Job{
		{ID: "1", Title: "Frontend Developer", CompanyName: "TechNova Solutions", Location: "Bangalore, India", JobType: "full-time", Mode: "hybrid"},
		{ID: "2", Title: "Backend Engineer", CompanyName: "Acme", Location: "Remote, USA", JobType: "contract", Mode: "remote"},
		{ID: "3", Title: "Data Intern", CompanyName: "Numbers Inc", Location: "New York, NY", JobType: "internship", Mode: "onsite"},
		{ID: "4", Title: "Senior Frontend Engineer", CompanyName: "Acme", Location: "Remote, Canada", JobType: "Full Time", Mode: "remote"},
	}
}

func jobIDs(jobs []domain.Job) []domain.ID {
	out := make([]domain.ID, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	jobs := sampleJobs()

	tests := []struct {
		name   string
		filter Filter
		want   []domain.ID
	}{
		{"zero", Filter{}, []domain.ID{"1", "2", "3", "4"}},
		{"location substring", Filter{Location: "remote"}, []domain.ID{"2", "4"}},
		{"types any-of", Filter{Types: []string{"Full-time", "internship"}}, []domain.ID{"1", "3", "4"}},
		{"mode", Filter{Mode: "Remote"}, []domain.ID{"2", "4"}},
		{"combined", Filter{Location: "remote", Types: []string{"contract"}}, []domain.ID{"2"}},
		{"keyword drops non-matches", Filter{Keyword: "frontend"}, []domain.ID{"1", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, jobIDs(tt.filter.Apply(jobs)))
		})
	}
}

func TestFilter_KeywordRanksCloserMatchFirst(t *testing.T) {
	got := Filter{Keyword: "frontend developer"}.Apply(sampleJobs())
	assert.Equal(t, []domain.ID{"1"}, jobIDs(got))

	got = Filter{Keyword: "acme"}.Apply(sampleJobs())
	assert.Equal(t, []domain.ID{"2", "4"}, jobIDs(got), "shorter target ranks first")
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Full Time", JobTypeLabel("full-time"))
	assert.Equal(t, "Full Time", JobTypeLabel("Full Time"))
	assert.Equal(t, "Internship", JobTypeLabel("internship"))
	assert.Equal(t, "freelance", JobTypeLabel("freelance"))

	assert.Equal(t, "On-site", ModeLabel("onsite"))
	assert.Equal(t, "Hybrid", ModeLabel("Hybrid"))
	assert.Equal(t, "space", ModeLabel("space"))
}

func TestPostedAgo(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{time.Hour, "Today"},
		{25 * time.Hour, "Yesterday"},
		{3 * 24 * time.Hour, "3 days ago"},
		{15 * 24 * time.Hour, "2 weeks ago"},
		{-time.Hour, "Today"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PostedAgo(now.Add(-tt.ago), now))
	}

	old := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	assert.Contains(t, PostedAgo(old, now), "2025")
	assert.Empty(t, PostedAgo(time.Time{}, now))
}
