package tui

import (
	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/mmcdole/elevate/internal/progress"
)

// Message types for the TUI

// CoursesLoadedMsg carries the course list
type CoursesLoadedMsg struct {
	Courses []domain.Course
	Err     error
}

// JobsLoadedMsg carries the job list
type JobsLoadedMsg struct {
	Jobs []domain.Job
	Err  error
}

// SavedLoadedMsg carries the saved-job set
type SavedLoadedMsg struct {
	Saved []domain.SavedJob
	Err   error
}

// ProgressLoadedMsg carries every progress record
type ProgressLoadedMsg struct {
	Records []domain.CourseProgress
	Err     error
}

// CourseLoadedMsg carries a course detail. Gen identifies the course view
// that asked for it; replies for a view that was closed are dropped.
type CourseLoadedMsg struct {
	Gen       int
	Result    cache.Result[domain.Course]
	Record    domain.CourseProgress
	HasRecord bool
}

// SaveToggledMsg reports the outcome of a save/unsave.
type SaveToggledMsg struct {
	JobID domain.ID
	Saved bool
	Err   error
}

// PlaybackStartedMsg signals that the player launched
type PlaybackStartedMsg struct {
	Gen       int
	Lesson    domain.Lesson
	Telemetry <-chan domain.Telemetry
	Err       error
}

// LessonProgressMsg is the effect of one telemetry sample
type LessonProgressMsg struct {
	Gen        int
	Transition progress.Transition
	Telemetry  <-chan domain.Telemetry
	Percent    float64
}

// PlaybackEndedMsg signals that the telemetry stream closed
type PlaybackEndedMsg struct {
	Gen int
}

// RetriedMsg reports a resend of a failed progress report
type RetriedMsg struct {
	Gen int
	Err error
}
