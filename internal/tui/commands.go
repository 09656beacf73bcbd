package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/mmcdole/elevate/internal/progress"
)

// CourseService is the catalog surface the TUI reads (consumer-defined interface)
type CourseService interface {
	Courses(ctx context.Context) ([]domain.Course, error)
	RefreshCourses(ctx context.Context) ([]domain.Course, error)
	PeekCourse(id domain.ID) (domain.Course, bool)
	Course(ctx context.Context, id domain.ID) cache.Result[domain.Course]
}

// JobService is the job-board surface the TUI reads and mutates
type JobService interface {
	Jobs(ctx context.Context) ([]domain.Job, error)
	RefreshJobs(ctx context.Context) ([]domain.Job, error)
	Saved(ctx context.Context) ([]domain.SavedJob, error)
	RefreshSaved(ctx context.Context) ([]domain.SavedJob, error)
	Toggle(ctx context.Context, id domain.ID) (bool, error)
}

// ProgressService serves progress records and accepts completions
type ProgressService interface {
	progress.Reporter
	All(ctx context.Context) ([]domain.CourseProgress, error)
	Refresh(ctx context.Context) ([]domain.CourseProgress, error)
}

// VideoPlayer plays a lesson and streams watch time
type VideoPlayer interface {
	Play(ctx context.Context, lesson domain.Lesson) (<-chan domain.Telemetry, error)
}

func loadCourses(ctx context.Context, s CourseService, force bool) tea.Cmd {
	return func() tea.Msg {
		var courses []domain.Course
		var err error
		if force {
			courses, err = s.RefreshCourses(ctx)
		} else {
			courses, err = s.Courses(ctx)
		}
		return CoursesLoadedMsg{Courses: courses, Err: err}
	}
}

func loadJobs(ctx context.Context, s JobService, force bool) tea.Cmd {
	return func() tea.Msg {
		var jobs []domain.Job
		var err error
		if force {
			jobs, err = s.RefreshJobs(ctx)
		} else {
			jobs, err = s.Jobs(ctx)
		}
		return JobsLoadedMsg{Jobs: jobs, Err: err}
	}
}

func loadSaved(ctx context.Context, s JobService, force bool) tea.Cmd {
	return func() tea.Msg {
		var saved []domain.SavedJob
		var err error
		if force {
			saved, err = s.RefreshSaved(ctx)
		} else {
			saved, err = s.Saved(ctx)
		}
		return SavedLoadedMsg{Saved: saved, Err: err}
	}
}

func loadProgress(ctx context.Context, s ProgressService, force bool) tea.Cmd {
	return func() tea.Msg {
		var records []domain.CourseProgress
		var err error
		if force {
			records, err = s.Refresh(ctx)
		} else {
			records, err = s.All(ctx)
		}
		return ProgressLoadedMsg{Records: records, Err: err}
	}
}

func loadCourse(ctx context.Context, cs CourseService, ps ProgressService, gen int, id domain.ID) tea.Cmd {
	return func() tea.Msg {
		msg := CourseLoadedMsg{Gen: gen, Result: cs.Course(ctx, id)}
		// progress is optional; a failure leaves the course at its first lesson
		if records, err := ps.All(ctx); err == nil {
			for _, r := range records {
				if r.CourseID == id {
					msg.Record, msg.HasRecord = r, true
					break
				}
			}
		}
		return msg
	}
}

func toggleSave(ctx context.Context, s JobService, id domain.ID) tea.Cmd {
	return func() tea.Msg {
		saved, err := s.Toggle(ctx, id)
		return SaveToggledMsg{JobID: id, Saved: saved, Err: err}
	}
}

func startPlayback(ctx context.Context, p VideoPlayer, gen int, lesson domain.Lesson) tea.Cmd {
	return func() tea.Msg {
		ch, err := p.Play(ctx, lesson)
		return PlaybackStartedMsg{Gen: gen, Lesson: lesson, Telemetry: ch, Err: err}
	}
}

// observeTelemetry waits for the next sample and applies it to the engine.
// The report to the server happens here, off the update loop.
func observeTelemetry(ctx context.Context, e *progress.Engine, gen int, ch <-chan domain.Telemetry) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return PlaybackEndedMsg{Gen: gen}
		}
		tr := e.Observe(ctx, ev)
		return LessonProgressMsg{Gen: gen, Transition: tr, Telemetry: ch, Percent: ev.Percent}
	}
}

func retryReport(ctx context.Context, e *progress.Engine, gen int) tea.Cmd {
	return func() tea.Msg {
		return RetriedMsg{Gen: gen, Err: e.Retry(ctx)}
	}
}

// drainTelemetry consumes the rest of a stream whose view was closed so the
// player poller can finish.
func drainTelemetry(ch <-chan domain.Telemetry) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		for range ch {
		}
		return nil
	}
}
