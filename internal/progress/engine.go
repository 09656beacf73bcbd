package progress

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/mmcdole/elevate/internal/domain"
)

// Reporter persists a lesson completion.
type Reporter interface {
	Record(ctx context.Context, update domain.ProgressUpdate) error
}

// FailurePolicy decides what happens to a local unlock when its report fails.
type FailurePolicy int

const (
	// KeepTentative leaves the lesson unlocked locally; Retry can resend.
	KeepTentative FailurePolicy = iota
	// RollbackOnFailure re-locks the lesson; it can qualify again in the next
	// viewing session.
	RollbackOnFailure
)

// Option configures an Engine.
type Option func(*Engine)

// WithRollback re-locks a lesson whose completion could not be reported.
func WithRollback() Option {
	return func(e *Engine) { e.policy = RollbackOnFailure }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Transition describes the effect of one telemetry event.
type Transition struct {
	Advanced   bool // a lesson was unlocked
	RolledBack bool // the unlock was reverted after a failed report
	Index      int  // flattened index of the lesson the event concerned, -1 if unknown
	Unlocked   int  // unlocked index after the event
	Percent    int  // course progress percentage reported
	Err        error
}

// Engine tracks which lessons of one course are unlocked for the current user.
//
// Unlocking is two-phase: the tentative index advances as soon as a lesson
// qualifies, the confirmed index once the server accepted the report.
// Lesson i is playable iff the user is enrolled and i <= tentative.
type Engine struct {
	mu       sync.Mutex
	course   domain.Course
	lessons  []domain.Lesson
	enrolled bool

	tentative int
	confirmed int
	reported  map[domain.ID]bool // per viewing session
	pending   *domain.ProgressUpdate

	reporter Reporter
	policy   FailurePolicy
	logger   *slog.Logger
}

// NewEngine builds the unlock state for course. With a progress record whose
// last accessed lesson is part of the course, the lesson after it is the
// next to unlock; otherwise only the first lesson is accessible.
func NewEngine(course domain.Course, enrolled bool, record *domain.CourseProgress, reporter Reporter, opts ...Option) *Engine {
	e := &Engine{
		course:   course,
		lessons:  course.FlattenLessons(),
		enrolled: enrolled,
		reported: make(map[domain.ID]bool),
		reporter: reporter,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if record != nil {
		if i := course.FlatIndexOf(record.LastAccessedLessonID); i >= 0 {
			e.tentative = i + 1
		}
	}
	e.confirmed = e.tentative
	return e
}

// Threshold is the watched percentage at which a lesson counts as complete.
const Threshold = domain.CompletionThreshold

// BeginViewing starts a new viewing session for lessonID, clearing its
// reported guard.
func (e *Engine) BeginViewing(lessonID domain.ID) {
	e.mu.Lock()
	delete(e.reported, lessonID)
	e.mu.Unlock()
}

// Observe applies one watched-percent event. Only the first event at or above
// the threshold for exactly the next pending lesson advances the state and
// triggers a report; every other event is a no-op.
func (e *Engine) Observe(ctx context.Context, t domain.Telemetry) Transition {
	e.mu.Lock()
	idx := e.course.FlatIndexOf(t.LessonID)
	tr := Transition{Index: idx, Unlocked: e.tentative}
	if t.Percent < Threshold || idx < 0 || idx != e.tentative || e.reported[t.LessonID] {
		e.mu.Unlock()
		return tr
	}

	e.reported[t.LessonID] = true
	e.tentative++
	update := domain.ProgressUpdate{
		CourseID:             e.course.ID,
		ProgressPercentage:   percentOf(e.tentative, len(e.lessons)),
		LastAccessedLessonID: t.LessonID,
	}
	tr.Advanced = true
	tr.Unlocked = e.tentative
	tr.Percent = update.ProgressPercentage
	e.mu.Unlock()

	e.logger.Debug("lesson completed", "courseID", e.course.ID, "lessonID", t.LessonID, "unlocked", tr.Unlocked)

	// Report outside the lock so telemetry keeps flowing while it is in flight.
	err := e.reporter.Record(ctx, update)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		if idx+1 > e.confirmed {
			e.confirmed = idx + 1
		}
		e.pending = nil
		return tr
	}

	tr.Err = err
	e.logger.Warn("progress report failed", "courseID", e.course.ID, "lessonID", t.LessonID, "error", err)
	if e.policy == RollbackOnFailure && e.tentative == idx+1 {
		e.tentative = idx
		tr.RolledBack = true
		tr.Unlocked = e.tentative
		return tr
	}
	e.pending = &update
	return tr
}

// Retry resends the last failed report, if any.
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	if e.pending == nil {
		e.mu.Unlock()
		return nil
	}
	update := *e.pending
	e.mu.Unlock()

	if err := e.reporter.Record(ctx, update); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.course.FlatIndexOf(update.LastAccessedLessonID); i+1 > e.confirmed {
		e.confirmed = i + 1
	}
	if e.pending != nil && *e.pending == update {
		e.pending = nil
	}
	return nil
}

// IsLocked reports whether the lesson at flattened index i is unplayable.
func (e *Engine) IsLocked(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.enrolled || i > e.tentative
}

// Lesson returns the lesson with id and its flattened index.
func (e *Engine) Lesson(id domain.ID) (domain.Lesson, int, error) {
	i := e.course.FlatIndexOf(id)
	if i < 0 {
		return domain.Lesson{}, -1, domain.ErrLessonNotFound
	}
	return e.lessons[i], i, nil
}

// Playable returns the lesson if the user may watch it.
func (e *Engine) Playable(id domain.ID) (domain.Lesson, error) {
	l, i, err := e.Lesson(id)
	if err != nil {
		return domain.Lesson{}, err
	}
	if e.IsLocked(i) {
		return domain.Lesson{}, domain.ErrLessonLocked
	}
	return l, nil
}

// Lessons returns the flattened lesson sequence.
func (e *Engine) Lessons() []domain.Lesson { return e.lessons }

// Unlocked returns the tentative unlocked index.
func (e *Engine) Unlocked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tentative
}

// Confirmed returns the unlocked index the server has acknowledged.
func (e *Engine) Confirmed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmed
}

// Pending reports whether a local unlock has not been acknowledged yet.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tentative > e.confirmed
}

// Percent returns the course progress implied by the tentative state.
func (e *Engine) Percent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return percentOf(e.tentative, len(e.lessons))
}

func percentOf(unlocked, total int) int {
	if total == 0 {
		return 0
	}
	if unlocked > total {
		unlocked = total
	}
	return int(math.Round(100 * float64(unlocked) / float64(total)))
}
