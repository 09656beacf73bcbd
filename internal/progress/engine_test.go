package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mmcdole/elevate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu      sync.Mutex
	updates []domain.ProgressUpdate
	err     error
}

func (r *recordingReporter) Record(_ context.Context, u domain.ProgressUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return r.err
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

// twoByTwo is a course with modules [L0 L1] and [L2 L3].
func twoByTwo() domain.Course {
	return domain.Course{
		ID: "c1",
		Modules: []domain.Module{
			{ID: "m1", Lessons: []domain.Lesson{{ID: "L0"}, {ID: "L1"}}},
			{ID: "m2", Lessons: []domain.Lesson{{ID: "L2"}, {ID: "L3"}}},
		},
	}
}

func watch(id domain.ID, pct float64) domain.Telemetry {
	return domain.Telemetry{LessonID: id, Percent: pct}
}

func TestEngine_InitialStateFromRecord(t *testing.T) {
	rec := &domain.CourseProgress{CourseID: "c1", LastAccessedLessonID: "L1"}
	e := NewEngine(twoByTwo(), true, rec, &recordingReporter{})

	assert.Equal(t, 2, e.Unlocked())
	for i := 0; i <= 2; i++ {
		assert.False(t, e.IsLocked(i), "lesson %d", i)
	}
	assert.True(t, e.IsLocked(3))
}

func TestEngine_InitialStateWithoutRecord(t *testing.T) {
	e := NewEngine(twoByTwo(), true, nil, &recordingReporter{})
	assert.Equal(t, 0, e.Unlocked())
	assert.False(t, e.IsLocked(0))
	assert.True(t, e.IsLocked(1))

	unknown := &domain.CourseProgress{LastAccessedLessonID: "gone"}
	e = NewEngine(twoByTwo(), true, unknown, &recordingReporter{})
	assert.Equal(t, 0, e.Unlocked())
}

func TestEngine_NotEnrolledLocksEverything(t *testing.T) {
	e := NewEngine(twoByTwo(), false, nil, &recordingReporter{})
	for i := range 4 {
		assert.True(t, e.IsLocked(i))
	}
	_, err := e.Playable("L0")
	assert.ErrorIs(t, err, domain.ErrLessonLocked)
	_, err = e.Playable("nope")
	assert.ErrorIs(t, err, domain.ErrLessonNotFound)
}

func TestEngine_BelowThresholdIsNoop(t *testing.T) {
	rep := &recordingReporter{}
	rec := &domain.CourseProgress{LastAccessedLessonID: "L1"}
	e := NewEngine(twoByTwo(), true, rec, rep)

	tr := e.Observe(context.Background(), watch("L2", 45))
	assert.False(t, tr.Advanced)
	assert.Equal(t, 2, e.Unlocked())
	assert.Zero(t, rep.count())

	tr = e.Observe(context.Background(), watch("L2", 79.9))
	assert.False(t, tr.Advanced)
	assert.Zero(t, rep.count())
}

func TestEngine_AdvancesAndReports(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEngine(twoByTwo(), true, nil, rep)

	tr := e.Observe(context.Background(), watch("L0", 80))
	require.True(t, tr.Advanced)
	require.NoError(t, tr.Err)
	assert.Equal(t, 1, tr.Unlocked)
	assert.Equal(t, 25, tr.Percent)
	assert.Equal(t, 1, e.Confirmed())
	assert.False(t, e.Pending())

	require.Len(t, rep.updates, 1)
	assert.Equal(t, domain.ProgressUpdate{
		CourseID:             "c1",
		ProgressPercentage:   25,
		LastAccessedLessonID: "L0",
	}, rep.updates[0])
}

func TestEngine_IdempotentCompletion(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEngine(twoByTwo(), true, nil, rep)

	for _, pct := range []float64{81, 85, 90, 100} {
		e.Observe(context.Background(), watch("L0", pct))
	}
	assert.Equal(t, 1, rep.count())
	assert.Equal(t, 1, e.Unlocked())
}

func TestEngine_OutOfOrderNeverAdvances(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEngine(twoByTwo(), true, nil, rep)

	tr := e.Observe(context.Background(), watch("L2", 100))
	assert.False(t, tr.Advanced)
	assert.Equal(t, 2, tr.Index)
	e.Observe(context.Background(), watch("L3", 100))
	e.Observe(context.Background(), watch("missing", 100))

	assert.Equal(t, 0, e.Unlocked())
	assert.Zero(t, rep.count())
}

func TestEngine_ReviewingUnlockedLessonIsNoop(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEngine(twoByTwo(), true, &domain.CourseProgress{LastAccessedLessonID: "L1"}, rep)

	e.BeginViewing("L0")
	tr := e.Observe(context.Background(), watch("L0", 95))
	assert.False(t, tr.Advanced)
	assert.Equal(t, 2, e.Unlocked())
	assert.Zero(t, rep.count())
}

func TestEngine_Monotonic(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEngine(twoByTwo(), true, nil, rep)

	events := []domain.Telemetry{
		watch("L0", 10), watch("L0", 85), watch("L3", 90), watch("L1", 50),
		watch("L0", 100), watch("L1", 80), watch("L1", 99), watch("L2", 80),
		watch("L1", 80), watch("L3", 80), watch("L3", 100),
	}
	last := e.Unlocked()
	for _, ev := range events {
		e.Observe(context.Background(), ev)
		cur := e.Unlocked()
		assert.GreaterOrEqual(t, cur, last)
		last = cur
	}
	assert.Equal(t, 4, last)
	assert.Equal(t, 100, e.Percent())
	assert.Equal(t, 4, rep.count())
}

func TestEngine_FailedReportKeepsTentativeUnlock(t *testing.T) {
	rep := &recordingReporter{err: &domain.NetworkError{Op: "POST /api/progress", Err: errors.New("offline")}}
	e := NewEngine(twoByTwo(), true, nil, rep)

	tr := e.Observe(context.Background(), watch("L0", 90))
	assert.True(t, tr.Advanced)
	assert.Error(t, tr.Err)
	assert.False(t, tr.RolledBack)

	assert.Equal(t, 1, e.Unlocked())
	assert.Equal(t, 0, e.Confirmed())
	assert.True(t, e.Pending())
	assert.False(t, e.IsLocked(1))

	rep.err = nil
	require.NoError(t, e.Retry(context.Background()))
	assert.Equal(t, 1, e.Confirmed())
	assert.False(t, e.Pending())
	assert.Equal(t, 2, rep.count())

	require.NoError(t, e.Retry(context.Background()))
	assert.Equal(t, 2, rep.count(), "nothing left to retry")
}

func TestEngine_RollbackPolicy(t *testing.T) {
	rep := &recordingReporter{err: &domain.APIError{Status: 500, Message: "An error occurred"}}
	e := NewEngine(twoByTwo(), true, nil, rep, WithRollback())

	tr := e.Observe(context.Background(), watch("L0", 90))
	assert.True(t, tr.Advanced)
	assert.True(t, tr.RolledBack)
	assert.Equal(t, 0, tr.Unlocked)
	assert.Equal(t, 0, e.Unlocked())
	assert.True(t, e.IsLocked(1))
	assert.False(t, e.Pending())

	// The guard holds for the rest of this viewing session.
	rep.err = nil
	tr = e.Observe(context.Background(), watch("L0", 91))
	assert.False(t, tr.Advanced)

	e.BeginViewing("L0")
	tr = e.Observe(context.Background(), watch("L0", 91))
	assert.True(t, tr.Advanced)
	assert.False(t, tr.RolledBack)
	assert.Equal(t, 1, e.Confirmed())
}

func TestEngine_GuardHoldsUntilNextViewing(t *testing.T) {
	rep := &recordingReporter{err: errors.New("down")}
	e := NewEngine(twoByTwo(), true, nil, rep, WithRollback())

	e.Observe(context.Background(), watch("L0", 90))
	rep.err = nil
	e.Observe(context.Background(), watch("L0", 95))
	e.Observe(context.Background(), watch("L0", 100))
	assert.Equal(t, 1, rep.count())

	e.BeginViewing("L0")
	tr := e.Observe(context.Background(), watch("L0", 90))
	assert.True(t, tr.Advanced)
	assert.Equal(t, 2, rep.count())
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 0, percentOf(0, 0))
	assert.Equal(t, 33, percentOf(1, 3))
	assert.Equal(t, 67, percentOf(2, 3))
	assert.Equal(t, 100, percentOf(5, 3))
}
