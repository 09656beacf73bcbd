package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/mmcdole/elevate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgressRepo struct {
	records   []domain.CourseProgress
	updateErr error
	gets      int
	updates   int
}

func (r *fakeProgressRepo) GetProgress(context.Context) ([]domain.CourseProgress, error) {
	r.gets++
	return r.records, nil
}

func (r *fakeProgressRepo) UpdateProgress(_ context.Context, u domain.ProgressUpdate) error {
	r.updates++
	if r.updateErr != nil {
		return r.updateErr
	}
	r.records = applyUpdate(r.records, u, time.Time{})
	return nil
}

func newTestTracker(t *testing.T, repo *fakeProgressRepo) (*Tracker, time.Time) {
	t.Helper()
	s, err := store.Open("", "", nil)
	require.NoError(t, err)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return NewTracker(repo, cache.New(s, cache.WithClock(func() time.Time { return now })), nil), now
}

func TestTracker_RecordUpdatesInPlace(t *testing.T) {
	repo := &fakeProgressRepo{records: []domain.CourseProgress{
		{CourseID: "1", ProgressPercentage: 25, LastAccessedLessonID: "L0"},
		{CourseID: "2", ProgressPercentage: 50, LastAccessedLessonID: "X1"},
	}}
	tr, now := newTestTracker(t, repo)
	_, err := tr.All(context.Background())
	require.NoError(t, err)

	err = tr.Record(context.Background(), domain.ProgressUpdate{CourseID: "1", ProgressPercentage: 50, LastAccessedLessonID: "L1"})
	require.NoError(t, err)

	rec, ok := tr.Cached("1")
	require.True(t, ok)
	assert.Equal(t, 50, rec.ProgressPercentage)
	assert.Equal(t, domain.ID("L1"), rec.LastAccessedLessonID)
	assert.Equal(t, now.Format(time.RFC3339), rec.UpdatedAt)

	other, _ := tr.Cached("2")
	assert.Equal(t, 50, other.ProgressPercentage)

	all, err := tr.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 1, repo.gets, "reconciled locally without refetch")
}

func TestTracker_RecordAppendsNewCourse(t *testing.T) {
	repo := &fakeProgressRepo{}
	tr, _ := newTestTracker(t, repo)

	require.NoError(t, tr.Record(context.Background(), domain.ProgressUpdate{CourseID: "9", ProgressPercentage: 10, LastAccessedLessonID: "A"}))

	rec, ok, err := tr.For(context.Background(), "9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, rec.ProgressPercentage)
}

func TestTracker_RecordWithoutCacheKeepsOtherCourses(t *testing.T) {
	repo := &fakeProgressRepo{records: []domain.CourseProgress{
		{CourseID: "1", ProgressPercentage: 25},
		{CourseID: "2", ProgressPercentage: 50},
	}}
	tr, _ := newTestTracker(t, repo)

	require.NoError(t, tr.Record(context.Background(), domain.ProgressUpdate{CourseID: "3", ProgressPercentage: 10, LastAccessedLessonID: "A"}))
	_, ok := tr.Cached("3")
	assert.False(t, ok, "a lone record is not cached as the full list")

	all, err := tr.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 1, repo.gets)
}

func TestTracker_RecordFailureLeavesCache(t *testing.T) {
	repo := &fakeProgressRepo{records: []domain.CourseProgress{{CourseID: "1", ProgressPercentage: 25}}}
	tr, _ := newTestTracker(t, repo)
	_, err := tr.All(context.Background())
	require.NoError(t, err)

	repo.updateErr = errors.New("offline")
	err = tr.Record(context.Background(), domain.ProgressUpdate{CourseID: "1", ProgressPercentage: 75})
	assert.Error(t, err)

	rec, _ := tr.Cached("1")
	assert.Equal(t, 25, rec.ProgressPercentage)
}

func TestTracker_DrivesEngine(t *testing.T) {
	repo := &fakeProgressRepo{records: []domain.CourseProgress{{CourseID: "c1", LastAccessedLessonID: "L1", ProgressPercentage: 50}}}
	tr, _ := newTestTracker(t, repo)

	rec, ok, err := tr.For(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, ok)

	e := NewEngine(twoByTwo(), true, &rec, tr)
	res := e.Observe(context.Background(), watch("L2", 82))
	require.True(t, res.Advanced)
	require.NoError(t, res.Err)

	cached, _ := tr.Cached("c1")
	assert.Equal(t, 75, cached.ProgressPercentage)
	assert.Equal(t, domain.ID("L2"), cached.LastAccessedLessonID)
}
