package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/mmcdole/elevate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	courses   []domain.Course
	detail    map[domain.ID]domain.Course
	err       error
	enrollErr error
	calls     map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{detail: make(map[domain.ID]domain.Course), calls: make(map[string]int)}
}

func (r *fakeRepo) GetCourses(context.Context) ([]domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["list"]++
	return r.courses, r.err
}

func (r *fakeRepo) GetCourse(_ context.Context, id domain.ID) (domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["detail:"+string(id)]++
	if r.err != nil {
		return domain.Course{}, r.err
	}
	c, ok := r.detail[id]
	if !ok {
		return domain.Course{}, &domain.APIError{Status: 404, Message: "Course not found"}
	}
	return c, nil
}

func (r *fakeRepo) Enroll(_ context.Context, id domain.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["enroll"]++
	if r.enrollErr != nil {
		return r.enrollErr
	}
	c := r.detail[id]
	c.IsEnrolled = true
	r.detail[id] = c
	return nil
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, repo *fakeRepo) (*Service, *testClock) {
	t.Helper()
	s, err := store.Open("", "", nil)
	require.NoError(t, err)
	clock := &testClock{now: time.UnixMilli(1_700_000_000_000)}
	return NewService(repo, cache.New(s, cache.WithClock(clock.Now)), nil), clock
}

func TestService_CoursesCachedWithinTTL(t *testing.T) {
	repo := newFakeRepo()
	repo.courses = []domain.Course{{ID: "1", Title: "Go"}}
	svc, clock := newTestService(t, repo)

	_, err := svc.Courses(context.Background())
	require.NoError(t, err)
	clock.now = clock.now.Add(59 * time.Minute)
	got, err := svc.Courses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, repo.courses, got)
	assert.Equal(t, 1, repo.calls["list"])

	clock.now = clock.now.Add(2 * time.Minute)
	_, err = svc.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls["list"])
}

func TestService_CourseFallsBackToListEntry(t *testing.T) {
	repo := newFakeRepo()
	repo.courses = []domain.Course{{ID: "4", Title: "Full Stack"}}
	svc, _ := newTestService(t, repo)
	_, err := svc.Courses(context.Background())
	require.NoError(t, err)

	peek, ok := svc.PeekCourse("4")
	require.True(t, ok)
	assert.Equal(t, "Full Stack", peek.Title)

	repo.detail["4"] = domain.Course{ID: "4", Title: "Full Stack", Modules: []domain.Module{{ID: "m"}}}
	res := svc.Course(context.Background(), "4")
	require.NoError(t, res.Err)
	assert.True(t, res.HasInitial)
	assert.Empty(t, res.Initial.Modules)
	assert.Len(t, res.Value.Modules, 1)

	list, _ := svc.CachedCourses()
	assert.Empty(t, list[0].Modules, "list entries are not patched by detail loads")
}

func TestService_StaleDetailSurvivesNetworkFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.detail["5"] = domain.Course{ID: "5", Title: "Old title"}
	svc, clock := newTestService(t, repo)

	res := svc.Course(context.Background(), "5")
	require.NoError(t, res.Err)

	clock.now = clock.now.Add(2 * time.Hour)
	repo.err = &domain.NetworkError{Op: "GET /api/courses/5", Err: errors.New("offline")}

	res = svc.Course(context.Background(), "5")
	require.Error(t, res.Err)
	assert.True(t, res.HasInitial)
	assert.Equal(t, "Old title", res.Initial.Title)

	best, ok := res.Best()
	assert.True(t, ok)
	assert.Equal(t, "Old title", best.Title)
}

func TestService_CourseNotFound(t *testing.T) {
	svc, _ := newTestService(t, newFakeRepo())

	res := svc.Course(context.Background(), "missing")
	assert.ErrorIs(t, res.Err, domain.ErrNotFound)
	assert.False(t, res.HasInitial)
	_, ok := res.Best()
	assert.False(t, ok)
}

func TestService_RefreshCourseIgnoresFreshness(t *testing.T) {
	repo := newFakeRepo()
	repo.detail["9"] = domain.Course{ID: "9"}
	svc, _ := newTestService(t, repo)

	res := svc.Course(context.Background(), "9")
	require.NoError(t, res.Err)

	repo.detail["9"] = domain.Course{ID: "9", IsEnrolled: true}
	c, err := svc.RefreshCourse(context.Background(), "9")
	require.NoError(t, err)
	assert.True(t, c.IsEnrolled)
	assert.Equal(t, 2, repo.calls["detail:9"])

	peek, _ := svc.PeekCourse("9")
	assert.True(t, peek.IsEnrolled)
}

func TestService_EnrollFree(t *testing.T) {
	repo := newFakeRepo()
	repo.detail["3"] = domain.Course{ID: "3"}
	svc, _ := newTestService(t, repo)

	c, err := svc.EnrollFree(context.Background(), "3")
	require.NoError(t, err)
	assert.True(t, c.IsEnrolled)

	repo.enrollErr = &domain.APIError{Status: 400, Message: "Already enrolled"}
	_, err = svc.EnrollFree(context.Background(), "3")
	assert.EqualError(t, err, "Already enrolled (status 400)")
	assert.Equal(t, 1, repo.calls["detail:3"], "failed mutation must not refetch")
}

// stallingRepo holds its first detail fetch until released, returning the
// course as it was when the fetch began.
type stallingRepo struct {
	*fakeRepo
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *stallingRepo) GetCourse(ctx context.Context, id domain.ID) (domain.Course, error) {
	c, err := r.fakeRepo.GetCourse(ctx, id)
	stalled := false
	r.once.Do(func() { stalled = true })
	if stalled {
		close(r.started)
		<-r.release
	}
	return c, err
}

func TestService_RefreshCourseAfterPaymentSkipsEarlierFetch(t *testing.T) {
	repo := &stallingRepo{fakeRepo: newFakeRepo(), started: make(chan struct{}), release: make(chan struct{})}
	repo.detail["4"] = domain.Course{ID: "4"}
	s, err := store.Open("", "", nil)
	require.NoError(t, err)
	svc := NewService(repo, cache.New(s), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Course(context.Background(), "4")
	}()
	<-repo.started

	repo.mu.Lock()
	repo.detail["4"] = domain.Course{ID: "4", IsEnrolled: true}
	repo.mu.Unlock()

	c, err := svc.RefreshCourse(context.Background(), "4")
	require.NoError(t, err)
	assert.True(t, c.IsEnrolled)

	close(repo.release)
	<-done

	peek, ok := svc.PeekCourse("4")
	require.True(t, ok)
	assert.True(t, peek.IsEnrolled, "pre-payment fetch must not overwrite the enrolled course")
}
