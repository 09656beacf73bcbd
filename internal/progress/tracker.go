package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/domain"
)

// Tracker serves the user's course-progress records through the cache.
type Tracker struct {
	repo   domain.ProgressRepository
	cache  *cache.Cache
	m      *cache.Manager[[]domain.CourseProgress]
	logger *slog.Logger
}

// NewTracker creates a progress tracker.
func NewTracker(repo domain.ProgressRepository, c *cache.Cache, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		repo:   repo,
		cache:  c,
		m:      cache.NewManager(c, cache.CourseProgress(), repo.GetProgress),
		logger: logger,
	}
}

// All returns every progress record, from cache when fresh.
func (t *Tracker) All(ctx context.Context) ([]domain.CourseProgress, error) {
	return t.m.GetOrFetch(ctx)
}

// Refresh refetches every progress record.
func (t *Tracker) Refresh(ctx context.Context) ([]domain.CourseProgress, error) {
	return t.m.Refresh(ctx)
}

// For returns the record for courseID. The bool is false when the user has
// not started the course.
func (t *Tracker) For(ctx context.Context, courseID domain.ID) (domain.CourseProgress, bool, error) {
	records, err := t.All(ctx)
	if err != nil {
		return domain.CourseProgress{}, false, err
	}
	rec, ok := find(records, courseID)
	return rec, ok, nil
}

// Cached returns the stored record for courseID at any age.
func (t *Tracker) Cached(courseID domain.ID) (domain.CourseProgress, bool) {
	env, ok := t.m.Cached()
	if !ok {
		return domain.CourseProgress{}, false
	}
	return find(env.Data, courseID)
}

// Record sends update to the server and, only on success, patches the cached
// records: the matching course is updated in place, or a record is appended.
func (t *Tracker) Record(ctx context.Context, update domain.ProgressUpdate) error {
	_, err := t.m.MutateAndReconcile(ctx,
		func(ctx context.Context) error {
			return t.repo.UpdateProgress(ctx, update)
		},
		func(records []domain.CourseProgress, _ bool) []domain.CourseProgress {
			return applyUpdate(records, update, t.cache.Now())
		},
	)
	if err != nil {
		t.logger.Error("failed to record progress", "courseID", update.CourseID, "lessonID", update.LastAccessedLessonID, "error", err)
		return err
	}
	t.logger.Info("recorded progress", "courseID", update.CourseID, "percent", update.ProgressPercentage)
	return nil
}

func applyUpdate(records []domain.CourseProgress, u domain.ProgressUpdate, now time.Time) []domain.CourseProgress {
	stamp := now.UTC().Format(time.RFC3339)
	out := make([]domain.CourseProgress, len(records), len(records)+1)
	copy(out, records)
	for i := range out {
		if out[i].CourseID == u.CourseID {
			out[i].ProgressPercentage = u.ProgressPercentage
			out[i].LastAccessedLessonID = u.LastAccessedLessonID
			out[i].UpdatedAt = stamp
			return out
		}
	}
	return append(out, domain.CourseProgress{
		CourseID:             u.CourseID,
		ProgressPercentage:   u.ProgressPercentage,
		LastAccessedLessonID: u.LastAccessedLessonID,
		UpdatedAt:            stamp,
	})
}

func find(records []domain.CourseProgress, courseID domain.ID) (domain.CourseProgress, bool) {
	for _, r := range records {
		if r.CourseID == courseID {
			return r, true
		}
	}
	return domain.CourseProgress{}, false
}
