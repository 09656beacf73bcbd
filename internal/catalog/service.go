package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/domain"
)

// Service serves the course catalog through the cache.
type Service struct {
	repo   domain.CourseRepository
	cache  *cache.Cache
	logger *slog.Logger

	list *cache.Manager[[]domain.Course]

	mu      sync.Mutex
	details map[domain.ID]*cache.Manager[domain.Course]
}

// NewService creates a catalog service.
func NewService(repo domain.CourseRepository, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:    repo,
		cache:   c,
		logger:  logger,
		details: make(map[domain.ID]*cache.Manager[domain.Course]),
	}
	s.list = cache.NewManager(c, cache.CourseList(), func(ctx context.Context) ([]domain.Course, error) {
		courses, err := repo.GetCourses(ctx)
		if err != nil {
			return nil, err
		}
		logger.Debug("fetched courses", "count", len(courses))
		return courses, nil
	})
	return s
}

func (s *Service) detail(id domain.ID) *cache.Manager[domain.Course] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.details[id]; ok {
		return m
	}
	m := cache.NewManager(s.cache, cache.CourseDetail(id), func(ctx context.Context) (domain.Course, error) {
		return s.repo.GetCourse(ctx, id)
	})
	s.details[id] = m
	return m
}

// Courses returns the course list, from cache when fresh.
func (s *Service) Courses(ctx context.Context) ([]domain.Course, error) {
	return s.list.GetOrFetch(ctx)
}

// CachedCourses returns the stored course list at any age.
func (s *Service) CachedCourses() ([]domain.Course, bool) {
	env, ok := s.list.Cached()
	return env.Data, ok
}

// RefreshCourses refetches the course list.
func (s *Service) RefreshCourses(ctx context.Context) ([]domain.Course, error) {
	return s.list.Refresh(ctx)
}

// PeekCourse returns whatever can be shown for id before the network
// resolves: a cached detail at any age, else the course-list entry.
func (s *Service) PeekCourse(id domain.ID) (domain.Course, bool) {
	return s.detail(id).Peek(s.fromList(id))
}

// Course loads one course, stale-while-revalidate. The result's Initial is
// the cached detail, or the course-list entry when no detail is stored. List
// entries are not patched when a detail refreshes.
func (s *Service) Course(ctx context.Context, id domain.ID) cache.Result[domain.Course] {
	res := s.detail(id).Load(ctx, s.fromList(id))
	if res.Err != nil {
		s.logger.Error("failed to load course", "courseID", id, "error", res.Err)
	}
	return res
}

// RefreshCourse refetches one course, ignoring freshness. Used after an
// enrollment so the server's view of access replaces the cached one; a fetch
// already in flight from before the enrollment is never reused.
func (s *Service) RefreshCourse(ctx context.Context, id domain.ID) (domain.Course, error) {
	return s.detail(id).MutateAndRefetch(ctx, nil)
}

// EnrollFree enrolls in a course that costs nothing and refetches it.
func (s *Service) EnrollFree(ctx context.Context, id domain.ID) (domain.Course, error) {
	course, err := s.detail(id).MutateAndRefetch(ctx, func(ctx context.Context) error {
		return s.repo.Enroll(ctx, id)
	})
	if err != nil {
		s.logger.Error("free enrollment failed", "courseID", id, "error", err)
		return domain.Course{}, err
	}
	s.logger.Info("enrolled", "courseID", id)
	return course, nil
}

func (s *Service) fromList(id domain.ID) func() (domain.Course, bool) {
	return func() (domain.Course, bool) {
		courses, ok := s.CachedCourses()
		if !ok {
			return domain.Course{}, false
		}
		for _, c := range courses {
			if c.ID == id {
				return c, true
			}
		}
		return domain.Course{}, false
	}
}
