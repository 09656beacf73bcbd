package jobboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/domain"
)

// Service serves job postings and the user's saved set through the cache.
type Service struct {
	repo   domain.JobRepository
	cache  *cache.Cache
	logger *slog.Logger

	list  *cache.Manager[[]domain.Job]
	saved *cache.Manager[[]domain.SavedJob]

	mu      sync.Mutex
	details map[domain.ID]*cache.Manager[domain.Job]
}

// NewService creates a job-board service.
func NewService(repo domain.JobRepository, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		cache:   c,
		logger:  logger,
		list:    cache.NewManager(c, cache.JobList(), repo.GetJobs),
		saved:   cache.NewManager(c, cache.SavedJobs(), repo.GetSavedJobs),
		details: make(map[domain.ID]*cache.Manager[domain.Job]),
	}
}

func (s *Service) detail(id domain.ID) *cache.Manager[domain.Job] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.details[id]; ok {
		return m
	}
	m := cache.NewManager(s.cache, cache.JobDetail(id), func(ctx context.Context) (domain.Job, error) {
		return s.repo.GetJob(ctx, id)
	})
	s.details[id] = m
	return m
}

// Jobs returns every posting, from cache when fresh.
func (s *Service) Jobs(ctx context.Context) ([]domain.Job, error) {
	return s.list.GetOrFetch(ctx)
}

// RefreshJobs refetches the posting list.
func (s *Service) RefreshJobs(ctx context.Context) ([]domain.Job, error) {
	return s.list.Refresh(ctx)
}

// CachedJobs returns the stored posting list at any age.
func (s *Service) CachedJobs() ([]domain.Job, bool) {
	env, ok := s.list.Cached()
	return env.Data, ok
}

// PeekJob returns a cached detail at any age, else the job-list entry.
func (s *Service) PeekJob(id domain.ID) (domain.Job, bool) {
	return s.detail(id).Peek(s.fromList(id))
}

// Job loads one posting, stale-while-revalidate.
func (s *Service) Job(ctx context.Context, id domain.ID) cache.Result[domain.Job] {
	res := s.detail(id).Load(ctx, s.fromList(id))
	if res.Err != nil {
		s.logger.Error("failed to load job", "jobID", id, "error", res.Err)
	}
	return res
}

// Saved returns the user's saved set, from cache when fresh.
func (s *Service) Saved(ctx context.Context) ([]domain.SavedJob, error) {
	return s.saved.GetOrFetch(ctx)
}

// RefreshSaved refetches the saved set.
func (s *Service) RefreshSaved(ctx context.Context) ([]domain.SavedJob, error) {
	return s.saved.Refresh(ctx)
}

// CachedSaved returns the stored saved set at any age.
func (s *Service) CachedSaved() ([]domain.SavedJob, bool) {
	env, ok := s.saved.Cached()
	return env.Data, ok
}

// IsSaved reports whether id is in the saved set.
func (s *Service) IsSaved(ctx context.Context, id domain.ID) (bool, error) {
	saved, err := s.Saved(ctx)
	if err != nil {
		return false, err
	}
	return containsJob(saved, id), nil
}

// Save adds id to the saved set on the server, then replaces the cached set
// with a full refetch. Nothing changes locally if the server rejects it.
func (s *Service) Save(ctx context.Context, id domain.ID) ([]domain.SavedJob, error) {
	saved, err := s.saved.MutateAndRefetch(ctx, func(ctx context.Context) error {
		return s.repo.SaveJob(ctx, id)
	})
	if err != nil {
		s.logger.Error("failed to save job", "jobID", id, "error", err)
		return nil, err
	}
	s.logger.Info("saved job", "jobID", id, "count", len(saved))
	return saved, nil
}

// Unsave removes id from the saved set, reconciled like Save.
func (s *Service) Unsave(ctx context.Context, id domain.ID) ([]domain.SavedJob, error) {
	saved, err := s.saved.MutateAndRefetch(ctx, func(ctx context.Context) error {
		return s.repo.UnsaveJob(ctx, id)
	})
	if err != nil {
		s.logger.Error("failed to unsave job", "jobID", id, "error", err)
		return nil, err
	}
	s.logger.Info("unsaved job", "jobID", id, "count", len(saved))
	return saved, nil
}

// Toggle saves id when it is not saved and unsaves it otherwise. It returns
// the new saved state.
func (s *Service) Toggle(ctx context.Context, id domain.ID) (bool, error) {
	isSaved, err := s.IsSaved(ctx, id)
	if err != nil {
		return false, err
	}
	if isSaved {
		_, err = s.Unsave(ctx, id)
		return err != nil, err
	}
	_, err = s.Save(ctx, id)
	return err == nil, err
}

func (s *Service) fromList(id domain.ID) func() (domain.Job, bool) {
	return func() (domain.Job, bool) {
		jobs, ok := s.CachedJobs()
		if !ok {
			return domain.Job{}, false
		}
		for _, j := range jobs {
			if j.ID == id {
				return j, true
			}
		}
		return domain.Job{}, false
	}
}

func containsJob(saved []domain.SavedJob, id domain.ID) bool {
	for _, j := range saved {
		if j.ID == id {
			return true
		}
	}
	return false
}
