package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Storage is the persistent key/value layer envelopes are written to.
// Implementations absorb their own failures.
type Storage interface {
	Read(key string) ([]byte, bool)
	Write(key string, data []byte)
	Delete(key string)
	DeletePrefix(prefix string)
}

// Cache holds what every Manager shares: storage, TTL policy, clock and the
// in-flight request group.
type Cache struct {
	storage Storage
	policy  Policy
	now     func() time.Time
	logger  *slog.Logger

	group singleflight.Group
	mu    sync.Mutex // serializes read-patch-write reconciliation

	// epochs advance per slot on every mutation or invalidation. A fetch
	// only writes if its slot's epoch is unchanged since it started.
	epochMu sync.Mutex
	epochs  map[string]uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithPolicy sets the TTL policy.
func WithPolicy(p Policy) Option {
	return func(c *Cache) { c.policy = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cache over storage.
func New(storage Storage, opts ...Option) *Cache {
	c := &Cache{
		storage: storage,
		policy:  DefaultPolicy(),
		now:     time.Now,
		logger:  slog.Default(),
		epochs:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the TTL policy in use.
func (c *Cache) Policy() Policy { return c.policy }

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time { return c.now() }

// Invalidate drops the envelope stored for key.
func (c *Cache) Invalidate(key Key) {
	c.epochMu.Lock()
	c.advance(key.Slot())
	c.storage.Delete(key.Slot())
	c.epochMu.Unlock()
	c.logger.Debug("invalidated cache", "key", key.String())
}

// InvalidateKind drops every envelope of kind, including all detail ids.
func (c *Cache) InvalidateKind(kind Kind) {
	prefix := SlotPrefix(kind)
	c.epochMu.Lock()
	if kind.IsDetail() {
		for slot := range c.epochs {
			if strings.HasPrefix(slot, prefix) {
				c.advance(slot)
			}
		}
		c.storage.DeletePrefix(prefix)
	} else {
		c.advance(prefix)
		c.storage.Delete(prefix)
	}
	c.epochMu.Unlock()
	c.logger.Debug("invalidated cache kind", "kind", string(kind))
}

// epoch returns the slot's current epoch, registering the slot so a kind-wide
// invalidation can find it.
func (c *Cache) epoch(slot string) uint64 {
	c.epochMu.Lock()
	defer c.epochMu.Unlock()
	e, ok := c.epochs[slot]
	if !ok {
		c.epochs[slot] = 0
	}
	return e
}

// advance moves slot to a new epoch and detaches any fetch in flight for it,
// so later readers start a new one. Callers hold epochMu.
func (c *Cache) advance(slot string) uint64 {
	c.epochs[slot]++
	c.group.Forget(slot)
	c.group.Forget(slot + "#refresh")
	return c.epochs[slot]
}

// FetchFunc loads the authoritative value for one key from the server.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Manager exposes fresh-or-cached reads and reconciled mutations for one key.
// A Manager is the only writer of its key's envelope.
type Manager[T any] struct {
	cache *Cache
	key   Key
	fetch FetchFunc[T]
}

// NewManager binds fetch to key.
func NewManager[T any](c *Cache, key Key, fetch FetchFunc[T]) *Manager[T] {
	return &Manager[T]{cache: c, key: key, fetch: fetch}
}

// Key returns the managed key.
func (m *Manager[T]) Key() Key { return m.key }

// Cached returns the stored envelope regardless of its age.
func (m *Manager[T]) Cached() (Envelope[T], bool) {
	raw, ok := m.cache.storage.Read(m.key.Slot())
	if !ok {
		return Envelope[T]{}, false
	}
	var env Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		// Unreadable envelopes are dropped and treated as a miss.
		m.cache.logger.Warn("discarding corrupt cache envelope", "key", m.key.String(), "error", err)
		m.cache.storage.Delete(m.key.Slot())
		return Envelope[T]{}, false
	}
	return env, true
}

// Fresh reports whether a stored envelope exists and is within its TTL.
func (m *Manager[T]) Fresh() bool {
	env, ok := m.Cached()
	return ok && m.cache.policy.Fresh(m.key.Kind, env.Timestamp, m.cache.now())
}

// GetOrFetch returns the cached value when it is fresh; otherwise it fetches,
// stores a new envelope and returns the fetched value. Fetch errors are
// returned as-is; a stale envelope is never substituted.
//
// Concurrent misses for the same key share one fetch.
func (m *Manager[T]) GetOrFetch(ctx context.Context) (T, error) {
	if env, ok := m.Cached(); ok && m.cache.policy.Fresh(m.key.Kind, env.Timestamp, m.cache.now()) {
		m.cache.logger.Debug("cache fresh", "key", m.key.String())
		return env.Data, nil
	}
	m.cache.logger.Debug("cache stale, fetching", "key", m.key.String())
	return m.load(ctx, false)
}

// Refresh fetches unconditionally and stores the result.
func (m *Manager[T]) Refresh(ctx context.Context) (T, error) {
	return m.load(ctx, true)
}

func (m *Manager[T]) load(ctx context.Context, force bool) (T, error) {
	flightKey := m.key.Slot()
	if force {
		flightKey += "#refresh"
	}

	// The shared fetch outlives any single caller's cancellation; each caller
	// still stops waiting when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := m.cache.group.DoChan(flightKey, func() (any, error) {
		if !force {
			if env, ok := m.Cached(); ok && m.cache.policy.Fresh(m.key.Kind, env.Timestamp, m.cache.now()) {
				return env.Data, nil
			}
		}
		epoch := m.cache.epoch(m.key.Slot())
		v, err := m.fetch(fetchCtx)
		if err != nil {
			m.cache.logger.Error("failed to fetch", "key", m.key.String(), "error", err)
			return nil, err
		}
		m.writeAt(epoch, v)
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Peek returns the value to show before the network resolves: the stored
// envelope at any age, else whatever fallback yields (typically the matching
// entry of a cached list).
func (m *Manager[T]) Peek(fallback func() (T, bool)) (T, bool) {
	if env, ok := m.Cached(); ok {
		return env.Data, true
	}
	if fallback != nil {
		return fallback()
	}
	var zero T
	return zero, false
}

// Result is the outcome of a stale-while-revalidate load.
type Result[T any] struct {
	Initial    T    // value available before the network call, possibly stale
	HasInitial bool // Initial is meaningful
	Value      T    // authoritative value when Err is nil
	Err        error
}

// Best returns Value on success, else Initial when one was available.
func (r Result[T]) Best() (T, bool) {
	if r.Err == nil {
		return r.Value, true
	}
	return r.Initial, r.HasInitial
}

// Load peeks, then runs GetOrFetch. On failure the error is reported and the
// initial value stays available to the caller.
func (m *Manager[T]) Load(ctx context.Context, fallback func() (T, bool)) Result[T] {
	var res Result[T]
	res.Initial, res.HasInitial = m.Peek(fallback)
	res.Value, res.Err = m.GetOrFetch(ctx)
	return res
}

// MutateAndReconcile runs mutate and, only if it succeeds, applies patch to
// the cached value and rewrites the envelope with a fresh timestamp. patch
// receives the zero value and false when nothing is cached; its result is
// returned but not stored, so the next read fetches the whole value. On
// failure the cache is left untouched.
func (m *Manager[T]) MutateAndReconcile(
	ctx context.Context,
	mutate func(ctx context.Context) error,
	patch func(current T, cached bool) T,
) (T, error) {
	var zero T
	if err := mutate(ctx); err != nil {
		m.cache.logger.Error("mutation failed, cache untouched", "key", m.key.String(), "error", err)
		return zero, err
	}

	m.cache.mu.Lock()
	defer m.cache.mu.Unlock()

	epoch := m.begin()
	env, ok := m.Cached()
	next := patch(env.Data, ok)
	if !ok {
		// a patched zero value is partial; leave the slot empty for a full fetch
		m.cache.logger.Debug("nothing cached to reconcile", "key", m.key.String())
		return next, nil
	}
	m.writeAt(epoch, next)
	return next, nil
}

// MutateAndRefetch runs mutate and, only if it succeeds, replaces the
// envelope with a full refetch instead of a local patch. The refetch never
// joins a fetch that started before the mutation, and such a fetch can no
// longer write. If the refetch fails after a successful mutation the
// envelope is dropped so the next read goes to the server. A nil mutate
// means the change already happened elsewhere (a verified payment).
func (m *Manager[T]) MutateAndRefetch(ctx context.Context, mutate func(ctx context.Context) error) (T, error) {
	var zero T
	if mutate == nil {
		mutate = func(context.Context) error { return nil }
	}
	if err := mutate(ctx); err != nil {
		m.cache.logger.Error("mutation failed, cache untouched", "key", m.key.String(), "error", err)
		return zero, err
	}
	epoch := m.begin()
	v, err := m.fetch(ctx)
	if err != nil {
		m.cache.Invalidate(m.key)
		return zero, fmt.Errorf("refresh after mutation: %w", err)
	}
	m.writeAt(epoch, v)
	return v, nil
}

// Invalidate drops this key's envelope.
func (m *Manager[T]) Invalidate() {
	m.cache.Invalidate(m.key)
}

// begin starts a new epoch for the key after a successful mutation.
func (m *Manager[T]) begin() uint64 {
	m.cache.epochMu.Lock()
	defer m.cache.epochMu.Unlock()
	return m.cache.advance(m.key.Slot())
}

// writeAt stores v unless the key has moved past epoch.
func (m *Manager[T]) writeAt(epoch uint64, v T) {
	raw, err := json.Marshal(Envelope[T]{Data: v, Timestamp: m.cache.now().UnixMilli()})
	if err != nil {
		m.cache.logger.Warn("value not serializable, skipping cache write", "key", m.key.String(), "error", err)
		return
	}

	m.cache.epochMu.Lock()
	defer m.cache.epochMu.Unlock()
	if m.cache.epochs[m.key.Slot()] != epoch {
		m.cache.logger.Debug("dropping superseded fetch", "key", m.key.String())
		return
	}
	m.cache.storage.Write(m.key.Slot(), raw)
}
