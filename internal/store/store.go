package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/elevate/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketEnvelopes = []byte("envelopes")
)

// CacheStore persists serialized cache envelopes in BoltDB.
//
// Every failure is absorbed: reads degrade to a miss and writes to a no-op, so
// a broken or full disk never surfaces to callers.
type CacheStore struct {
	db     *bolt.DB
	logger *slog.Logger
	mu     sync.RWMutex // Protects memory cache and gen

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
	// gen counts committed mutations; a disk read only promotes if none
	// landed while it ran.
	gen uint64
}

// Open opens the store under baseCacheDir. A separate database is kept per
// server URL so switching servers never mixes cached data. An empty
// baseCacheDir gives a memory-only store.
func Open(baseCacheDir, serverURL string, logger *slog.Logger) (*CacheStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &CacheStore{cache: make(map[string][]byte), logger: logger}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "elevate.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEnvelopes)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CacheStore{db: db, cache: make(map[string][]byte), logger: logger}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CacheStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Read returns a copy of the bytes stored under key.
func (s *CacheStore) Read(key string) ([]byte, bool) {
	s.mu.RLock()
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return clone(data), true
	}
	gen := s.gen
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEnvelopes)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = clone(v)
		}
		return nil
	})
	if err != nil {
		s.absorb("read", key, err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	// Promote to memory cache unless a write or delete committed meanwhile
	s.mu.Lock()
	if _, ok := s.cache[key]; !ok && s.gen == gen {
		s.cache[key] = data
	}
	s.mu.Unlock()

	return clone(data), true
}

// Write replaces the value under key. The whole value is swapped in a single
// transaction, so readers see either the old or the new envelope.
func (s *CacheStore) Write(key string, data []byte) {
	data = clone(data)

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketEnvelopes)
			if b == nil {
				return bolt.ErrBucketNotFound
			}
			return b.Put([]byte(key), data)
		})
		if err != nil {
			// Drop the promoted copy too so memory never disagrees with disk.
			s.mu.Lock()
			delete(s.cache, key)
			s.gen++
			s.mu.Unlock()
			s.absorb("write", key, err)
			return
		}
	}

	s.mu.Lock()
	s.cache[key] = data
	s.gen++
	s.mu.Unlock()
}

// Delete removes key. Disk goes first so a concurrent Read cannot promote
// the removed value after memory is cleared.
func (s *CacheStore) Delete(key string) {
	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketEnvelopes)
			if b == nil {
				return nil
			}
			return b.Delete([]byte(key))
		})
		if err != nil {
			s.absorb("delete", key, err)
		}
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.gen++
	s.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix.
func (s *CacheStore) DeletePrefix(prefix string) {
	defer func() {
		s.mu.Lock()
		for k := range s.cache {
			if strings.HasPrefix(k, prefix) {
				delete(s.cache, k)
			}
		}
		s.gen++
		s.mu.Unlock()
	}()

	if s.db == nil {
		return
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEnvelopes)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		var keys [][]byte
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, clone(k))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.absorb("delete", prefix+"*", err)
	}
}

// Clear wipes every stored envelope.
func (s *CacheStore) Clear() {
	defer func() {
		s.mu.Lock()
		s.cache = make(map[string][]byte)
		s.gen++
		s.mu.Unlock()
	}()

	if s.db == nil {
		return
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketEnvelopes) != nil {
			if err := tx.DeleteBucket(bucketEnvelopes); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketEnvelopes)
		return err
	})
	if err != nil {
		s.absorb("clear", "*", err)
	}
}

// Keys lists the stored keys in order.
func (s *CacheStore) Keys() []string {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		keys := make([]string, 0, len(s.cache))
		for k := range s.cache {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return keys
	}

	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEnvelopes)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		s.absorb("list", "*", err)
		return nil
	}
	return keys
}

func (s *CacheStore) absorb(op, key string, err error) {
	s.logger.Warn("cache storage failure, treating as miss",
		"error", &domain.StorageError{Op: op, Key: key, Err: err})
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
