// Package memory is an in-process db.Store used when no Redis address is configured.
// TTLs are honoured lazily on read.
package memory

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/quizdex/internal/db"
)

var _ db.Store = (*Store)(nil)

type item struct {
	value     []byte
	hash      map[string]string
	expiresAt time.Time
}

func (it *item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// Store is a mutex-guarded map of keys.
type Store struct {
	mu    sync.Mutex
	items map[string]*item
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{items: make(map[string]*item), now: time.Now}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

func (s *Store) lookup(key string) *item {
	it, ok := s.items[key]
	if !ok {
		return nil
	}
	if it.expired(s.now()) {
		delete(s.items, key)
		return nil
	}
	return it
}

// HSet sets hash fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		it = &item{hash: make(map[string]string, len(fields))}
		s.items[key] = it
	}
	if it.hash == nil {
		return &db.Error{Op: db.OpHSet, Err: errWrongType}
	}
	maps.Copy(it.hash, fields)
	return nil
}

// HGetAll returns a copy of all fields of a hash.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return map[string]string{}, nil
	}
	if it.hash == nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: errWrongType}
	}
	return maps.Clone(it.hash), nil
}

// Expire sets a TTL on an existing key.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return nil
	}
	if nx && !it.expiresAt.IsZero() {
		return nil
	}
	it.expiresAt = s.now().Add(ttl)
	return nil
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return nil, db.ErrKeyNotFound
	}
	if it.hash != nil {
		return nil, &db.Error{Op: db.OpGet, Err: errWrongType}
	}
	return slices.Clone(it.value), nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value; a zero ttl never expires.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := &item{value: slices.Clone(value)}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = it
	return nil
}

// IncrBy adds val to the decimal integer at key, creating it at zero. An existing TTL is kept.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		it = &item{}
		s.items[key] = it
	}
	if it.hash != nil {
		return &db.Error{Op: db.OpIncrBy, Err: errWrongType}
	}
	var cur int64
	if len(it.value) > 0 {
		n, err := strconv.ParseInt(string(it.value), 10, 64)
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: errNotInteger}
		}
		cur = n
	}
	it.value = strconv.AppendInt(nil, cur+val, 10)
	return nil
}
