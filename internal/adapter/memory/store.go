// Package memory is an in-process record store for local runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
)

// Store keeps records in a map guarded by a RWMutex. Contents are lost on exit.
type Store struct {
	mu    sync.RWMutex
	items map[string]domain.StatusRecord
}

func NewStore() *Store {
	return &Store{items: make(map[string]domain.StatusRecord)}
}

// Put stores rec under key, replacing any previous value.
func (s *Store) Put(_ context.Context, key string, rec domain.StatusRecord) error {
	s.mu.Lock()
	s.items[key] = rec
	s.mu.Unlock()
	return nil
}

// Scan returns the records matching f in no particular order.
func (s *Store) Scan(ctx context.Context, f domain.Filter) ([]domain.StatusRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StatusRecord
	for _, rec := range s.items {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
