// Package consumption tracks which download tokens have been redeemed.
//
// The store is the service's only shared mutable state. It lives for the
// process lifetime only: replay protection does not survive a restart,
// and instances do not coordinate.
package consumption

import (
	"sync"
	"time"
)

// Store is the single-use gate for token identities.
type Store interface {
	// TryConsume atomically marks id as used. It reports true exactly
	// once per id until a rollback; concurrent callers for the same id
	// see a single winner.
	TryConsume(id string, expiresAt time.Time) bool
	// Rollback clears id so a later TryConsume can succeed again. Only
	// called for deliveries that failed before any response bytes were
	// written, so the client never saw any part of the asset.
	Rollback(id string)
	// EvictExpired drops entries whose token expiry is not after the
	// given instant and reports how many were removed. An expired token
	// fails verification before the store is consulted, so the entries
	// are unreachable.
	EvictExpired(before time.Time) int
}

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	used map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{used: make(map[string]time.Time)}
}

func (s *MemoryStore) TryConsume(id string, expiresAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.used[id]; taken {
		return false
	}
	s.used[id] = expiresAt
	return true
}

func (s *MemoryStore) Rollback(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.used, id)
}

func (s *MemoryStore) EvictExpired(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, expiresAt := range s.used {
		if !expiresAt.After(before) {
			delete(s.used, id)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of tracked entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.used)
}
