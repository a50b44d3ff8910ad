// Package cache provides a small in-process TTL set. Its main consumer is
// the token revocation list: logout and password changes add the live token
// here so it stops verifying before its natural expiry.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	expiresAt int64 // unix nanos
}

// TTLSet is a concurrency-safe set whose members expire. Expired members
// are treated as absent immediately and physically removed by Purge.
type TTLSet struct {
	mu    sync.RWMutex
	items map[string]entry
}

func NewTTLSet() *TTLSet {
	return &TTLSet{items: make(map[string]entry)}
}

// Add inserts key for the given ttl. A non-positive ttl is a no-op: the
// member would already be expired.
func (s *TTLSet) Add(key string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry{expiresAt: time.Now().Add(ttl).UnixNano()}
}

// Contains reports whether key is present and not expired.
func (s *TTLSet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[key]
	return ok && time.Now().UnixNano() < e.expiresAt
}

// Purge removes expired members. The server runs this periodically; between
// runs expired members cost memory but never affect Contains.
func (s *TTLSet) Purge() {
	now := time.Now().UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.items {
		if now >= e.expiresAt {
			delete(s.items, k)
		}
	}
}

// Len returns the number of members, counting not-yet-purged expired ones.
func (s *TTLSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
