package auth

import (
	"sync"
	"time"
)

// Revocations remembers the ids of logged-out tokens until they expire.
type Revocations struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // token id -> expiry
}

func NewRevocations() *Revocations {
	return &Revocations{revoked: make(map[string]time.Time)}
}

// Revoke records id as revoked until expires and drops entries that have
// already expired at now.
func (r *Revocations) Revoke(id string, expires, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, k)
		}
	}
	r.revoked[id] = expires
}

func (r *Revocations) IsRevoked(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[id]
	return ok
}

func (r *Revocations) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}
