// Package memory holds process-local stores used when Redis is disabled.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
)

// DefaultIdleTTL is used when NewRateLimitStore is given a non-positive TTL.
const DefaultIdleTTL = 10 * time.Minute

var errNonPositiveWindow = errors.New("rate limit: window must be positive")

type window struct {
	attempts  []time.Time
	expiresAt time.Time
}

// RateLimitStore is a mutex-guarded sliding window keyed by identifier.
// Counts are per process, so limits are not shared across replicas.
// Keys idle for longer than the TTL are swept, at most once per TTL.
type RateLimitStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	windows   map[string]*window
	nextSweep time.Time
}

func NewRateLimitStore(idleTTL time.Duration) *RateLimitStore {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &RateLimitStore{ttl: idleTTL, windows: make(map[string]*window)}
}

// Acquire trims, counts and conditionally records under one lock.
func (s *RateLimitStore) Acquire(_ context.Context, identifier string, limit int, span time.Duration, at time.Time) (port.RateLimitDecision, error) {
	if span <= 0 {
		return port.RateLimitDecision{}, errNonPositiveWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !at.Before(s.nextSweep) {
		s.sweep(at)
		s.nextSweep = at.Add(s.ttl)
	}

	w, ok := s.windows[identifier]
	if !ok || !at.Before(w.expiresAt) {
		w = &window{}
		s.windows[identifier] = w
	}

	threshold := at.Add(-span)
	start := sort.Search(len(w.attempts), func(i int) bool { return w.attempts[i].After(threshold) })
	w.attempts = w.attempts[start:]
	end := sort.Search(len(w.attempts), func(i int) bool { return w.attempts[i].After(at) })

	decision := port.RateLimitDecision{Count: end}
	if decision.Count < limit {
		w.attempts = append(w.attempts, time.Time{})
		copy(w.attempts[end+1:], w.attempts[end:])
		w.attempts[end] = at
		w.expiresAt = at.Add(max(s.ttl, span))
		decision.Allowed = true
	}
	if len(w.attempts) > 0 && !w.attempts[0].After(at) {
		decision.Oldest = w.attempts[0]
	}
	if len(w.attempts) == 0 {
		delete(s.windows, identifier)
	}

	return decision, nil
}

// Len reports how many identifiers are tracked.
func (s *RateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// sweep drops identifiers whose TTL elapsed. Callers hold mu.
func (s *RateLimitStore) sweep(now time.Time) {
	for id, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, id)
		}
	}
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
