package repository

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	token     string
	expiresAt time.Time
}

// MemorySessionRepository is a process-local session store. It honours TTLs
// and is safe for concurrent use, but it is not shared between instances.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[int]memorySession
	now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[int]memorySession),
		now:      time.Now,
	}
}

// NewMemorySessionRepositoryWithClock is used by tests that need to move
// time forward.
func NewMemorySessionRepositoryWithClock(now func() time.Time) *MemorySessionRepository {
	r := NewMemorySessionRepository()
	r.now = now
	return r
}

// live returns the unexpired record for userID, dropping it if expired.
// Callers hold r.mu.
func (r *MemorySessionRepository) live(userID int) (memorySession, bool) {
	s, ok := r.sessions[userID]
	if !ok {
		return memorySession{}, false
	}
	if !r.now().Before(s.expiresAt) {
		delete(r.sessions, userID)
		return memorySession{}, false
	}
	return s, true
}

func (r *MemorySessionRepository) Set(_ context.Context, userID int, token string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = memorySession{token: token, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, userID int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.live(userID)
	if !ok {
		return "", ErrSessionNotFound
	}
	return s.token, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, userID int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live(userID); !ok {
		return 0, nil
	}
	delete(r.sessions, userID)
	return 1, nil
}

func (r *MemorySessionRepository) CompareAndSwap(_ context.Context, userID int, oldToken, newToken string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.live(userID)
	if !ok || s.token != oldToken {
		return false, nil
	}
	r.sessions[userID] = memorySession{token: newToken, expiresAt: r.now().Add(ttl)}
	return true, nil
}

// Len reports the number of unexpired records.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id := range r.sessions {
		if _, ok := r.live(id); ok {
			n++
		}
	}
	return n
}
