package session

import (
	"context"
	"sync"
	"time"

	"ocbridge/pkg/logging"
)

// MemoryStore provides thread-safe in-memory session storage.
// Sessions idle for longer than the TTL are dropped by a background sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time

	// Cleanup configuration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryStore creates a new in-memory session store.
// It starts a background goroutine for periodic cleanup of expired sessions.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	ms := &MemoryStore{
		sessions:        make(map[string]*Session),
		ttl:             ttl,
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go ms.cleanupLoop()

	return ms
}

// Get returns a copy of the stored session.
func (ms *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	s, ok := ms.sessions[id]
	if !ok || ms.expired(s) {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Save stores a copy of s.
func (ms *MemoryStore) Save(_ context.Context, s *Session) error {
	c := s.Clone()
	c.UpdatedAt = ms.now()
	c.isNew = false

	ms.mu.Lock()
	ms.sessions[s.ID] = c
	ms.mu.Unlock()

	s.UpdatedAt = c.UpdatedAt
	s.isNew = false
	return nil
}

// Delete removes a session from the store.
func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.sessions, id)
	logging.Debug("Session", "Deleted session=%s", logging.TruncateSessionID(id))
	return nil
}

// Count returns the number of sessions in the store.
func (ms *MemoryStore) Count() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.sessions)
}

// Stop stops the background cleanup goroutine.
func (ms *MemoryStore) Stop() {
	ms.stopOnce.Do(func() { close(ms.stopCleanup) })
}

func (ms *MemoryStore) expired(s *Session) bool {
	if ms.ttl <= 0 {
		return false
	}
	return ms.now().Sub(s.UpdatedAt) > ms.ttl
}

// cleanupLoop periodically removes expired sessions from the store.
func (ms *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.cleanup()
		case <-ms.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired sessions from the store.
func (ms *MemoryStore) cleanup() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	count := 0
	for id, s := range ms.sessions {
		if ms.expired(s) {
			delete(ms.sessions, id)
			count++
		}
	}

	if count > 0 {
		logging.Debug("Session", "Cleaned up %d expired sessions", count)
	}
}
