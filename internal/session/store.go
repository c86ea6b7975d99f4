package session

import (
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"

	"webmcp-discovery-broker/internal/browserpool"
)

// DefaultTTL is used when Create is called without an explicit ttl.
const DefaultTTL = 15 * time.Minute

// SweepInterval is the cadence of the background TTL sweeper.
const SweepInterval = 60 * time.Second

// Store is the keyed map of session id -> Session, with a
// background sweeper evicting expired entries.
type Store struct {
	pool *browserpool.Pool

	mu       sync.RWMutex
	sessions map[string]*Session

	stop chan struct{}
	once sync.Once
}

// NewStore builds a Store bound to pool, which owns the actual browser
// processes each session references.
func NewStore(pool *browserpool.Pool) *Store {
	s := &Store{
		pool:     pool,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Create builds a fresh Session for the given browser handle, stores it,
// and returns it. ttl <= 0 uses DefaultTTL.
func (s *Store) Create(browserID string, page *rod.Page, url string, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		BrowserID: browserID,
		Page:      page,
		URL:       url,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Registry:  NewElementRegistry(),
	}
	sess.installPageLogging()

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// Get returns the session for id, evicting and returning (nil, false) if it
// has expired.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if sess.Expired(time.Now()) {
		s.Close(id)
		return nil, false
	}
	return sess, true
}

// Close closes the session's owning browser and removes the entry.
// Idempotent: closing an unknown or already-closed id is a no-op.
func (s *Store) Close(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		s.pool.Release(sess.BrowserID)
	}
}

// CloseAll closes every tracked session's browser and clears the store.
func (s *Store) CloseAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Close(id)
	}
}

// ActiveCount returns the number of sessions currently tracked, without
// evicting expired ones (use Get for eviction-on-read semantics).
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown stops the background sweeper. Safe to call multiple times.
func (s *Store) Shutdown() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *Store) sweepExpired() {
	now := time.Now()

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.Close(id)
	}
}
