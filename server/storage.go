package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// SessionStore is the capability the session manager depends on. The
// core never touches a concrete cookie or storage mechanism directly.
type SessionStore interface {
	SaveSession(sess Session)
	GetSession(id string) (Session, bool)
	DeleteSession(id string)
}

// InMemoryStore keeps ephemeral state for sessions and in-flight
// authentication transactions. Each attempt's record is isolated by its
// own state value; no cross-attempt locking beyond the map mutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	pending  map[string]PendingAuth
}

// NewInMemoryStore constructs the store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Session),
		pending:  make(map[string]PendingAuth),
	}
}

// NewID generates a random identifier.
func (s *InMemoryStore) NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte("fallbackid"))
	}
	return hex.EncodeToString(buf)
}

// SaveSession stores or replaces a session.
func (s *InMemoryStore) SaveSession(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// GetSession retrieves a session by ID.
func (s *InMemoryStore) GetSession(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// DeleteSession removes a session.
func (s *InMemoryStore) DeleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// SavePendingAuth stores a transaction awaiting the IdP callback.
func (s *InMemoryStore) SavePendingAuth(p PendingAuth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.State] = p
}

// ConsumePendingAuth retrieves and removes a pending transaction. Expired
// records are dropped and reported as absent; a state value can only ever
// be consumed once.
func (s *InMemoryStore) ConsumePendingAuth(state string) (PendingAuth, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[state]
	if !ok {
		return PendingAuth{}, false
	}
	delete(s.pending, state)
	if time.Now().After(p.ExpiresAt) {
		return PendingAuth{}, false
	}
	return p, true
}
