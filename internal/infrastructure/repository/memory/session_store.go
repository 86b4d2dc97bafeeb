package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

const defaultSessionTTL = 30 * time.Minute

type entry struct {
	session   domain.GateSession
	expiresAt time.Time
}

// SessionStore keeps gate sessions in process memory. Suitable for
// single-instance deployments; expired entries are dropped lazily on Get
// and swept by PurgeExpired.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]entry
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]entry),
	}
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.GateSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get gate session: %w", domain.ErrSessionNotFound)
	}
	if s.now().After(e.expiresAt) {
		delete(s.sessions, id)
		return nil, fmt.Errorf("get gate session: %w", domain.ErrSessionNotFound)
	}
	session := e.session
	return &session, nil
}

func (s *SessionStore) Put(_ context.Context, session *domain.GateSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	copied.UpdatedAt = s.now()
	s.sessions[session.ID] = entry{
		session:   copied,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// PurgeExpired removes idle sessions and reports how many were dropped.
func (s *SessionStore) PurgeExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var purged int64
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}
