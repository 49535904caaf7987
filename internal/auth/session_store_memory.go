package auth

import (
	"context"
	"sync"
	"time"
)

// InMemorySessionStore keeps sessions in process memory, indexed by user so a
// password change can revoke every login at once. Sessions vanish on restart.
type InMemorySessionStore struct {
	mu     sync.RWMutex
	byID   map[string]Session
	byUser map[int64]map[string]struct{}
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		byID:   make(map[string]Session),
		byUser: make(map[int64]map[string]struct{}),
	}
}

func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[session.ID]; ok && prev.UserID != session.UserID {
		s.unindex(prev)
	}
	s.byID[session.ID] = session
	ids, ok := s.byUser[session.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[session.UserID] = ids
	}
	ids[session.ID] = struct{}{}
	return nil
}

func (s *InMemorySessionStore) Find(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byID[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.byID[id]; ok {
		s.remove(session)
	}
	return nil
}

// DeleteByUser revokes every session owned by userID.
func (s *InMemorySessionStore) DeleteByUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.byUser[userID] {
		delete(s.byID, id)
	}
	delete(s.byUser, userID)
	return nil
}

// DeleteExpired drops sessions whose expiry is before now and reports how many went.
func (s *InMemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for _, session := range s.byID {
		if session.ExpiresAt.Before(now) {
			s.remove(session)
			removed++
		}
	}
	return removed, nil
}

// Has reports whether id is stored.
func (s *InMemorySessionStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// remove and unindex expect s.mu to be held for writing.
func (s *InMemorySessionStore) remove(session Session) {
	delete(s.byID, session.ID)
	s.unindex(session)
}

func (s *InMemorySessionStore) unindex(session Session) {
	ids := s.byUser[session.UserID]
	delete(ids, session.ID)
	if len(ids) == 0 {
		delete(s.byUser, session.UserID)
	}
}
