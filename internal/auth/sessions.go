package auth

import (
	"sync"
	"time"
)

type Session struct {
	Token     string    `json:"token"`
	ProfileID string    `json:"profile_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps bearer tokens in memory. Sessions die with the process;
// staff sign in again after a restart.
type SessionStore struct {
	mutex    sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	store := &SessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
	}
	go store.janitor()
	return store
}

func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) Put(session Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sessions[session.Token] = session
}

func (s *SessionStore) Get(token string) (Session, bool) {
	s.mutex.RLock()
	session, ok := s.sessions[token]
	s.mutex.RUnlock()

	if !ok {
		return Session{}, false
	}
	if time.Now().After(session.ExpiresAt) {
		s.Delete(token)
		return Session{}, false
	}
	return session, true
}

func (s *SessionStore) Delete(token string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.sessions, token)
}

// janitor sweeps expired sessions so abandoned tokens do not pile up.
func (s *SessionStore) janitor() {
	for {
		time.Sleep(time.Minute)
		now := time.Now()
		s.mutex.Lock()
		for token, session := range s.sessions {
			if now.After(session.ExpiresAt) {
				delete(s.sessions, token)
			}
		}
		s.mutex.Unlock()
	}
}
