package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	expiresAt time.Time
}

// Store keeps authenticated sessions in process memory. A session carries no
// identity beyond the authenticated flag itself, so expiry and logout both
// collapse to deleting the entry. Expired entries are evicted lazily on read;
// there is no sweeper goroutine.
type Store struct {
	mu       sync.Mutex
	sessions map[string]session
	now      func() time.Time
}

func New() *Store {
	return &Store{
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

func (s *Store) Create(ttl time.Duration) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{expiresAt: s.now().Add(ttl)}
	return token
}

func (s *Store) IsAuthenticated(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok {
		return false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.sessions, token)
		return false
	}
	return true
}

func (s *Store) Destroy(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
