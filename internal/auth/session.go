package auth

import (
	"sync"

	"github.com/driftlabs/drift/internal/domain"
)

// Session holds one connection's authenticated identity. A cleared
// session makes every store operation that needs a user fail with its
// not-authenticated error.
type Session struct {
	mu   sync.RWMutex
	user *domain.User
}

func NewSession(user *domain.User) *Session {
	return &Session{user: user}
}

func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Clear drops the identity on sign-out.
func (s *Session) Clear() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}
