package store

import (
	"sort"

	"github.com/google/uuid"

	"github.com/driftlabs/drift/internal/domain"
)

// AddTypingUser records that a user is typing in a chat, replacing any
// existing entry for the same (chat, user) pair. Purely local state.
func (s *Store) AddTypingUser(t domain.TypingIndicator) {
	s.mu.Lock()
	byUser, ok := s.typing[t.ChatID]
	if !ok {
		byUser = make(map[uuid.UUID]domain.TypingIndicator)
		s.typing[t.ChatID] = byUser
	}
	byUser[t.UserID] = t
	s.mu.Unlock()
	s.notify()
}

// RemoveTypingUser deletes the typing entry if present; removing an
// absent entry is a no-op.
func (s *Store) RemoveTypingUser(chatID, userID uuid.UUID) {
	s.mu.Lock()
	byUser, ok := s.typing[chatID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, present := byUser[userID]; !present {
		s.mu.Unlock()
		return
	}
	delete(byUser, userID)
	if len(byUser) == 0 {
		delete(s.typing, chatID)
	}
	s.mu.Unlock()
	s.notify()
}

// TypingUsers returns who is typing in a chat, ordered by user id for
// stable rendering.
func (s *Store) TypingUsers(chatID uuid.UUID) []domain.TypingIndicator {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser := s.typing[chatID]
	out := make([]domain.TypingIndicator, 0, len(byUser))
	for _, t := range byUser {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out
}
