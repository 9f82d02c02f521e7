package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/drift/internal/domain"
)

func TestTypingAtMostOneEntryPerPair(t *testing.T) {
	st, _, _, _ := newTestStore(testUser("u1"))
	chatID, userID := uuid.New(), uuid.New()

	st.AddTypingUser(domain.TypingIndicator{ChatID: chatID, UserID: userID, DisplayName: "Maya"})
	st.AddTypingUser(domain.TypingIndicator{ChatID: chatID, UserID: userID, DisplayName: "Maya M."})

	typing := st.TypingUsers(chatID)
	require.Len(t, typing, 1)
	assert.Equal(t, "Maya M.", typing[0].DisplayName, "add replaces the existing entry")
}

func TestTypingRemoveAbsentIsNoop(t *testing.T) {
	st, _, _, _ := newTestStore(testUser("u1"))
	chatID := uuid.New()

	st.RemoveTypingUser(chatID, uuid.New())
	assert.Empty(t, st.TypingUsers(chatID))
}

func TestTypingScopedPerChat(t *testing.T) {
	st, _, _, _ := newTestStore(testUser("u1"))
	chatA, chatB := uuid.New(), uuid.New()
	userID := uuid.New()

	st.AddTypingUser(domain.TypingIndicator{ChatID: chatA, UserID: userID})
	st.AddTypingUser(domain.TypingIndicator{ChatID: chatB, UserID: userID})
	st.RemoveTypingUser(chatA, userID)

	assert.Empty(t, st.TypingUsers(chatA))
	assert.Len(t, st.TypingUsers(chatB), 1)
}

// Replaying any add/remove sequence against a plain map must match the
// store's final typing membership.
func TestTypingSequenceReplay(t *testing.T) {
	st, _, _, _ := newTestStore(testUser("u1"))
	chatID := uuid.New()
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	type step struct {
		add  bool
		user int
	}
	sequence := []step{
		{true, 0}, {true, 1}, {false, 0}, {true, 2},
		{true, 1}, {false, 2}, {false, 2}, {true, 0},
	}

	expected := map[uuid.UUID]bool{}
	for _, s := range sequence {
		if s.add {
			st.AddTypingUser(domain.TypingIndicator{ChatID: chatID, UserID: users[s.user]})
			expected[users[s.user]] = true
		} else {
			st.RemoveTypingUser(chatID, users[s.user])
			delete(expected, users[s.user])
		}
	}

	got := map[uuid.UUID]bool{}
	for _, ti := range st.TypingUsers(chatID) {
		got[ti.UserID] = true
	}
	assert.Equal(t, expected, got)
}
