package domain

import "github.com/google/uuid"

// TypingIndicator is ephemeral client state, never persisted. At most
// one entry exists per (chat, user) pair; lifetime is governed by
// explicit start/stop signals.
type TypingIndicator struct {
	ChatID      uuid.UUID `json:"chat_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
}
