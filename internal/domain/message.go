package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeVoice = "voice"
)

type Message struct {
	ID         uuid.UUID       `json:"id"`
	ChatID     uuid.UUID       `json:"chat_id"`
	SenderID   uuid.UUID       `json:"sender_id"`
	Content    *string         `json:"content,omitempty"`
	Type       string          `json:"type"`
	Attachment json.RawMessage `json:"attachment,omitempty"`
	ReplyToID  *uuid.UUID      `json:"reply_to_id,omitempty"`
	EditedAt   *time.Time      `json:"edited_at,omitempty"`
	DeletedAt  *time.Time      `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	// Joined fields
	SenderUsername    string          `json:"sender_username,omitempty"`
	SenderDisplayName string          `json:"sender_display_name,omitempty"`
	SenderAvatarURL   *string         `json:"sender_avatar_url,omitempty"`
	ReplyTo           *MessagePreview `json:"reply_to,omitempty"`
	Reactions         []Reaction      `json:"reactions,omitempty"`
}

// MessagePreview is the short form of a reply target shown above a
// message bubble.
type MessagePreview struct {
	ID                uuid.UUID `json:"id"`
	SenderDisplayName string    `json:"sender_display_name"`
	Content           *string   `json:"content,omitempty"`
}

type Reaction struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
