package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chat kinds. A direct chat has exactly two participants and no name;
// a group chat is named and can have any number of members.
const (
	ChatKindDirect = "direct"
	ChatKindGroup  = "group"
)

type Chat struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Name      *string   `json:"name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Joined fields
	Participants []ChatParticipant `json:"participants,omitempty"`
	LastMessage  *Message          `json:"last_message,omitempty"`
}

type ChatParticipant struct {
	ChatID   uuid.UUID `json:"chat_id"`
	UserID   uuid.UUID `json:"user_id"`
	IsAdmin  bool      `json:"is_admin"`
	JoinedAt time.Time `json:"joined_at"`
	// Joined fields
	Username    string  `json:"username,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Status      string  `json:"status,omitempty"`
}

// DisplayName returns the title to render for a chat. Group chats use
// their own name; direct chats are titled after the other participant.
func (c *Chat) DisplayName(viewerID uuid.UUID) string {
	if c.Kind == ChatKindGroup {
		if c.Name != nil {
			return *c.Name
		}
		return ""
	}
	for _, p := range c.Participants {
		if p.UserID != viewerID {
			if p.DisplayName != "" {
				return p.DisplayName
			}
			return p.Username
		}
	}
	return ""
}

// HasParticipant reports whether userID is a member of the chat.
func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// MatchesSearch reports whether the chat's display name contains the
// query, case-insensitively. An empty query matches everything.
func (c *Chat) MatchesSearch(viewerID uuid.UUID, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	name := c.DisplayName(viewerID)
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}
