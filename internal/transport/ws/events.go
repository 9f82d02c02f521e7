package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/drift/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeChatSubscribe   = "chat.subscribe"
	EventTypeChatUnsubscribe = "chat.unsubscribe"
	EventTypeMessageSend     = "message.send"
	EventTypeCreateDirect    = "chat.create_direct"
	EventTypeCreateGroup     = "chat.create_group"
	EventTypeChatsSearch     = "chats.search"
	EventTypeTypingStart     = "typing.start"
	EventTypeTypingStop      = "typing.stop"
	EventTypePing            = "ping"
)

// Event types - Server → Client
const (
	EventTypeStateChats    = "state.chats"
	EventTypeStateMessages = "state.messages"
	EventTypeStateTyping   = "state.typing"
	EventTypeChatCreated   = "chat.created"
	EventTypeSearchResult  = "chats.search_result"
	EventTypePong          = "pong"
	EventTypeError         = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ChatPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

type MessageSendPayload struct {
	ChatID    uuid.UUID  `json:"chat_id"`
	Content   string     `json:"content"`
	ReplyToID *uuid.UUID `json:"reply_to_id,omitempty"`
}

type CreateDirectPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type CreateGroupPayload struct {
	Name    string      `json:"name"`
	UserIDs []uuid.UUID `json:"user_ids"`
}

type SearchPayload struct {
	Query string `json:"query"`
}

// --- Server → Client payloads ---

type ChatsPayload struct {
	Chats   []domain.Chat `json:"chats"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

type MessagesPayload struct {
	ChatID   uuid.UUID        `json:"chat_id"`
	Messages []domain.Message `json:"messages"`
	Loading  bool             `json:"loading"`
}

type TypingStatePayload struct {
	ChatID uuid.UUID                `json:"chat_id"`
	Users  []domain.TypingIndicator `json:"users"`
}

type ChatCreatedPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
