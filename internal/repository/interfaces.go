package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/drift/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePresence(ctx context.Context, id uuid.UUID, status string, lastSeen time.Time) error
}

type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	// ListForUser returns every chat the user participates in, each with
	// its full participant list, most recently updated first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error)
	// ListDirectForUser is ListForUser restricted to direct chats.
	ListDirectForUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error)
	// Touch bumps the chat's updated_at so it sorts to the top of listings.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddParticipants(ctx context.Context, participants []domain.ChatParticipant) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// GetByID returns the message with sender display info, reply preview
	// and reactions resolved, or nil if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListByChat returns the chat's non-deleted history in ascending
	// creation order, enriched the same way as GetByID.
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error)
}
