package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftlabs/drift/internal/domain"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Create(ctx context.Context, chat *domain.Chat) error {
	query := `
		INSERT INTO chats (id, kind, name, avatar_url, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		chat.ID, chat.Kind, chat.Name, chat.AvatarURL, chat.CreatedBy, chat.CreatedAt, chat.UpdatedAt,
	)
	return err
}

func (r *ChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT id, kind, name, avatar_url, created_by, created_at, updated_at
		FROM chats
		WHERE id = $1`
	var chat domain.Chat
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&chat.ID, &chat.Kind, &chat.Name, &chat.AvatarURL, &chat.CreatedBy, &chat.CreatedAt, &chat.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	participants, err := r.loadParticipants(ctx, []uuid.UUID{chat.ID})
	if err != nil {
		return nil, err
	}
	chat.Participants = participants[chat.ID]
	return &chat, nil
}

func (r *ChatRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	return r.list(ctx, userID, "")
}

func (r *ChatRepo) ListDirectForUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	return r.list(ctx, userID, domain.ChatKindDirect)
}

func (r *ChatRepo) list(ctx context.Context, userID uuid.UUID, kind string) ([]domain.Chat, error) {
	query := `
		SELECT c.id, c.kind, c.name, c.avatar_url, c.created_by, c.created_at, c.updated_at,
			lm.id, lm.sender_id, lm.content, lm.type, lm.created_at, lu.display_name
		FROM chats c
		JOIN chat_participants me ON me.chat_id = c.id AND me.user_id = $1
		LEFT JOIN LATERAL (
			SELECT m.id, m.sender_id, m.content, m.type, m.created_at
			FROM messages m
			WHERE m.chat_id = c.id AND m.deleted_at IS NULL
			ORDER BY m.created_at DESC
			LIMIT 1
		) lm ON true
		LEFT JOIN users lu ON lm.sender_id = lu.id
		WHERE $2 = '' OR c.kind = $2
		ORDER BY c.updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var chat domain.Chat
		var lmID, lmSenderID *uuid.UUID
		var lmContent, lmType, lmSenderName *string
		var lmCreatedAt *time.Time
		if err := rows.Scan(
			&chat.ID, &chat.Kind, &chat.Name, &chat.AvatarURL, &chat.CreatedBy, &chat.CreatedAt, &chat.UpdatedAt,
			&lmID, &lmSenderID, &lmContent, &lmType, &lmCreatedAt, &lmSenderName,
		); err != nil {
			return nil, err
		}
		if lmID != nil {
			chat.LastMessage = &domain.Message{
				ID:        *lmID,
				ChatID:    chat.ID,
				SenderID:  *lmSenderID,
				Content:   lmContent,
				Type:      *lmType,
				CreatedAt: *lmCreatedAt,
			}
			if lmSenderName != nil {
				chat.LastMessage.SenderDisplayName = *lmSenderName
			}
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return chats, nil
	}

	ids := make([]uuid.UUID, len(chats))
	for i, c := range chats {
		ids[i] = c.ID
	}
	participants, err := r.loadParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		chats[i].Participants = participants[chats[i].ID]
	}
	return chats, nil
}

func (r *ChatRepo) loadParticipants(ctx context.Context, chatIDs []uuid.UUID) (map[uuid.UUID][]domain.ChatParticipant, error) {
	query := `
		SELECT cp.chat_id, cp.user_id, cp.is_admin, cp.joined_at,
			u.username, u.display_name, u.avatar_url, u.status
		FROM chat_participants cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.chat_id = ANY($1)
		ORDER BY cp.joined_at`

	rows, err := r.pool.Query(ctx, query, chatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byChat := make(map[uuid.UUID][]domain.ChatParticipant)
	for rows.Next() {
		var p domain.ChatParticipant
		if err := rows.Scan(
			&p.ChatID, &p.UserID, &p.IsAdmin, &p.JoinedAt,
			&p.Username, &p.DisplayName, &p.AvatarURL, &p.Status,
		); err != nil {
			return nil, err
		}
		byChat[p.ChatID] = append(byChat[p.ChatID], p)
	}
	return byChat, rows.Err()
}

func (r *ChatRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE chats SET updated_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *ChatRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	return err
}

// AddParticipants inserts all rows in one batched request.
func (r *ChatRepo) AddParticipants(ctx context.Context, participants []domain.ChatParticipant) error {
	batch := &pgx.Batch{}
	query := `INSERT INTO chat_participants (chat_id, user_id, is_admin, joined_at) VALUES ($1, $2, $3, $4)`
	for _, p := range participants {
		batch.Queue(query, p.ChatID, p.UserID, p.IsAdmin, p.JoinedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range participants {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}
