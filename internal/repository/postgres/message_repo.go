package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftlabs/drift/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, content, type, attachment, reply_to_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.Type,
		msg.Attachment, msg.ReplyToID, msg.CreatedAt, msg.UpdatedAt,
	)
	return err
}

const messageColumns = `
	m.id, m.chat_id, m.sender_id, m.content, m.type, m.attachment, m.reply_to_id,
	m.edited_at, m.deleted_at, m.created_at, m.updated_at,
	u.username, u.display_name, u.avatar_url,
	rm.id, ru.display_name, rm.content`

const messageJoins = `
	FROM messages m
	JOIN users u ON m.sender_id = u.id
	LEFT JOIN messages rm ON m.reply_to_id = rm.id
	LEFT JOIN users ru ON rm.sender_id = ru.id`

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT` + messageColumns + messageJoins + `
	WHERE m.id = $1`
	row := r.pool.QueryRow(ctx, query, id)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	reactions, err := r.loadReactions(ctx, []uuid.UUID{msg.ID})
	if err != nil {
		return nil, err
	}
	msg.Reactions = reactions[msg.ID]
	return msg, nil
}

func (r *MessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	query := `SELECT` + messageColumns + messageJoins + `
	WHERE m.chat_id = $1 AND m.deleted_at IS NULL
	ORDER BY m.created_at ASC`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	ids := make([]uuid.UUID, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	reactions, err := r.loadReactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].Reactions = reactions[messages[i].ID]
	}
	return messages, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	var replyID *uuid.UUID
	var replySenderName, replyContent *string
	err := row.Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type, &msg.Attachment, &msg.ReplyToID,
		&msg.EditedAt, &msg.DeletedAt, &msg.CreatedAt, &msg.UpdatedAt,
		&msg.SenderUsername, &msg.SenderDisplayName, &msg.SenderAvatarURL,
		&replyID, &replySenderName, &replyContent,
	)
	if err != nil {
		return nil, err
	}
	if replyID != nil {
		msg.ReplyTo = &domain.MessagePreview{ID: *replyID, Content: replyContent}
		if replySenderName != nil {
			msg.ReplyTo.SenderDisplayName = *replySenderName
		}
	}
	return &msg, nil
}

func (r *MessageRepo) loadReactions(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID][]domain.Reaction, error) {
	query := `
		SELECT message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id = ANY($1)
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMessage := make(map[uuid.UUID][]domain.Reaction)
	for rows.Next() {
		var re domain.Reaction
		if err := rows.Scan(&re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt); err != nil {
			return nil, err
		}
		byMessage[re.MessageID] = append(byMessage[re.MessageID], re)
	}
	return byMessage, rows.Err()
}
