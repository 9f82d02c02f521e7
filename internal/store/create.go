package store

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/drift/internal/domain"
	"github.com/driftlabs/drift/internal/feed"
)

// SendMessage submits a new text message and bumps the parent chat's
// activity timestamp. The message is not appended locally: it becomes
// visible through the chat's feed subscription (or the next
// LoadMessages), which delivers the row with sender info resolved.
func (s *Store) SendMessage(ctx context.Context, chatID uuid.UUID, text string, replyTo *uuid.UUID) error {
	user := s.session.User()
	if user == nil {
		return ErrNotAuthenticated
	}

	now := time.Now()
	msg := &domain.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  user.ID,
		Content:   &text,
		Type:      domain.MessageTypeText,
		ReplyToID: replyTo,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return s.fail("sending message", err)
	}
	if err := s.chatRepo.Touch(ctx, chatID, now); err != nil {
		return s.fail("updating chat activity", err)
	}

	s.publish("messages", feed.KindInsert, msg)
	s.publish("chats", feed.KindUpdate, map[string]any{"id": chatID, "updated_at": now})
	return nil
}

// CreateDirectChat returns the existing direct chat with the given
// user if one exists, creating it otherwise. At most one direct chat
// exists per pair of users.
func (s *Store) CreateDirectChat(ctx context.Context, otherID uuid.UUID) (uuid.UUID, error) {
	user := s.session.User()
	if user == nil {
		return uuid.Nil, ErrNotAuthenticated
	}
	if otherID == user.ID {
		return uuid.Nil, ErrSelfChat
	}

	existing, err := s.chatRepo.ListDirectForUser(ctx, user.ID)
	if err != nil {
		return uuid.Nil, s.fail("looking up direct chat", err)
	}
	for _, c := range existing {
		if len(c.Participants) == 2 && c.HasParticipant(user.ID) && c.HasParticipant(otherID) {
			return c.ID, nil
		}
	}

	now := time.Now()
	chat := &domain.Chat{
		ID:        uuid.New(),
		Kind:      domain.ChatKindDirect,
		CreatedBy: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	participants := []domain.ChatParticipant{
		{ChatID: chat.ID, UserID: user.ID, JoinedAt: now},
		{ChatID: chat.ID, UserID: otherID, JoinedAt: now},
	}
	if err := s.createChat(ctx, chat, participants); err != nil {
		return uuid.Nil, err
	}
	return chat.ID, nil
}

// CreateGroupChat creates a named group chat owned by the current
// user, with the creator as admin and every listed user as a regular
// member.
func (s *Store) CreateGroupChat(ctx context.Context, name string, userIDs []uuid.UUID) (uuid.UUID, error) {
	user := s.session.User()
	if user == nil {
		return uuid.Nil, ErrNotAuthenticated
	}

	now := time.Now()
	chat := &domain.Chat{
		ID:        uuid.New(),
		Kind:      domain.ChatKindGroup,
		Name:      &name,
		CreatedBy: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	participants := []domain.ChatParticipant{
		{ChatID: chat.ID, UserID: user.ID, IsAdmin: true, JoinedAt: now},
	}
	seen := map[uuid.UUID]struct{}{user.ID: {}}
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, domain.ChatParticipant{ChatID: chat.ID, UserID: id, JoinedAt: now})
	}

	if err := s.createChat(ctx, chat, participants); err != nil {
		return uuid.Nil, err
	}
	return chat.ID, nil
}

// createChat inserts the chat and its participants. If the participant
// insert fails the chat is deleted again, so a chat is never visible
// without participants.
func (s *Store) createChat(ctx context.Context, chat *domain.Chat, participants []domain.ChatParticipant) error {
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return s.fail("creating chat", err)
	}
	if err := s.chatRepo.AddParticipants(ctx, participants); err != nil {
		if derr := s.chatRepo.Delete(ctx, chat.ID); derr != nil {
			log.Printf("store: orphaned chat %s left behind: %v", chat.ID, derr)
		}
		return s.fail("adding participants", err)
	}

	s.publish("chats", feed.KindInsert, chat)
	return nil
}
