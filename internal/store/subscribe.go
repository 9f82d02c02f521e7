package store

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"github.com/driftlabs/drift/internal/feed"
)

// SubscribeToChat opens a live feed on message inserts for one chat.
// The feed delivers the raw inserted row, so each event re-fetches the
// full message to resolve sender and reply-target info before
// appending it (skipping ids already present). The returned cancel is
// idempotent; an enrichment fetch already in flight when cancel is
// called may still complete and append once.
func (s *Store) SubscribeToChat(chatID uuid.UUID) func() {
	filter := &feed.Filter{Column: "chat_id", Equals: chatID.String()}
	cancel, err := s.feed.Subscribe("messages", filter, feed.KindInsert, func(e feed.Event) {
		s.handleMessageInsert(chatID, e)
	})
	if err != nil {
		s.fail("subscribing to chat", err)
		return func() {}
	}
	return cancel
}

// SubscribeToChats opens a live feed on any change to the chat table
// and refreshes the whole collection on each event. Coarse, but chat
// lists are small and events are rare.
func (s *Store) SubscribeToChats() func() {
	cancel, err := s.feed.Subscribe("chats", nil, feed.KindAll, func(feed.Event) {
		if err := s.LoadChats(context.Background()); err != nil {
			log.Printf("store: refreshing chats from feed: %v", err)
		}
	})
	if err != nil {
		s.fail("subscribing to chat list", err)
		return func() {}
	}
	return cancel
}

func (s *Store) handleMessageInsert(chatID uuid.UUID, e feed.Event) {
	var row struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(e.Row, &row); err != nil || row.ID == uuid.Nil {
		return
	}

	msg, err := s.msgRepo.GetByID(context.Background(), row.ID)
	if err != nil {
		s.fail("fetching new message", err)
		return
	}
	if msg == nil || msg.DeletedAt != nil {
		return
	}

	s.mu.Lock()
	for _, m := range s.history[chatID] {
		if m.ID == msg.ID {
			s.mu.Unlock()
			return
		}
	}
	s.history[chatID] = append(s.history[chatID], *msg)
	s.mu.Unlock()
	s.notify()
}
