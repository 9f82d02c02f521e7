package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/drift/internal/domain"
	"github.com/driftlabs/drift/internal/feed"
)

// fakeChatRepo records writes and serves canned reads. Every method
// bumps the remote-call counter so tests can assert "zero remote calls".
type fakeChatRepo struct {
	mu           sync.Mutex
	calls        int
	created      []domain.Chat
	participants [][]domain.ChatParticipant
	touched      []uuid.UUID
	deleted      []uuid.UUID

	listForUserFn      func(userID uuid.UUID) ([]domain.Chat, error)
	listDirectFn       func(userID uuid.UUID) ([]domain.Chat, error)
	createErr          error
	addParticipantsErr error
}

func (r *fakeChatRepo) bump() {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

func (r *fakeChatRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeChatRepo) Create(_ context.Context, chat *domain.Chat) error {
	r.bump()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, *chat)
	return nil
}

func (r *fakeChatRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Chat, error) {
	r.bump()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.created {
		if c.ID == id {
			chat := c
			return &chat, nil
		}
	}
	return nil, nil
}

func (r *fakeChatRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	r.bump()
	if r.listForUserFn == nil {
		return nil, nil
	}
	return r.listForUserFn(userID)
}

func (r *fakeChatRepo) ListDirectForUser(_ context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	r.bump()
	if r.listDirectFn == nil {
		return nil, nil
	}
	return r.listDirectFn(userID)
}

func (r *fakeChatRepo) Touch(_ context.Context, id uuid.UUID, _ time.Time) error {
	r.bump()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	return nil
}

func (r *fakeChatRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.bump()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeChatRepo) AddParticipants(_ context.Context, participants []domain.ChatParticipant) error {
	r.bump()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addParticipantsErr != nil {
		return r.addParticipantsErr
	}
	ps := make([]domain.ChatParticipant, len(participants))
	copy(ps, participants)
	r.participants = append(r.participants, ps)
	return nil
}

type fakeMessageRepo struct {
	mu      sync.Mutex
	calls   int
	created []domain.Message

	listByChatFn func(chatID uuid.UUID) ([]domain.Message, error)
	getByIDFn    func(id uuid.UUID) (*domain.Message, error)
	createErr    error
}

func (r *fakeMessageRepo) bump() {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

func (r *fakeMessageRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.bump()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, *msg)
	return nil
}

// GetByID plays the data service's enrichment role: the stored row
// comes back with sender display info resolved.
func (r *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.bump()
	if r.getByIDFn != nil {
		return r.getByIDFn(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.created {
		if m.ID == id {
			msg := m
			msg.SenderDisplayName = "Resolved Sender"
			return &msg, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) ListByChat(_ context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	r.bump()
	if r.listByChatFn == nil {
		return nil, nil
	}
	return r.listByChatFn(chatID)
}

type fakeSession struct {
	user *domain.User
}

func (s *fakeSession) User() *domain.User {
	return s.user
}

func testUser(name string) *domain.User {
	return &domain.User{
		ID:          uuid.New(),
		Username:    name,
		DisplayName: name,
		Status:      domain.StatusOnline,
	}
}

func directChat(id uuid.UUID, userIDs ...uuid.UUID) domain.Chat {
	chat := domain.Chat{ID: id, Kind: domain.ChatKindDirect}
	for _, uid := range userIDs {
		chat.Participants = append(chat.Participants, domain.ChatParticipant{ChatID: id, UserID: uid})
	}
	return chat
}

func newTestStore(user *domain.User) (*Store, *fakeChatRepo, *fakeMessageRepo, *feed.Bus) {
	chatRepo := &fakeChatRepo{}
	msgRepo := &fakeMessageRepo{}
	bus := feed.NewBus()
	st := New(chatRepo, msgRepo, bus, &fakeSession{user: user})
	return st, chatRepo, msgRepo, bus
}
