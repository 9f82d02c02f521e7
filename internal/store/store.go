// Package store maintains a consistent, queryable snapshot of one
// session's chats, per-chat message history and typing indicators. It
// is kept in sync with the data service via pull (loads) and push
// (feed subscriptions); renderers observe it through OnChange and read
// copied snapshots.
package store

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/driftlabs/drift/internal/domain"
	"github.com/driftlabs/drift/internal/feed"
	"github.com/driftlabs/drift/internal/repository"
)

// Session resolves the currently authenticated user, or nil.
type Session interface {
	User() *domain.User
}

// Feed is both halves of the update feed: the store subscribes for
// remote changes and publishes its own writes.
type Feed interface {
	feed.Feed
	feed.Publisher
}

type Store struct {
	chatRepo repository.ChatRepository
	msgRepo  repository.MessageRepository
	feed     Feed
	session  Session

	mu             sync.Mutex
	chats          []domain.Chat
	history        map[uuid.UUID][]domain.Message
	typing         map[uuid.UUID]map[uuid.UUID]domain.TypingIndicator
	errMsg         string
	loading        bool
	loadingHistory map[uuid.UUID]bool

	// Monotonic issue counters fence stale fetches: a completed load is
	// discarded if a newer load for the same key was issued meanwhile.
	chatsIssue   uint64
	historyIssue map[uuid.UUID]uint64

	observers    map[int]func()
	nextObserver int
}

func New(chatRepo repository.ChatRepository, msgRepo repository.MessageRepository, fd Feed, session Session) *Store {
	return &Store{
		chatRepo:       chatRepo,
		msgRepo:        msgRepo,
		feed:           fd,
		session:        session,
		history:        make(map[uuid.UUID][]domain.Message),
		typing:         make(map[uuid.UUID]map[uuid.UUID]domain.TypingIndicator),
		loadingHistory: make(map[uuid.UUID]bool),
		historyIssue:   make(map[uuid.UUID]uint64),
		observers:      make(map[int]func()),
	}
}

// LoadChats replaces the whole chat collection with a fresh fetch,
// most recently updated first. On failure the previous collection is
// left untouched and the error message is surfaced.
func (s *Store) LoadChats(ctx context.Context) error {
	user := s.session.User()
	if user == nil {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	s.chatsIssue++
	seq := s.chatsIssue
	s.loading = true
	s.mu.Unlock()
	s.notify()

	chats, err := s.chatRepo.ListForUser(ctx, user.ID)

	s.mu.Lock()
	if seq != s.chatsIssue {
		// A newer load was issued while this one was in flight.
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		rerr := remoteError("loading chats", err)
		s.errMsg = rerr.Message
		s.mu.Unlock()
		s.notify()
		return rerr
	}
	s.chats = chats
	s.mu.Unlock()
	s.notify()
	return nil
}

// LoadMessages replaces one chat's message history with a fresh fetch:
// non-deleted messages in ascending creation order, with sender and
// reply-target info resolved. Other chats' histories are untouched.
func (s *Store) LoadMessages(ctx context.Context, chatID uuid.UUID) error {
	s.mu.Lock()
	s.historyIssue[chatID]++
	seq := s.historyIssue[chatID]
	s.loadingHistory[chatID] = true
	s.mu.Unlock()
	s.notify()

	messages, err := s.msgRepo.ListByChat(ctx, chatID)

	s.mu.Lock()
	if seq != s.historyIssue[chatID] {
		s.mu.Unlock()
		return nil
	}
	delete(s.loadingHistory, chatID)
	if err != nil {
		rerr := remoteError("loading messages", err)
		s.errMsg = rerr.Message
		s.mu.Unlock()
		s.notify()
		return rerr
	}
	s.history[chatID] = messages
	s.mu.Unlock()
	s.notify()
	return nil
}

// ClearError resets the surfaced error message; nothing else changes.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

// Err returns the last surfaced error message, empty if none.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Loading reports whether a chat-list load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LoadingMessages reports whether a history load for the chat is in flight.
func (s *Store) LoadingMessages(chatID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingHistory[chatID]
}

// Chats returns a snapshot of the chat collection.
func (s *Store) Chats() []domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyChats(s.chats)
}

// SearchChats returns the chats whose display name matches the query.
func (s *Store) SearchChats(query string) []domain.Chat {
	viewerID := uuid.Nil
	if user := s.session.User(); user != nil {
		viewerID = user.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Chat
	for _, c := range s.chats {
		if c.MatchesSearch(viewerID, query) {
			out = append(out, c)
		}
	}
	return copyChats(out)
}

// Messages returns a snapshot of one chat's history.
func (s *Store) Messages(chatID uuid.UUID) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMessages(s.history[chatID])
}

// OnChange registers an observer invoked after every state change. The
// returned cancel func is idempotent.
func (s *Store) OnChange(fn func()) func() {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// fail records the backend message for display and returns the
// wrapped error. The error field is shared across operations, last
// write wins.
func (s *Store) fail(op string, err error) *RemoteError {
	rerr := remoteError(op, err)
	s.mu.Lock()
	s.errMsg = rerr.Message
	s.mu.Unlock()
	s.notify()
	return rerr
}

// publish forwards a write to the feed. Feed failures do not fail the
// operation that already committed; they are logged and the change
// becomes visible on the next full load.
func (s *Store) publish(table string, kind feed.Kind, row any) {
	if err := s.feed.Publish(table, kind, row); err != nil {
		log.Printf("store: publishing %s %s event: %v", table, kind, err)
	}
}

func copyChats(chats []domain.Chat) []domain.Chat {
	out := make([]domain.Chat, len(chats))
	copy(out, chats)
	for i := range out {
		if out[i].Participants != nil {
			ps := make([]domain.ChatParticipant, len(out[i].Participants))
			copy(ps, out[i].Participants)
			out[i].Participants = ps
		}
		if out[i].LastMessage != nil {
			lm := *out[i].LastMessage
			out[i].LastMessage = &lm
		}
	}
	return out
}

func copyMessages(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, len(messages))
	copy(out, messages)
	for i := range out {
		if out[i].Reactions != nil {
			rs := make([]domain.Reaction, len(out[i].Reactions))
			copy(rs, out[i].Reactions)
			out[i].Reactions = rs
		}
		if out[i].ReplyTo != nil {
			rt := *out[i].ReplyTo
			out[i].ReplyTo = &rt
		}
	}
	return out
}
