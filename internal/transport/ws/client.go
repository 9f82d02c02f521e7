package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/driftlabs/drift/internal/domain"
	"github.com/driftlabs/drift/internal/feed"
	"github.com/driftlabs/drift/internal/store"
	"github.com/driftlabs/drift/pkg/validator"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// Client is one browser connection. It owns a per-session store and
// relays state snapshots whenever the store changes.
type Client struct {
	conn  *websocket.Conn
	store *store.Store
	feed  store.Feed
	user  *domain.User

	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	chatSubs map[uuid.UUID][]func()
	cancels  []func()

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, st *store.Store, fd store.Feed, user *domain.User) *Client {
	return &Client{
		conn:     conn,
		store:    st,
		feed:     fd,
		user:     user,
		send:     make(chan []byte, sendBufSize),
		done:     make(chan struct{}),
		chatSubs: make(map[uuid.UUID][]func()),
	}
}

// Start loads the chat list, opens the chat-collection subscription
// and begins pushing snapshots on store changes.
func (c *Client) Start() {
	cancelChats := c.store.SubscribeToChats()
	cancelChanges := c.store.OnChange(c.pushState)

	c.mu.Lock()
	c.cancels = append(c.cancels, cancelChats, cancelChanges)
	c.mu.Unlock()

	go func() {
		if err := c.store.LoadChats(context.Background()); err != nil {
			log.Printf("ws: initial chat load for %s: %v", c.user.ID, err)
		}
	}()
}

// Close tears down every subscription. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		cancels := c.cancels
		c.cancels = nil
		for _, subs := range c.chatSubs {
			cancels = append(cancels, subs...)
		}
		c.chatSubs = make(map[uuid.UUID][]func())
		c.mu.Unlock()

		for _, cancel := range cancels {
			cancel()
		}
		close(c.done)
	})
}

// ReadPump reads client events until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.Close()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("ws: client %s disconnected", c.user.ID)
			} else {
				log.Printf("ws: read error from %s: %v", c.user.ID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes queued events to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Printf("ws: write error to %s: %v", c.user.ID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Printf("ws: ping error to %s: %v", c.user.ID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeChatSubscribe:
		var p ChatPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid chat.subscribe payload")
			return
		}
		c.subscribeChat(p.ChatID)

	case EventTypeChatUnsubscribe:
		var p ChatPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid chat.unsubscribe payload")
			return
		}
		c.unsubscribeChat(p.ChatID)

	case EventTypeMessageSend:
		var p MessageSendPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid message.send payload")
			return
		}
		if errs := validator.ValidateMessage(p.Content); errs.HasErrors() {
			c.sendError("INVALID_MESSAGE", errs["content"])
			return
		}
		go func() {
			if err := c.store.SendMessage(context.Background(), p.ChatID, p.Content, p.ReplyToID); err != nil {
				c.sendStoreError("sending message", err)
			}
		}()

	case EventTypeCreateDirect:
		var p CreateDirectPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid chat.create_direct payload")
			return
		}
		go func() {
			chatID, err := c.store.CreateDirectChat(context.Background(), p.UserID)
			if err != nil {
				c.sendStoreError("creating direct chat", err)
				return
			}
			c.sendEvent(EventTypeChatCreated, ChatCreatedPayload{ChatID: chatID})
		}()

	case EventTypeCreateGroup:
		var p CreateGroupPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid chat.create_group payload")
			return
		}
		if errs := validator.ValidateGroupChat(p.Name); errs.HasErrors() {
			c.sendError("INVALID_NAME", errs["name"])
			return
		}
		go func() {
			chatID, err := c.store.CreateGroupChat(context.Background(), p.Name, p.UserIDs)
			if err != nil {
				c.sendStoreError("creating group chat", err)
				return
			}
			c.sendEvent(EventTypeChatCreated, ChatCreatedPayload{ChatID: chatID})
		}()

	case EventTypeChatsSearch:
		var p SearchPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid chats.search payload")
			return
		}
		c.sendEvent(EventTypeSearchResult, ChatsPayload{Chats: c.store.SearchChats(p.Query)})

	case EventTypeTypingStart, EventTypeTypingStop:
		var p ChatPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid typing payload")
			return
		}
		c.publishTyping(p.ChatID, event.Type == EventTypeTypingStart)

	case EventTypePing:
		c.sendEvent(EventTypePong, nil)

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

// subscribeChat opens the message feed for a chat plus its typing
// relay, then kicks off the history load. Subscribing twice is a no-op.
func (c *Client) subscribeChat(chatID uuid.UUID) {
	c.mu.Lock()
	if _, ok := c.chatSubs[chatID]; ok {
		c.mu.Unlock()
		return
	}
	cancelMessages := c.store.SubscribeToChat(chatID)
	cancelTyping := c.subscribeTyping(chatID)
	c.chatSubs[chatID] = []func(){cancelMessages, cancelTyping}
	c.mu.Unlock()

	go func() {
		if err := c.store.LoadMessages(context.Background(), chatID); err != nil {
			log.Printf("ws: loading messages for %s: %v", chatID, err)
		}
	}()
}

func (c *Client) unsubscribeChat(chatID uuid.UUID) {
	c.mu.Lock()
	subs, ok := c.chatSubs[chatID]
	delete(c.chatSubs, chatID)
	c.mu.Unlock()

	if !ok {
		return
	}
	for _, cancel := range subs {
		cancel()
	}
}

// subscribeTyping relays typing feed events into the session's local
// typing set, skipping the user's own signals.
func (c *Client) subscribeTyping(chatID uuid.UUID) func() {
	filter := &feed.Filter{Column: "chat_id", Equals: chatID.String()}
	cancel, err := c.feed.Subscribe("typing", filter, feed.KindAll, func(e feed.Event) {
		var t domain.TypingIndicator
		if err := json.Unmarshal(e.Row, &t); err != nil {
			return
		}
		if t.UserID == c.user.ID {
			return
		}
		switch e.Kind {
		case feed.KindInsert:
			c.store.AddTypingUser(t)
		case feed.KindDelete:
			c.store.RemoveTypingUser(t.ChatID, t.UserID)
		}
	})
	if err != nil {
		log.Printf("ws: typing subscription for %s: %v", chatID, err)
		return func() {}
	}
	return cancel
}

func (c *Client) publishTyping(chatID uuid.UUID, start bool) {
	kind := feed.KindInsert
	if !start {
		kind = feed.KindDelete
	}
	row := domain.TypingIndicator{
		ChatID:      chatID,
		UserID:      c.user.ID,
		DisplayName: c.user.DisplayName,
	}
	if err := c.feed.Publish("typing", kind, row); err != nil {
		log.Printf("ws: publishing typing event: %v", err)
	}
}

// pushState sends fresh snapshots for the chat list and every
// subscribed chat. Invoked on every store change.
func (c *Client) pushState() {
	c.sendEvent(EventTypeStateChats, ChatsPayload{
		Chats:   c.store.Chats(),
		Loading: c.store.Loading(),
		Error:   c.store.Err(),
	})

	c.mu.Lock()
	chatIDs := make([]uuid.UUID, 0, len(c.chatSubs))
	for id := range c.chatSubs {
		chatIDs = append(chatIDs, id)
	}
	c.mu.Unlock()

	for _, id := range chatIDs {
		c.sendEvent(EventTypeStateMessages, MessagesPayload{
			ChatID:   id,
			Messages: c.store.Messages(id),
			Loading:  c.store.LoadingMessages(id),
		})
		c.sendEvent(EventTypeStateTyping, TypingStatePayload{
			ChatID: id,
			Users:  c.store.TypingUsers(id),
		})
	}
}

func (c *Client) sendStoreError(op string, err error) {
	var rerr *store.RemoteError
	switch {
	case errors.Is(err, store.ErrNotAuthenticated):
		c.sendError("UNAUTHORIZED", "Not authenticated")
	case errors.Is(err, store.ErrSelfChat):
		c.sendError("SELF_CHAT", "Cannot start a direct chat with yourself")
	case errors.As(err, &rerr):
		c.sendError("REMOTE", rerr.Message)
	default:
		log.Printf("ws: %s: %v", op, err)
		c.sendError("INTERNAL", "Something went wrong")
	}
}

func (c *Client) sendEvent(eventType string, payload any) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Client buffer full - drop; the next state push catches up.
	}
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
}
