package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/driftlabs/drift/internal/auth"
	"github.com/driftlabs/drift/internal/domain"
	"github.com/driftlabs/drift/internal/repository"
	"github.com/driftlabs/drift/internal/store"
)

// Deps carries everything a connection needs to build its session store.
type Deps struct {
	Auth     *auth.Service
	Users    repository.UserRepository
	Chats    repository.ChatRepository
	Messages repository.MessageRepository
	Feed     store.Feed
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		user, err := deps.Auth.ResolveUser(r.Context(), tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Allow any origin (dev mode)
		})
		if err != nil {
			log.Printf("ws: accept error: %v", err)
			return
		}

		if err := deps.Users.UpdatePresence(r.Context(), user.ID, domain.StatusOnline, time.Now()); err != nil {
			log.Printf("ws: presence online for %s: %v", user.ID, err)
		}

		session := auth.NewSession(user)
		st := store.New(deps.Chats, deps.Messages, deps.Feed, session)
		client := NewClient(conn, st, deps.Feed, user)
		client.Start()

		go client.WritePump()
		go func() {
			client.ReadPump()
			// Connection is gone: tear down and go offline.
			client.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := deps.Users.UpdatePresence(ctx, user.ID, domain.StatusOffline, time.Now()); err != nil {
				log.Printf("ws: presence offline for %s: %v", user.ID, err)
			}
		}()
	}
}
