package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftlabs/drift/internal/auth"
	"github.com/driftlabs/drift/internal/config"
	"github.com/driftlabs/drift/internal/database"
	"github.com/driftlabs/drift/internal/feed"
	"github.com/driftlabs/drift/internal/feed/rabbit"
	postgresrepo "github.com/driftlabs/drift/internal/repository/postgres"
	"github.com/driftlabs/drift/internal/store"
	"github.com/driftlabs/drift/internal/transport/http/handlers"
	"github.com/driftlabs/drift/internal/transport/http/middleware"
	"github.com/driftlabs/drift/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Update feed: in-process on a single node, RabbitMQ when clustered.
	var updateFeed store.Feed
	if cfg.AMQPURL != "" {
		rabbitFeed, err := rabbit.Dial(cfg.AMQPURL, "drift.changes", slog.Default())
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitFeed.Close()
		log.Println("Connected to RabbitMQ feed")
		updateFeed = rabbitFeed
	} else {
		updateFeed = feed.NewBus()
	}

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	chatRepo := postgresrepo.NewChatRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)

	// Services
	authService := auth.NewService(userRepo, cfg.JWTSecret)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, userRepo)
	userHandler := handlers.NewUserHandler(userRepo)

	// Auth middleware
	authMW := middleware.Auth(authService)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected
	mux.Handle("POST /api/v1/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/v1/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("GET /api/v1/users/{username}", authMW(http.HandlerFunc(userHandler.GetByUsername)))

	// WebSocket gateway: one session store per connection.
	mux.HandleFunc("GET /ws", ws.ServeWS(ws.Deps{
		Auth:     authService,
		Users:    userRepo,
		Chats:    chatRepo,
		Messages: messageRepo,
		Feed:     updateFeed,
	}))

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{Addr: addr, Handler: middleware.CORS(mux)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
