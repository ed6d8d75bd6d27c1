package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/synchrify/internal/accounts"
	"github.com/justestif/synchrify/internal/db"
	"github.com/justestif/synchrify/internal/friends"
	"github.com/justestif/synchrify/internal/mail"
	"github.com/justestif/synchrify/internal/ratings"
	"github.com/justestif/synchrify/internal/spotify"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr string

	// BaseURL is the externally visible root used in activation links.
	BaseURL string

	Spotify  spotify.Config
	Database *db.DB
	Mailer   mail.Mailer
}

// sessionSweepInterval is how often expired sessions are purged.
const sessionSweepInterval = time.Hour

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	sessions SessionManager
}

// NewServer creates a new API server wired against the database.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://" + cfg.Addr
	}

	database := cfg.Database
	creds := database.Credentials()

	accountsSvc := accounts.NewService(database.Users(), database.Activations(), cfg.Mailer, cfg.BaseURL)
	friendsSvc := friends.NewService(database.Friends())
	ratingsSvc := ratings.NewService(database.Content(), database.Ratings())
	auth := spotify.NewAuthenticator(cfg.Spotify, creds, spotify.Profile{})
	sessions := NewDBSessionStore(database)

	handlers := NewHandlers(accountsSvc, friendsSvc, ratingsSvc, auth, creds, sessions)

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		handlers: handlers,
		sessions: sessions,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the API.
func (s *Server) setupRoutes() {
	h := s.handlers

	// Accounts
	s.router.Post("/register", h.Register)
	s.router.Get("/activate/{token}", h.Activate)
	s.router.Post("/login", h.Login)
	s.router.Get("/logout", h.Logout)
	s.router.Get("/user", h.requireUser(h.CurrentUser))

	// Friends
	s.router.Get("/friends/list", h.requireUser(h.FriendsList))
	s.router.Get("/friends/list/friends", h.requireUser(h.FriendsOfFriends))
	s.router.Get("/friends/list/{friendID:[0-9]+}", h.requireUser(h.FriendsList))
	s.router.Get("/friends/pending", h.requireUser(h.FriendsPending))
	s.router.Get("/friends/add/{friendID:[0-9]+}", h.requireUser(h.FriendsAdd))
	s.router.Get("/friends/remove/{friendID:[0-9]+}", h.requireUser(h.FriendsRemove))

	// Content & ratings
	s.router.Get("/content/{contentID:[0-9]+}", h.requireUser(h.ContentByID))
	s.router.Get("/content/{contentID:[0-9]+}/rating", h.requireUser(h.GetRating))
	s.router.Get("/content/{contentID:[0-9]+}/rating/{friendID:[0-9]+}", h.requireUser(h.GetRating))
	s.router.Get("/content/{contentID:[0-9]+}/rating/set/{rating:[0-9]+}", h.requireUser(h.SetRating))
	s.router.Get("/content/{contentID:[0-9]+}/rating/reset", h.requireUser(h.ResetRating))
	s.router.Get("/content/{kind}/{uri}", h.requireUser(h.ContentByURI))

	s.router.Get("/ratings/list", h.requireUser(h.RatingsList))
	s.router.Get("/ratings/list/friends", h.requireUser(h.RatingsListFriends))
	s.router.Get("/ratings/list/{friendID:[0-9]+}", h.requireUser(h.RatingsList))

	// Spotify
	s.router.Get("/spotify/auth", h.requireUser(h.SpotifyAuth))
	s.router.Get("/spotify/auth/callback", h.requireUser(h.SpotifyCallback))
	s.router.Get("/spotify/user/{endpoint}", h.requireUser(h.SpotifyProxy))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting server at http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	// Channel to receive shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Purge expired sessions in the background
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				s.sessions.DeleteExpired(sweepCtx)
			}
		}
	}()

	// Wait for interrupt or error
	select {
	case err := <-errCh:
		return err
	case <-stop:
		log.Println("Shutting down server...")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
