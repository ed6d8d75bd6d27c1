// Command synchrify runs the Synchrify API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/justestif/synchrify/internal/db"
	"github.com/justestif/synchrify/internal/mail"
	"github.com/justestif/synchrify/internal/spotify"
	"github.com/justestif/synchrify/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("please set the DATABASE_URL environment variable")
	}

	spotifyCfg, err := spotify.LoadConfig()
	if err != nil {
		return err
	}

	mailer, err := newMailer()
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := db.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = web.DefaultAddr
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:     addr,
		BaseURL:  os.Getenv("BASE_URL"),
		Spotify:  spotifyCfg,
		Database: database,
		Mailer:   mailer,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}

// newMailer prefers SendGrid and falls back to logging activation
// links when it is not configured.
func newMailer() (mail.Mailer, error) {
	mailer, err := mail.NewSendGridMailer()
	if err == nil {
		return mailer, nil
	}
	if errors.Is(err, mail.ErrMissingConfig) {
		log.Println("SendGrid not configured, logging activation links instead")
		return &mail.LogMailer{Logf: log.Printf}, nil
	}
	return nil, err
}
