package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository handles Spotify credential database operations.
// One record per user; it satisfies spotify.CredentialStore.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves the credential for a user. Returns ErrNotFound if the
// user has no linked Spotify account.
func (r *CredentialRepository) Get(ctx context.Context, userID int64) (*Credential, error) {
	query := `
		SELECT user_id, username, access_token, refresh_token, expires_at
		FROM spotify_credentials
		WHERE user_id = $1
	`
	var cred Credential
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cred.UserID,
		&cred.Username,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	return &cred, nil
}

// Upsert stores the credential for a user, overwriting every field of
// any existing record. Records are never partially updated.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *Credential) error {
	query := `
		INSERT INTO spotify_credentials (user_id, username, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at
	`
	_, err := r.pool.Exec(ctx, query,
		cred.UserID,
		cred.Username,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}
	return nil
}
