package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivationRepository handles activation token database operations.
type ActivationRepository struct {
	pool *pgxpool.Pool
}

// Create inserts an activation token for a user. A user holds at most
// one token; a second insert for the same user fails.
func (r *ActivationRepository) Create(ctx context.Context, activation *Activation) error {
	query := `
		INSERT INTO activations (token, user_id)
		VALUES ($1, $2)
	`
	_, err := r.pool.Exec(ctx, query, activation.Token, activation.UserID)
	if err != nil {
		return fmt.Errorf("inserting activation: %w", err)
	}
	return nil
}

// Get retrieves an activation by token.
func (r *ActivationRepository) Get(ctx context.Context, token string) (*Activation, error) {
	query := `
		SELECT token, user_id, valid
		FROM activations
		WHERE token = $1
	`
	var activation Activation
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&activation.Token,
		&activation.UserID,
		&activation.Valid,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying activation: %w", err)
	}
	return &activation, nil
}

// Invalidate marks an activation token as used. A user whose token is
// already invalid cannot reactivate.
func (r *ActivationRepository) Invalidate(ctx context.Context, token string) error {
	query := `UPDATE activations SET valid = FALSE WHERE token = $1`
	result, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return fmt.Errorf("invalidating activation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
