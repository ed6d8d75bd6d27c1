package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentRepository handles content database operations.
type ContentRepository struct {
	pool *pgxpool.Pool
}

// Upsert inserts a content row, updating the cached name if the
// (kind, uri) pair already exists. The generated ID is filled in.
func (r *ContentRepository) Upsert(ctx context.Context, content *Content) error {
	query := `
		INSERT INTO content (kind, uri, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, uri) DO UPDATE SET
			name = EXCLUDED.name
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query, content.Kind, content.URI, content.Name).Scan(&content.ID)
	if err != nil {
		return fmt.Errorf("upserting content: %w", err)
	}
	return nil
}

// Get retrieves a content row by ID.
func (r *ContentRepository) Get(ctx context.Context, id int64) (*Content, error) {
	query := `
		SELECT id, kind, uri, name
		FROM content
		WHERE id = $1
	`
	var content Content
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&content.ID,
		&content.Kind,
		&content.URI,
		&content.Name,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying content: %w", err)
	}
	return &content, nil
}

// GetByURI retrieves a content row by its (kind, uri) pair.
func (r *ContentRepository) GetByURI(ctx context.Context, kind, uri string) (*Content, error) {
	query := `
		SELECT id, kind, uri, name
		FROM content
		WHERE kind = $1 AND uri = $2
	`
	var content Content
	err := r.pool.QueryRow(ctx, query, kind, uri).Scan(
		&content.ID,
		&content.Kind,
		&content.URI,
		&content.Name,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying content by URI: %w", err)
	}
	return &content, nil
}

// Exists reports whether a content row with the given ID exists.
func (r *ContentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM content WHERE id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking content: %w", err)
	}
	return exists, nil
}
