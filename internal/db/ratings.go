package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RatingRepository handles rating database operations.
type RatingRepository struct {
	pool *pgxpool.Pool
}

// Upsert sets a user's rating for a content item, overwriting any
// existing rating for the pair.
func (r *RatingRepository) Upsert(ctx context.Context, userID, contentID int64, rating int) error {
	query := `
		INSERT INTO ratings (user_id, content_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, content_id) DO UPDATE SET
			rating = EXCLUDED.rating
	`
	_, err := r.pool.Exec(ctx, query, userID, contentID, rating)
	if err != nil {
		return fmt.Errorf("upserting rating: %w", err)
	}
	return nil
}

// Delete removes a user's rating for a content item. Removing a missing
// rating is a no-op; absence is not a rating of zero.
func (r *RatingRepository) Delete(ctx context.Context, userID, contentID int64) error {
	query := `
		DELETE FROM ratings
		WHERE user_id = $1 AND content_id = $2
	`
	_, err := r.pool.Exec(ctx, query, userID, contentID)
	if err != nil {
		return fmt.Errorf("deleting rating: %w", err)
	}
	return nil
}

// Get retrieves a user's rating for a content item.
func (r *RatingRepository) Get(ctx context.Context, userID, contentID int64) (int, error) {
	query := `
		SELECT rating FROM ratings
		WHERE user_id = $1 AND content_id = $2
	`
	var rating int
	err := r.pool.QueryRow(ctx, query, userID, contentID).Scan(&rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("querying rating: %w", err)
	}
	return rating, nil
}

// ListForUser returns all ratings made by a user.
func (r *RatingRepository) ListForUser(ctx context.Context, userID int64) ([]Rating, error) {
	query := `
		SELECT content_id, rating FROM ratings
		WHERE user_id = $1
		ORDER BY content_id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying ratings: %w", err)
	}
	defer rows.Close()

	return scanRatings(rows)
}

// ListForConfirmedFriends returns the ratings of every confirmed friend
// of a user. A friend is confirmed when edges exist in both directions.
func (r *RatingRepository) ListForConfirmedFriends(ctx context.Context, userID int64) ([]Rating, error) {
	query := `
		SELECT content_id, rating FROM ratings
		WHERE user_id IN (
			SELECT f.requestee_id FROM friend_edges f
			WHERE f.requester_id = $1 AND EXISTS (
				SELECT 1 FROM friend_edges
				WHERE requester_id = f.requestee_id AND requestee_id = f.requester_id
			)
		)
		ORDER BY content_id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying friends' ratings: %w", err)
	}
	defer rows.Close()

	return scanRatings(rows)
}

func scanRatings(rows pgx.Rows) ([]Rating, error) {
	var ratings []Rating
	for rows.Next() {
		var rating Rating
		if err := rows.Scan(&rating.ContentID, &rating.Rating); err != nil {
			return nil, fmt.Errorf("scanning rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading ratings: %w", err)
	}
	return ratings, nil
}
