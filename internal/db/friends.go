package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FriendRepository persists directed friend-request edges. It satisfies
// friends.Store.
type FriendRepository struct {
	pool *pgxpool.Pool
}

// InsertEdge adds a directed edge. Inserting an existing edge is a no-op.
func (r *FriendRepository) InsertEdge(ctx context.Context, from, to int64) error {
	query := `
		INSERT INTO friend_edges (requester_id, requestee_id)
		VALUES ($1, $2)
		ON CONFLICT (requester_id, requestee_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, from, to)
	if err != nil {
		return fmt.Errorf("inserting friend edge: %w", err)
	}
	return nil
}

// DeleteEdge removes a directed edge. Deleting a missing edge is a no-op.
func (r *FriendRepository) DeleteEdge(ctx context.Context, from, to int64) error {
	query := `
		DELETE FROM friend_edges
		WHERE requester_id = $1 AND requestee_id = $2
	`
	_, err := r.pool.Exec(ctx, query, from, to)
	if err != nil {
		return fmt.Errorf("deleting friend edge: %w", err)
	}
	return nil
}

// EdgesFrom returns the IDs of all users the given user has an outgoing
// edge to.
func (r *FriendRepository) EdgesFrom(ctx context.Context, from int64) ([]int64, error) {
	query := `
		SELECT requestee_id FROM friend_edges
		WHERE requester_id = $1
		ORDER BY requestee_id
	`
	rows, err := r.pool.Query(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("querying friend edges: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning friend edge: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading friend edges: %w", err)
	}
	return ids, nil
}

// HasEdge reports whether a directed edge exists.
func (r *FriendRepository) HasEdge(ctx context.Context, from, to int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM friend_edges
			WHERE requester_id = $1 AND requestee_id = $2
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking friend edge: %w", err)
	}
	return exists, nil
}
