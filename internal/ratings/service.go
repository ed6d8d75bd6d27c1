// Package ratings manages user ratings of Spotify content and the lazy
// content cache backing them.
package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/justestif/synchrify/internal/db"
	"github.com/justestif/synchrify/internal/spotify"
)

// Sentinel errors.
var (
	// ErrRatingRange is returned for a rating outside [0, 10].
	ErrRatingRange = errors.New("rating value must be in range 0 <= r <= 10")

	// ErrUnknownKind is returned for an unsupported content kind.
	ErrUnknownKind = errors.New("unknown content kind")
)

// ContentStore persists content rows.
type ContentStore interface {
	Upsert(ctx context.Context, content *db.Content) error
	Get(ctx context.Context, id int64) (*db.Content, error)
	GetByURI(ctx context.Context, kind, uri string) (*db.Content, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// RatingStore persists rating rows.
type RatingStore interface {
	Upsert(ctx context.Context, userID, contentID int64, rating int) error
	Delete(ctx context.Context, userID, contentID int64) error
	Get(ctx context.Context, userID, contentID int64) (int, error)
	ListForUser(ctx context.Context, userID int64) ([]db.Rating, error)
	ListForConfirmedFriends(ctx context.Context, userID int64) ([]db.Rating, error)
}

// ContentFetcher fetches the display name of a catalog item from the
// external API.
type ContentFetcher interface {
	ContentName(ctx context.Context, kind, uri string) (string, error)
}

// Service validates and applies rating operations.
type Service struct {
	content ContentStore
	ratings RatingStore
}

// NewService creates a rating service over the given stores.
func NewService(content ContentStore, ratings RatingStore) *Service {
	return &Service{content: content, ratings: ratings}
}

// SetRating stores a user's rating for a content item, overwriting any
// previous rating for the pair. Out-of-range values are rejected before
// any mutation.
func (s *Service) SetRating(ctx context.Context, userID, contentID int64, rating int) error {
	if rating < 0 || rating > 10 {
		return ErrRatingRange
	}

	exists, err := s.content.Exists(ctx, contentID)
	if err != nil {
		return fmt.Errorf("checking content: %w", err)
	}
	if !exists {
		return db.ErrNotFound
	}

	if err := s.ratings.Upsert(ctx, userID, contentID, rating); err != nil {
		return fmt.Errorf("setting rating: %w", err)
	}
	return nil
}

// ResetRating removes a user's rating for a content item. An absent
// rating is not a rating of zero; the row is gone entirely.
func (s *Service) ResetRating(ctx context.Context, userID, contentID int64) error {
	exists, err := s.content.Exists(ctx, contentID)
	if err != nil {
		return fmt.Errorf("checking content: %w", err)
	}
	if !exists {
		return db.ErrNotFound
	}

	if err := s.ratings.Delete(ctx, userID, contentID); err != nil {
		return fmt.Errorf("resetting rating: %w", err)
	}
	return nil
}

// GetRating returns a user's rating for a content item, or
// db.ErrNotFound if none is set.
func (s *Service) GetRating(ctx context.Context, userID, contentID int64) (int, error) {
	return s.ratings.Get(ctx, userID, contentID)
}

// ListRatings returns all ratings made by a user.
func (s *Service) ListRatings(ctx context.Context, userID int64) ([]db.Rating, error) {
	return s.ratings.ListForUser(ctx, userID)
}

// ListFriendsRatings returns the ratings of every confirmed friend of
// a user.
func (s *Service) ListFriendsRatings(ctx context.Context, userID int64) ([]db.Rating, error) {
	return s.ratings.ListForConfirmedFriends(ctx, userID)
}

// GetContent returns a content row by ID.
func (s *Service) GetContent(ctx context.Context, contentID int64) (*db.Content, error) {
	return s.content.Get(ctx, contentID)
}

// LookupContent resolves a (kind, uri) pair to a content row, creating
// it on first lookup by fetching the display name from the external
// API. A second lookup returns the existing row without re-fetching.
// The returned bool reports whether the row was created.
func (s *Service) LookupContent(ctx context.Context, fetcher ContentFetcher, kind, uri string) (*db.Content, bool, error) {
	if !spotify.ValidContentKind(kind) {
		return nil, false, ErrUnknownKind
	}

	existing, err := s.content.GetByURI(ctx, kind, uri)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("looking up content: %w", err)
	}

	name, err := fetcher.ContentName(ctx, kind, uri)
	if err != nil {
		return nil, false, fmt.Errorf("fetching content name: %w", err)
	}

	content := &db.Content{Kind: kind, URI: uri, Name: name}
	if err := s.content.Upsert(ctx, content); err != nil {
		return nil, false, fmt.Errorf("storing content: %w", err)
	}
	return content, true, nil
}
