// Package friends derives pending requests and confirmed friendships
// from a directed friend-edge table.
//
// An edge (A, B) on its own is a pending request from A to B. Edges in
// both directions together constitute a confirmed friendship.
package friends

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrSelfFriend is returned when a user tries to friend themselves.
	ErrSelfFriend = errors.New("cannot add yourself as a friend")

	// ErrNotFriends is returned when an actor is not permitted to view
	// another user's data.
	ErrNotFriends = errors.New("users are not confirmed friends")
)

// Store persists directed friend-request edges.
// InsertEdge and DeleteEdge are idempotent.
type Store interface {
	InsertEdge(ctx context.Context, from, to int64) error
	DeleteEdge(ctx context.Context, from, to int64) error
	EdgesFrom(ctx context.Context, from int64) ([]int64, error)
	HasEdge(ctx context.Context, from, to int64) (bool, error)
}

// Service answers friend-graph queries and applies edge mutations.
type Service struct {
	store Store
}

// NewService creates a friend-graph service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Add records a friend request from requester to requestee. Adding an
// existing request is a no-op. Confirmation requires the other party to
// add the reverse edge themselves; it is never created here.
func (s *Service) Add(ctx context.Context, requester, requestee int64) error {
	if requester == requestee {
		return ErrSelfFriend
	}
	if err := s.store.InsertEdge(ctx, requester, requestee); err != nil {
		return fmt.Errorf("adding friend edge: %w", err)
	}
	return nil
}

// Remove deletes the requester's edge toward requestee. The reverse
// edge, if any, is untouched. Removing a missing edge is a no-op.
func (s *Service) Remove(ctx context.Context, requester, requestee int64) error {
	if err := s.store.DeleteEdge(ctx, requester, requestee); err != nil {
		return fmt.Errorf("removing friend edge: %w", err)
	}
	return nil
}

// PendingOutgoing returns the users the given user has sent a request
// to that have not yet been reciprocated.
func (s *Service) PendingOutgoing(ctx context.Context, user int64) ([]int64, error) {
	return s.partition(ctx, user, false)
}

// Confirmed returns the users the given user holds a mutual edge with.
// Symmetric by construction: Confirmed(A) contains B iff Confirmed(B)
// contains A.
func (s *Service) Confirmed(ctx context.Context, user int64) ([]int64, error) {
	return s.partition(ctx, user, true)
}

// partition splits the user's outgoing edges by whether the reverse
// edge exists.
func (s *Service) partition(ctx context.Context, user int64, reciprocated bool) ([]int64, error) {
	outgoing, err := s.store.EdgesFrom(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("listing edges: %w", err)
	}

	result := []int64{}
	for _, other := range outgoing {
		back, err := s.store.HasEdge(ctx, other, user)
		if err != nil {
			return nil, fmt.Errorf("checking reverse edge: %w", err)
		}
		if back == reciprocated {
			result = append(result, other)
		}
	}
	return result, nil
}

// ConfirmedOfConfirmed returns the users reachable in exactly two
// confirmed-friendship hops, deduplicated and excluding the user
// themselves. Direct friends may appear in the result when they are
// also a friend's friend.
func (s *Service) ConfirmedOfConfirmed(ctx context.Context, user int64) ([]int64, error) {
	direct, err := s.Confirmed(ctx, user)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	result := []int64{}
	for _, friend := range direct {
		second, err := s.Confirmed(ctx, friend)
		if err != nil {
			return nil, err
		}
		for _, other := range second {
			if other == user || seen[other] {
				continue
			}
			seen[other] = true
			result = append(result, other)
		}
	}
	return result, nil
}

// AreConfirmed reports whether both directed edges exist between the
// two users.
func (s *Service) AreConfirmed(ctx context.Context, a, b int64) (bool, error) {
	forward, err := s.store.HasEdge(ctx, a, b)
	if err != nil {
		return false, fmt.Errorf("checking edge: %w", err)
	}
	if !forward {
		return false, nil
	}
	back, err := s.store.HasEdge(ctx, b, a)
	if err != nil {
		return false, fmt.Errorf("checking reverse edge: %w", err)
	}
	return back, nil
}

// AuthorizeView is the single permission gate for endpoints that expose
// another user's friend list or ratings. Users may always view their
// own data; anyone else must be a confirmed friend.
func (s *Service) AuthorizeView(ctx context.Context, actor, target int64) error {
	if actor == target {
		return nil
	}
	ok, err := s.AreConfirmed(ctx, actor, target)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFriends
	}
	return nil
}
