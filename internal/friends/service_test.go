package friends

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func newTestService(t *testing.T, edges [][2]int64) *Service {
	t.Helper()
	store := NewMemoryStore()
	for _, e := range edges {
		if err := store.InsertEdge(context.Background(), e[0], e[1]); err != nil {
			t.Fatalf("InsertEdge(%d, %d) error = %v", e[0], e[1], err)
		}
	}
	return NewService(store)
}

func sorted(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

// concat mirrors slices.Concat, which requires Go 1.22; this module
// builds with Go 1.21.
func concat[S ~[]E, E any](ss ...S) S {
	var out S
	for _, s := range ss {
		out = append(out, s...)
	}
	return out
}

func TestAdd_Self(t *testing.T) {
	svc := newTestService(t, nil)

	err := svc.Add(context.Background(), 1, 1)
	if !errors.Is(err, ErrSelfFriend) {
		t.Errorf("Add(1, 1) error = %v, want ErrSelfFriend", err)
	}
}

func TestAdd_Idempotent(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if err := svc.Add(ctx, 1, 2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := svc.Add(ctx, 1, 2); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}

	pending, err := svc.PendingOutgoing(ctx, 1)
	if err != nil {
		t.Fatalf("PendingOutgoing() error = %v", err)
	}
	if !slices.Equal(sorted(pending), []int64{2}) {
		t.Errorf("PendingOutgoing(1) = %v, want [2]", pending)
	}
}

func TestPendingAndConfirmed(t *testing.T) {
	tests := []struct {
		name          string
		edges         [][2]int64
		user          int64
		wantPending   []int64
		wantConfirmed []int64
	}{
		{
			name:          "no edges",
			edges:         nil,
			user:          1,
			wantPending:   []int64{},
			wantConfirmed: []int64{},
		},
		{
			name:          "single request is pending not confirmed",
			edges:         [][2]int64{{1, 2}},
			user:          1,
			wantPending:   []int64{2},
			wantConfirmed: []int64{},
		},
		{
			name:          "mutual edges are confirmed not pending",
			edges:         [][2]int64{{1, 2}, {2, 1}},
			user:          1,
			wantPending:   []int64{},
			wantConfirmed: []int64{2},
		},
		{
			name:          "incoming request alone is neither",
			edges:         [][2]int64{{2, 1}},
			user:          1,
			wantPending:   []int64{},
			wantConfirmed: []int64{},
		},
		{
			name:          "mixed",
			edges:         [][2]int64{{1, 2}, {2, 1}, {1, 3}, {4, 1}},
			user:          1,
			wantPending:   []int64{3},
			wantConfirmed: []int64{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.edges)
			ctx := context.Background()

			pending, err := svc.PendingOutgoing(ctx, tt.user)
			if err != nil {
				t.Fatalf("PendingOutgoing() error = %v", err)
			}
			if !slices.Equal(sorted(pending), tt.wantPending) {
				t.Errorf("PendingOutgoing(%d) = %v, want %v", tt.user, sorted(pending), tt.wantPending)
			}

			confirmed, err := svc.Confirmed(ctx, tt.user)
			if err != nil {
				t.Fatalf("Confirmed() error = %v", err)
			}
			if !slices.Equal(sorted(confirmed), tt.wantConfirmed) {
				t.Errorf("Confirmed(%d) = %v, want %v", tt.user, sorted(confirmed), tt.wantConfirmed)
			}
		})
	}
}

func TestConfirmed_Symmetric(t *testing.T) {
	svc := newTestService(t, [][2]int64{{1, 2}, {2, 1}})
	ctx := context.Background()

	for _, pair := range [][2]int64{{1, 2}, {2, 1}} {
		confirmed, err := svc.Confirmed(ctx, pair[0])
		if err != nil {
			t.Fatalf("Confirmed(%d) error = %v", pair[0], err)
		}
		if !slices.Contains(confirmed, pair[1]) {
			t.Errorf("Confirmed(%d) = %v, want it to contain %d", pair[0], confirmed, pair[1])
		}
	}
}

func TestRequestLifecycle(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	// A requests B: pending for A, not yet confirmed.
	if err := svc.Add(ctx, 1, 2); err != nil {
		t.Fatalf("Add(1, 2) error = %v", err)
	}

	pending, _ := svc.PendingOutgoing(ctx, 1)
	if !slices.Equal(sorted(pending), []int64{2}) {
		t.Errorf("PendingOutgoing(1) = %v, want [2]", pending)
	}
	confirmed, _ := svc.Confirmed(ctx, 1)
	if len(confirmed) != 0 {
		t.Errorf("Confirmed(1) = %v, want empty", confirmed)
	}

	// B reciprocates: confirmed both ways, pending cleared.
	if err := svc.Add(ctx, 2, 1); err != nil {
		t.Fatalf("Add(2, 1) error = %v", err)
	}

	confirmed, _ = svc.Confirmed(ctx, 1)
	if !slices.Equal(sorted(confirmed), []int64{2}) {
		t.Errorf("Confirmed(1) = %v, want [2]", confirmed)
	}
	confirmed, _ = svc.Confirmed(ctx, 2)
	if !slices.Equal(sorted(confirmed), []int64{1}) {
		t.Errorf("Confirmed(2) = %v, want [1]", confirmed)
	}
	pending, _ = svc.PendingOutgoing(ctx, 1)
	if len(pending) != 0 {
		t.Errorf("PendingOutgoing(1) = %v, want empty", pending)
	}
}

func TestRemove_OneDirectionOnly(t *testing.T) {
	svc := newTestService(t, [][2]int64{{1, 2}, {2, 1}})
	ctx := context.Background()

	if err := svc.Remove(ctx, 1, 2); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	// The reverse edge survives: B still has a pending request toward A.
	pending, err := svc.PendingOutgoing(ctx, 2)
	if err != nil {
		t.Fatalf("PendingOutgoing() error = %v", err)
	}
	if !slices.Equal(sorted(pending), []int64{1}) {
		t.Errorf("PendingOutgoing(2) = %v, want [1]", pending)
	}

	// Removing a missing edge is a no-op.
	if err := svc.Remove(ctx, 1, 2); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestConfirmedOfConfirmed(t *testing.T) {
	mutual := func(a, b int64) [][2]int64 {
		return [][2]int64{{a, b}, {b, a}}
	}

	tests := []struct {
		name  string
		edges [][2]int64
		user  int64
		want  []int64
	}{
		{
			name:  "no friends",
			edges: nil,
			user:  1,
			want:  []int64{},
		},
		{
			name:  "chain of two hops",
			edges: concat(mutual(1, 2), mutual(2, 3)),
			user:  1,
			want:  []int64{3},
		},
		{
			name: "deduplicated across branches",
			edges: concat(
				mutual(1, 2), mutual(1, 3),
				mutual(2, 4), mutual(3, 4),
			),
			user: 1,
			want: []int64{4},
		},
		{
			name:  "excludes the user themselves",
			edges: concat(mutual(1, 2)),
			user:  1,
			want:  []int64{},
		},
		{
			name: "direct friends may appear",
			edges: concat(
				mutual(1, 2), mutual(1, 3), mutual(2, 3),
			),
			user: 1,
			want: []int64{2, 3},
		},
		{
			name:  "pending requests do not count as hops",
			edges: append(mutual(1, 2), [2]int64{2, 3}),
			user:  1,
			want:  []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.edges)

			got, err := svc.ConfirmedOfConfirmed(context.Background(), tt.user)
			if err != nil {
				t.Fatalf("ConfirmedOfConfirmed() error = %v", err)
			}
			if !slices.Equal(sorted(got), tt.want) {
				t.Errorf("ConfirmedOfConfirmed(%d) = %v, want %v", tt.user, sorted(got), tt.want)
			}
		})
	}
}

func TestAreConfirmed(t *testing.T) {
	tests := []struct {
		name  string
		edges [][2]int64
		a, b  int64
		want  bool
	}{
		{name: "no edges", a: 1, b: 2, want: false},
		{name: "one direction", edges: [][2]int64{{1, 2}}, a: 1, b: 2, want: false},
		{name: "reverse only", edges: [][2]int64{{2, 1}}, a: 1, b: 2, want: false},
		{name: "both directions", edges: [][2]int64{{1, 2}, {2, 1}}, a: 1, b: 2, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.edges)

			got, err := svc.AreConfirmed(context.Background(), tt.a, tt.b)
			if err != nil {
				t.Fatalf("AreConfirmed() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("AreConfirmed(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAuthorizeView(t *testing.T) {
	svc := newTestService(t, [][2]int64{{1, 2}, {2, 1}, {1, 3}})
	ctx := context.Background()

	if err := svc.AuthorizeView(ctx, 1, 1); err != nil {
		t.Errorf("AuthorizeView(self) error = %v, want nil", err)
	}
	if err := svc.AuthorizeView(ctx, 1, 2); err != nil {
		t.Errorf("AuthorizeView(confirmed friend) error = %v, want nil", err)
	}
	if err := svc.AuthorizeView(ctx, 1, 3); !errors.Is(err, ErrNotFriends) {
		t.Errorf("AuthorizeView(pending only) error = %v, want ErrNotFriends", err)
	}
	if err := svc.AuthorizeView(ctx, 1, 4); !errors.Is(err, ErrNotFriends) {
		t.Errorf("AuthorizeView(stranger) error = %v, want ErrNotFriends", err)
	}
}
