package db

import "time"

// User represents a registered account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Activated    bool
}

// Activation represents a one-time account activation token.
type Activation struct {
	Token  string
	UserID int64
	Valid  bool
}

// Credential holds the Spotify OAuth token material for one user's
// linked account. ExpiresAt is an absolute epoch-seconds timestamp.
type Credential struct {
	UserID       int64
	Username     *string // nullable - resolved lazily via profile lookup
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// Content is a cached reference to an external Spotify catalog item.
type Content struct {
	ID   int64
	Kind string // one of: track, artist, album, playlist
	URI  string
	Name string
}

// Rating is one user's rating of one content item, in [0,10].
type Rating struct {
	ContentID int64
	Rating    int
}

// Session represents an authenticated web session.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}
