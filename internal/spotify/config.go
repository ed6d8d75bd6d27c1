// Package spotify provides the Spotify OAuth token lifecycle and a
// wrapper around the Spotify Web API.
package spotify

import (
	"errors"
	"os"
	"time"

	"golang.org/x/oauth2"
)

const (
	authURL  = "https://accounts.spotify.com/authorize"
	tokenURL = "https://accounts.spotify.com/api/token"

	defaultTimeout = 10 * time.Second
)

// DefaultScopes are the authorization scopes requested when linking an
// account.
var DefaultScopes = []string{
	"user-read-private",
	"user-read-recently-played",
	"user-top-read",
	"user-follow-read",
	"user-library-read",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
	"ugc-image-upload",
}

// ErrMissingCredentials is returned when SPOTIFY_ID, SPOTIFY_SECRET or
// SPOTIFY_REDIRECT_URI is not set.
var ErrMissingCredentials = errors.New("missing SPOTIFY_ID, SPOTIFY_SECRET or SPOTIFY_REDIRECT_URI environment variable")

// Config holds the OAuth client configuration. It is constructed
// explicitly and passed in; there is no process-wide OAuth state.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// Timeout bounds each call to the authorization server.
	// Zero means defaultTimeout.
	Timeout time.Duration
}

// LoadConfig reads OAuth configuration from environment variables.
// Returns ErrMissingCredentials if any required variable is not set.
func LoadConfig() (Config, error) {
	clientID := os.Getenv("SPOTIFY_ID")
	clientSecret := os.Getenv("SPOTIFY_SECRET")
	redirectURI := os.Getenv("SPOTIFY_REDIRECT_URI")

	if clientID == "" || clientSecret == "" || redirectURI == "" {
		return Config{}, ErrMissingCredentials
	}

	return Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Scopes:       DefaultScopes,
	}, nil
}

// oauth2Config builds the x/oauth2 configuration used for the
// authorize-URL step of the flow.
func (c Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}
