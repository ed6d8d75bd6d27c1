package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/justestif/synchrify/internal/db"
)

// expirySkew is the safety margin against clock skew and in-flight
// request latency: a token within this many seconds of expiry is
// treated as expired.
const expirySkew = 60

// ExchangeError is returned when a token exchange against the
// authorization server fails. The provider's message is surfaced
// verbatim to the caller; no retry is attempted.
type ExchangeError struct {
	StatusCode int
	Message    string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("spotify token exchange failed (%d): %s", e.StatusCode, e.Message)
}

// CredentialStore persists one credential record per user.
type CredentialStore interface {
	Get(ctx context.Context, userID int64) (*db.Credential, error)
	Upsert(ctx context.Context, cred *db.Credential) error
}

// ProfileResolver fetches the Spotify username owning an access token.
type ProfileResolver interface {
	CurrentUserID(ctx context.Context, accessToken string) (string, error)
}

// Authenticator manages the OAuth token lifecycle: acquisition via the
// authorization-code grant, expiry detection, and transparent refresh
// with persistence.
type Authenticator struct {
	cfg        Config
	store      CredentialStore
	profile    ProfileResolver
	httpClient *http.Client
	tokenURL   string

	// now is the clock; fixed in tests.
	now func() time.Time
}

// NewAuthenticator creates an Authenticator with the given
// configuration, credential store and profile resolver.
func NewAuthenticator(cfg Config, store CredentialStore, profile ProfileResolver) *Authenticator {
	return &Authenticator{
		cfg:     cfg,
		store:   store,
		profile: profile,
		httpClient: &http.Client{
			Timeout: cfg.timeout(),
		},
		tokenURL: tokenURL,
		now:      time.Now,
	}
}

// AuthURL returns the authorization URL the user is redirected to when
// linking their account.
func (a *Authenticator) AuthURL(state string) string {
	return a.cfg.oauth2Config().AuthCodeURL(state)
}

// CompleteAuthorization exchanges an authorization code for an initial
// credential. The returned credential's username is unresolved; callers
// opt into the extra profile round-trip via ResolveUsername. Nothing is
// persisted here - the caller is responsible for storing the result.
func (a *Authenticator) CompleteAuthorization(ctx context.Context, code string, userID int64) (*db.Credential, error) {
	resp, err := a.exchange(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {a.cfg.RedirectURI},
	})
	if err != nil {
		return nil, err
	}

	return &db.Credential{
		UserID:       userID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    a.now().Unix() + resp.ExpiresIn,
	}, nil
}

// ResolveUsername populates the credential's username via a profile
// lookup. A credential whose username is already known is untouched.
func (a *Authenticator) ResolveUsername(ctx context.Context, cred *db.Credential) error {
	if cred.Username != nil {
		return nil
	}
	username, err := a.profile.CurrentUserID(ctx, cred.AccessToken)
	if err != nil {
		return fmt.Errorf("resolving username: %w", err)
	}
	cred.Username = &username
	return nil
}

// AccessToken returns a valid access token for the credential,
// refreshing and persisting it first when it is within expirySkew
// seconds of expiry. A fresh token is returned unchanged with no
// network call and no write.
func (a *Authenticator) AccessToken(ctx context.Context, cred *db.Credential) (string, error) {
	if !a.expired(cred) {
		return cred.AccessToken, nil
	}

	resp, err := a.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
	})
	if err != nil {
		// Failed exchanges leave both in-memory and persisted state
		// untouched. A revoked refresh token fails every attempt until
		// the user re-authorizes.
		return "", err
	}

	cred.AccessToken = resp.AccessToken
	cred.ExpiresAt = a.now().Unix() + resp.ExpiresIn
	// Providers may reuse the existing refresh token and omit it from
	// the response.
	if resp.RefreshToken != "" {
		cred.RefreshToken = resp.RefreshToken
	}

	if err := a.store.Upsert(ctx, cred); err != nil {
		return "", fmt.Errorf("persisting refreshed credential: %w", err)
	}
	return cred.AccessToken, nil
}

// expired reports whether the credential is within expirySkew seconds
// of its absolute expiry.
func (a *Authenticator) expired(cred *db.Credential) bool {
	return cred.ExpiresAt-a.now().Unix() < expirySkew
}

// tokenResponse is the token endpoint's success payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// errorResponse is the token endpoint's failure payload.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// exchange performs a form-encoded POST against the token endpoint with
// client credentials sent as HTTP Basic auth.
func (a *Authenticator) exchange(ctx context.Context, payload url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(payload.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{
			StatusCode: resp.StatusCode,
			Message:    exchangeMessage(body),
		}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	return &token, nil
}

// exchangeMessage extracts the provider's error message from a failed
// exchange response.
func exchangeMessage(body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		return "unknown error"
	}
	return payload.Error.Message
}
