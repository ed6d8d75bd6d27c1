package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/justestif/synchrify/internal/spotify"
)

func newCallbackHandlers(t *testing.T) *Handlers {
	t.Helper()
	cfg := spotify.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://127.0.0.1:8080/spotify/auth/callback",
	}
	auth := spotify.NewAuthenticator(cfg, nil, spotify.Profile{})
	return NewHandlers(nil, nil, nil, auth, nil, NewSessionStore())
}

// errorBody decodes the uniform {"error": msg} result shape.
func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body["error"]
}

func TestSpotifyCallback_StateValidation(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		stateCookie string
		wantStatus  int
		wantError   string
	}{
		{
			name:       "missing state",
			target:     "/spotify/auth/callback?code=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "neither error nor code",
			target:     "/spotify/auth/callback?state=s1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "state cookie absent",
			target:     "/spotify/auth/callback?state=s1&code=abc",
			wantStatus: http.StatusOK,
			wantError:  "Session auth_state not found",
		},
		{
			name:        "state cookie mismatch",
			target:      "/spotify/auth/callback?state=s1&code=abc",
			stateCookie: "s2",
			wantStatus:  http.StatusOK,
			wantError:   "Session auth_state mismatch",
		},
		{
			name:        "provider reported error",
			target:      "/spotify/auth/callback?state=s1&error=access_denied",
			stateCookie: "s1",
			wantStatus:  http.StatusOK,
			wantError:   "auth_callback error: access_denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCallbackHandlers(t)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.stateCookie != "" {
				req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: tt.stateCookie})
			}
			rec := httptest.NewRecorder()

			h.SpotifyCallback(rec, req, 1)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantError == "" {
				return
			}
			if got := errorBody(t, rec); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
		})
	}
}

func TestRequireUser_NoSession(t *testing.T) {
	h := newCallbackHandlers(t)

	handler := h.requireUser(func(w http.ResponseWriter, r *http.Request, userID int64) {
		t.Error("handler invoked without a session")
	})

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if got := errorBody(t, rec); got != "You must be logged in to access this URL" {
		t.Errorf("error = %q", got)
	}
}
