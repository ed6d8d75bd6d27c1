package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/synchrify/internal/accounts"
	"github.com/justestif/synchrify/internal/db"
	"github.com/justestif/synchrify/internal/friends"
	"github.com/justestif/synchrify/internal/ratings"
	"github.com/justestif/synchrify/internal/spotify"
)

const oauthStateCookie = "oauth_state"

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	accounts *accounts.Service
	friends  *friends.Service
	ratings  *ratings.Service
	auth     *spotify.Authenticator
	creds    spotify.CredentialStore
	sessions SessionManager
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	accountsSvc *accounts.Service,
	friendsSvc *friends.Service,
	ratingsSvc *ratings.Service,
	auth *spotify.Authenticator,
	creds spotify.CredentialStore,
	sessions SessionManager,
) *Handlers {
	return &Handlers{
		accounts: accountsSvc,
		friends:  friendsSvc,
		ratings:  ratingsSvc,
		auth:     auth,
		creds:    creds,
		sessions: sessions,
	}
}

// requireUser resolves the acting user from the session cookie before
// invoking the handler.
func (h *Handlers) requireUser(next func(w http.ResponseWriter, r *http.Request, userID int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.GetFromRequest(r)
		if session == nil {
			fail(w, "You must be logged in to access this URL")
			return
		}
		next(w, r, session.UserID)
	}
}

// urlID parses a numeric URL parameter.
func urlID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// queryInt parses an optional numeric query parameter, defaulting to 0.
func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// queryInt64 parses an optional numeric query parameter, defaulting to 0.
func queryInt64(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return n
}

// splitIDs parses a comma-separated ID list query parameter.
func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ============================================================================
// Accounts
// ============================================================================

type credentialsParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var params credentialsParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil || params.Email == "" || params.Password == "" {
		http.Error(w, "Fields 'email' and 'password' are required", http.StatusBadRequest)
		return
	}

	err := h.accounts.Register(r.Context(), params.Email, params.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidEmail), errors.Is(err, accounts.ErrEmailTaken):
		fail(w, err.Error())
	case err != nil:
		serverError(w)
	default:
		ok(w)
	}
}

// Activate handles GET /activate/{token}.
func (h *Handlers) Activate(w http.ResponseWriter, r *http.Request) {
	email, err := h.accounts.Activate(r.Context(), chi.URLParam(r, "token"))
	switch {
	case errors.Is(err, accounts.ErrInvalidToken):
		http.Error(w, "Invalid activation token", http.StatusBadRequest)
	case errors.Is(err, accounts.ErrAlreadyActivated):
		fail(w, err.Error())
	case err != nil:
		serverError(w)
	default:
		writeJSON(w, map[string]any{"activated": email})
	}
}

// Login handles POST /login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var params credentialsParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil || params.Email == "" || params.Password == "" {
		http.Error(w, "Fields 'email' and 'password' are required", http.StatusBadRequest)
		return
	}

	user, err := h.accounts.Login(r.Context(), params.Email, params.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidEmail),
		errors.Is(err, accounts.ErrUnknownUser),
		errors.Is(err, accounts.ErrNotActivated),
		errors.Is(err, accounts.ErrWrongPassword):
		fail(w, err.Error())
		return
	case err != nil:
		serverError(w)
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		serverError(w)
		return
	}
	h.sessions.SetCookie(w, session)
	ok(w)
}

// Logout handles GET /logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}
	h.sessions.ClearCookie(w)
	ok(w)
}

// CurrentUser handles GET /user.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request, userID int64) {
	var username *string
	cred, err := h.creds.Get(r.Context(), userID)
	if err == nil {
		username = cred.Username
	} else if !errors.Is(err, db.ErrNotFound) {
		serverError(w)
		return
	}
	writeJSON(w, map[string]any{"user_id": userID, "spotify_user": username})
}

// ============================================================================
// Friends
// ============================================================================

// FriendsList handles GET /friends/list and GET /friends/list/{friendID}.
func (h *Handlers) FriendsList(w http.ResponseWriter, r *http.Request, userID int64) {
	target := userID
	if chi.URLParam(r, "friendID") != "" {
		friendID, err := urlID(r, "friendID")
		if err != nil {
			http.Error(w, "Invalid friend ID", http.StatusBadRequest)
			return
		}
		if err := h.friends.AuthorizeView(r.Context(), userID, friendID); err != nil {
			if errors.Is(err, friends.ErrNotFriends) {
				fail(w, "You must be friends with this user to list their friends")
			} else {
				serverError(w)
			}
			return
		}
		target = friendID
	}

	list, err := h.friends.Confirmed(r.Context(), target)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, map[string]any{"friends": list})
}

// FriendsOfFriends handles GET /friends/list/friends.
func (h *Handlers) FriendsOfFriends(w http.ResponseWriter, r *http.Request, userID int64) {
	list, err := h.friends.ConfirmedOfConfirmed(r.Context(), userID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, map[string]any{"friends_of_friends": list})
}

// FriendsPending handles GET /friends/pending.
func (h *Handlers) FriendsPending(w http.ResponseWriter, r *http.Request, userID int64) {
	list, err := h.friends.PendingOutgoing(r.Context(), userID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, map[string]any{"pending": list})
}

// FriendsAdd handles GET /friends/add/{friendID}.
func (h *Handlers) FriendsAdd(w http.ResponseWriter, r *http.Request, userID int64) {
	friendID, err := urlID(r, "friendID")
	if err != nil {
		http.Error(w, "Invalid friend ID", http.StatusBadRequest)
		return
	}

	if _, err := h.accounts.Get(r.Context(), friendID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			fail(w, "Friend user not found")
		} else {
			serverError(w)
		}
		return
	}

	err = h.friends.Add(r.Context(), userID, friendID)
	switch {
	case errors.Is(err, friends.ErrSelfFriend):
		fail(w, err.Error())
	case err != nil:
		serverError(w)
	default:
		ok(w)
	}
}

// FriendsRemove handles GET /friends/remove/{friendID}.
func (h *Handlers) FriendsRemove(w http.ResponseWriter, r *http.Request, userID int64) {
	friendID, err := urlID(r, "friendID")
	if err != nil {
		http.Error(w, "Invalid friend ID", http.StatusBadRequest)
		return
	}

	if err := h.friends.Remove(r.Context(), userID, friendID); err != nil {
		serverError(w)
		return
	}
	ok(w)
}

// ============================================================================
// Content & Ratings
// ============================================================================

type ratingEntry struct {
	Content int64 `json:"content"`
	Rating  int   `json:"rating"`
}

func ratingEntries(list []db.Rating) []ratingEntry {
	entries := make([]ratingEntry, 0, len(list))
	for _, r := range list {
		entries = append(entries, ratingEntry{Content: r.ContentID, Rating: r.Rating})
	}
	return entries
}

// ContentByID handles GET /content/{contentID}.
func (h *Handlers) ContentByID(w http.ResponseWriter, r *http.Request, _ int64) {
	contentID, err := urlID(r, "contentID")
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	content, err := h.ratings.GetContent(r.Context(), contentID)
	if errors.Is(err, db.ErrNotFound) {
		fail(w, "Content ID not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, map[string]any{"type": content.Kind, "uri": content.URI, "name": content.Name})
}

// ContentByURI handles GET /content/{kind}/{uri}. The row is created on
// first lookup by asking Spotify for the display name.
func (h *Handlers) ContentByURI(w http.ResponseWriter, r *http.Request, userID int64) {
	client, authorized := h.spotifyClient(w, r, userID)
	if !authorized {
		return
	}

	kind, uri := chi.URLParam(r, "kind"), chi.URLParam(r, "uri")
	content, created, err := h.ratings.LookupContent(r.Context(), client, kind, uri)
	if errors.Is(err, ratings.ErrUnknownKind) {
		fail(w, "Content type must be one of track, artist, album, playlist")
		return
	}
	if err != nil {
		// External API failures surface as user-facing error strings.
		fail(w, err.Error())
		return
	}
	writeJSON(w, map[string]any{"content_id": content.ID, "name": content.Name, "created": created})
}

// GetRating handles GET /content/{contentID}/rating and
// GET /content/{contentID}/rating/{friendID}.
func (h *Handlers) GetRating(w http.ResponseWriter, r *http.Request, userID int64) {
	contentID, err := urlID(r, "contentID")
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	target := userID
	if chi.URLParam(r, "friendID") != "" {
		friendID, err := urlID(r, "friendID")
		if err != nil {
			http.Error(w, "Invalid friend ID", http.StatusBadRequest)
			return
		}
		if err := h.friends.AuthorizeView(r.Context(), userID, friendID); err != nil {
			if errors.Is(err, friends.ErrNotFriends) {
				fail(w, "You must be friends with this user to view their ratings")
			} else {
				serverError(w)
			}
			return
		}
		target = friendID
	}

	rating, err := h.ratings.GetRating(r.Context(), target, contentID)
	if errors.Is(err, db.ErrNotFound) {
		fail(w, "Rating not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, map[string]any{"rating": rating})
}

// SetRating handles GET /content/{contentID}/rating/set/{rating}.
func (h *Handlers) SetRating(w http.ResponseWriter, r *http.Request, userID int64) {
	contentID, err := urlID(r, "contentID")
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}
	rating, err := strconv.Atoi(chi.URLParam(r, "rating"))
	if err != nil {
		http.Error(w, "Invalid rating", http.StatusBadRequest)
		return
	}

	err = h.ratings.SetRating(r.Context(), userID, contentID, rating)
	switch {
	case errors.Is(err, ratings.ErrRatingRange):
		fail(w, "Rating value must be in range 0 <= r <= 10")
	case errors.Is(err, db.ErrNotFound):
		fail(w, "Content ID not found")
	case err != nil:
		serverError(w)
	default:
		ok(w)
	}
}

// ResetRating handles GET /content/{contentID}/rating/reset.
func (h *Handlers) ResetRating(w http.ResponseWriter, r *http.Request, userID int64) {
	contentID, err := urlID(r, "contentID")
	if err != nil {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	err = h.ratings.ResetRating(r.Context(), userID, contentID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		fail(w, "Content ID not found")
	case err != nil:
		serverError(w)
	default:
		ok(w)
	}
}

// RatingsList handles GET /ratings/list and GET /ratings/list/{friendID}.
func (h *Handlers) RatingsList(w http.ResponseWriter, r *http.Request, userID int64) {
	target := userID
	if chi.URLParam(r, "friendID") != "" {
		friendID, err := urlID(r, "friendID")
		if err != nil {
			http.Error(w, "Invalid friend ID", http.StatusBadRequest)
			return
		}
		if err := h.friends.AuthorizeView(r.Context(), userID, friendID); err != nil {
			if errors.Is(err, friends.ErrNotFriends) {
				fail(w, "You must be friends with this user to list their ratings")
			} else {
				serverError(w)
			}
			return
		}
		target = friendID
	}

	list, err := h.ratings.ListRatings(r.Context(), target)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, map[string]any{"ratings": ratingEntries(list)})
}

// RatingsListFriends handles GET /ratings/list/friends.
func (h *Handlers) RatingsListFriends(w http.ResponseWriter, r *http.Request, userID int64) {
	list, err := h.ratings.ListFriendsRatings(r.Context(), userID)
	if err != nil {
		serverError(w)
		return
	}
	writeJSON(w, map[string]any{"ratings": ratingEntries(list)})
}

// ============================================================================
// Spotify
// ============================================================================

// SpotifyAuth handles GET /spotify/auth: redirect the user to the
// authorization page.
func (h *Handlers) SpotifyAuth(w http.ResponseWriter, r *http.Request, _ int64) {
	state, err := generateOAuthState()
	if err != nil {
		serverError(w)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// SpotifyCallback handles GET /spotify/auth/callback: exchange the
// authorization code, resolve the username, and persist the credential.
func (h *Handlers) SpotifyCallback(w http.ResponseWriter, r *http.Request, userID int64) {
	query := r.URL.Query()
	errMsg, code, state := query.Get("error"), query.Get("code"), query.Get("state")

	if state == "" {
		http.Error(w, "Field 'state' is required", http.StatusBadRequest)
		return
	}
	if errMsg == "" && code == "" {
		http.Error(w, "Field 'error' or 'code' is required", http.StatusBadRequest)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		fail(w, "Session auth_state not found")
		return
	}
	if stateCookie.Value != state {
		fail(w, "Session auth_state mismatch")
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg != "" {
		fail(w, "auth_callback error: "+errMsg)
		return
	}

	cred, err := h.auth.CompleteAuthorization(r.Context(), code, userID)
	if err != nil {
		h.failSpotify(w, err)
		return
	}
	if err := h.auth.ResolveUsername(r.Context(), cred); err != nil {
		fail(w, err.Error())
		return
	}

	if err := h.creds.Upsert(r.Context(), cred); err != nil {
		serverError(w)
		return
	}
	ok(w)
}

// SpotifyProxy handles GET /spotify/user/{endpoint}: pass-through calls
// to the Web API on behalf of the linked account.
func (h *Handlers) SpotifyProxy(w http.ResponseWriter, r *http.Request, userID int64) {
	client, authorized := h.spotifyClient(w, r, userID)
	if !authorized {
		return
	}

	ctx := r.Context()
	query := r.URL.Query()
	limit, offset := queryInt(r, "limit"), queryInt(r, "offset")
	endpoint := chi.URLParam(r, "endpoint")

	var result any
	var err error
	switch endpoint {
	case "profile":
		result, err = client.Profile(ctx)
	case "playing_track":
		result, err = client.PlayingTrack(ctx)
	case "recent_tracks":
		result, err = client.RecentTracks(ctx, limit, queryInt64(r, "before"), queryInt64(r, "after"))
	case "top_tracks":
		result, err = client.TopTracks(ctx, limit, offset, query.Get("timespan"))
	case "followed_artists":
		result, err = client.FollowedArtists(ctx, limit, query.Get("after"))
	case "playlists":
		result, err = client.Playlists(ctx, limit, offset)
	case "saved_tracks":
		result, err = client.SavedTracks(ctx, limit, offset)
	case "saved_albums":
		result, err = client.SavedAlbums(ctx, limit, offset)
	case "search":
		result, err = client.Search(ctx, query.Get("q"), query.Get("type"), limit, offset)
	case "user_playlists":
		result, err = client.UserPlaylists(ctx, query.Get("user"), limit, offset)
	case "fetch_tracks":
		result, err = client.FetchTracks(ctx, splitIDs(query.Get("tracks")))
	case "fetch_albums":
		result, err = client.FetchAlbums(ctx, splitIDs(query.Get("albums")))
	case "fetch_artists":
		result, err = client.FetchArtists(ctx, splitIDs(query.Get("artists")))
	case "add_playlist_custom_image":
		err = client.SetPlaylistImage(ctx, query.Get("playlist"), query.Get("image"))
	case "create_playlist", "follow_playlist", "is_following_playlist",
		"add_playlist_tracks", "edit_playlist_details":
		// These operate on the user's own playlists and need the
		// resolved Spotify username.
		cred, credErr := h.creds.Get(ctx, userID)
		if credErr != nil || cred.Username == nil {
			fail(w, "Failed to fetch Spotify User ID")
			return
		}
		playlist := query.Get("playlist")
		switch endpoint {
		case "create_playlist":
			result, err = client.CreatePlaylist(ctx, *cred.Username, query.Get("name"), query.Get("description"))
		case "follow_playlist":
			err = client.FollowPlaylist(ctx, playlist)
		case "is_following_playlist":
			result, err = client.IsFollowingPlaylist(ctx, playlist, splitIDs(query.Get("users")))
		case "add_playlist_tracks":
			var snapshot string
			snapshot, err = client.AddPlaylistTracks(ctx, playlist, splitIDs(query.Get("tracks")))
			result = map[string]any{"snapshot_id": snapshot}
		case "edit_playlist_details":
			err = client.EditPlaylistDetails(ctx, playlist, query.Get("name"), query.Get("description"))
		}
	default:
		http.Error(w, "Unknown endpoint", http.StatusNotFound)
		return
	}

	if err != nil {
		fail(w, err.Error())
		return
	}
	if result == nil {
		ok(w)
		return
	}
	writeJSON(w, result)
}

// spotifyClient builds a Web API client holding a valid access token
// for the acting user, refreshing the stored credential if needed.
// Reports false after writing the error response itself.
func (h *Handlers) spotifyClient(w http.ResponseWriter, r *http.Request, userID int64) (*spotify.Client, bool) {
	cred, err := h.creds.Get(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		fail(w, "You must be authenticated with Spotify to access this URL")
		return nil, false
	}
	if err != nil {
		serverError(w)
		return nil, false
	}

	token, err := h.auth.AccessToken(r.Context(), cred)
	if err != nil {
		h.failSpotify(w, err)
		return nil, false
	}
	return spotify.NewClient(r.Context(), token), true
}

// failSpotify surfaces a token exchange failure to the user; the
// provider's message passes through verbatim.
func (h *Handlers) failSpotify(w http.ResponseWriter, err error) {
	var exchangeErr *spotify.ExchangeError
	if errors.As(err, &exchangeErr) {
		fail(w, exchangeErr.Error())
		return
	}
	serverError(w)
}

// generateOAuthState creates a random state string for CSRF protection.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
