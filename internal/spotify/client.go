package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// market pins content lookups to a single storefront.
const market = "US"

// apiBaseURL is the Web API root, used for the few endpoints the
// client library does not cover.
const apiBaseURL = "https://api.spotify.com/v1"

// ContentKinds are the catalog item types that can be looked up and
// rated.
var ContentKinds = []string{"track", "artist", "album", "playlist"}

// ValidContentKind reports whether kind names a supported catalog type.
func ValidContentKind(kind string) bool {
	for _, k := range ContentKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Client wraps the Spotify Web API for a single access token.
type Client struct {
	api *spotify.Client

	// httpClient carries the same bearer token for the endpoints the
	// library does not cover; baseURL is overridable in tests.
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Web API client authenticated with the given
// access token. The token is used as-is; refresh is the caller's
// concern (see Authenticator.AccessToken).
func NewClient(ctx context.Context, accessToken string) *Client {
	token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return &Client{
		api:        spotify.New(httpClient),
		httpClient: httpClient,
		baseURL:    apiBaseURL,
	}
}

// ContentName fetches the display name of a catalog item by kind and ID.
func (c *Client) ContentName(ctx context.Context, kind, id string) (string, error) {
	switch kind {
	case "track":
		track, err := c.api.GetTrack(ctx, spotify.ID(id))
		if err != nil {
			return "", fmt.Errorf("fetching track: %w", err)
		}
		return track.Name, nil
	case "artist":
		artist, err := c.api.GetArtist(ctx, spotify.ID(id))
		if err != nil {
			return "", fmt.Errorf("fetching artist: %w", err)
		}
		return artist.Name, nil
	case "album":
		album, err := c.api.GetAlbum(ctx, spotify.ID(id))
		if err != nil {
			return "", fmt.Errorf("fetching album: %w", err)
		}
		return album.Name, nil
	case "playlist":
		playlist, err := c.api.GetPlaylist(ctx, spotify.ID(id), spotify.Market(market))
		if err != nil {
			return "", fmt.Errorf("fetching playlist: %w", err)
		}
		return playlist.Name, nil
	default:
		return "", fmt.Errorf("unsupported content kind %q", kind)
	}
}

// Profile returns the current user's profile.
func (c *Client) Profile(ctx context.Context) (any, error) {
	return c.api.CurrentUser(ctx)
}

// PlayingTrack returns the user's currently playing track, if any.
func (c *Client) PlayingTrack(ctx context.Context) (any, error) {
	return c.api.PlayerCurrentlyPlaying(ctx, spotify.Market(market))
}

// RecentTracks returns the user's recently played tracks. The before
// and after cursors are millisecond epoch timestamps; zero means unset.
func (c *Client) RecentTracks(ctx context.Context, limit int, before, after int64) (any, error) {
	return c.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{
		Limit:         spotify.Numeric(limit),
		BeforeEpochMs: before,
		AfterEpochMs:  after,
	})
}

// FollowedArtists returns the artists the user follows. The after
// cursor is the last artist ID of the previous page.
func (c *Client) FollowedArtists(ctx context.Context, limit int, after string) (any, error) {
	opts := pageOptions(limit, 0)
	if after != "" {
		opts = append(opts, spotify.After(after))
	}
	return c.api.CurrentUsersFollowedArtists(ctx, opts...)
}

// UserPlaylists returns the public playlists of another user.
func (c *Client) UserPlaylists(ctx context.Context, user string, limit, offset int) (any, error) {
	return c.api.GetPlaylistsForUser(ctx, user, pageOptions(limit, offset)...)
}

// FetchTracks returns full track objects for a batch of track IDs.
func (c *Client) FetchTracks(ctx context.Context, ids []string) (any, error) {
	return c.api.GetTracks(ctx, toIDs(ids), spotify.Market(market))
}

// FetchAlbums returns full album objects for a batch of album IDs.
func (c *Client) FetchAlbums(ctx context.Context, ids []string) (any, error) {
	return c.api.GetAlbums(ctx, toIDs(ids))
}

// FetchArtists returns full artist objects for a batch of artist IDs.
func (c *Client) FetchArtists(ctx context.Context, ids []string) (any, error) {
	return c.api.GetArtists(ctx, toIDs(ids)...)
}

// TopTracks returns the user's top tracks over the given timespan
// (short, medium or long).
func (c *Client) TopTracks(ctx context.Context, limit, offset int, timespan string) (any, error) {
	opts := pageOptions(limit, offset)
	switch timespan {
	case "short":
		opts = append(opts, spotify.Timerange(spotify.ShortTermRange))
	case "long":
		opts = append(opts, spotify.Timerange(spotify.LongTermRange))
	default:
		opts = append(opts, spotify.Timerange(spotify.MediumTermRange))
	}
	return c.api.CurrentUsersTopTracks(ctx, opts...)
}

// Playlists returns the user's playlists.
func (c *Client) Playlists(ctx context.Context, limit, offset int) (any, error) {
	return c.api.CurrentUsersPlaylists(ctx, pageOptions(limit, offset)...)
}

// SavedTracks returns the user's saved tracks.
func (c *Client) SavedTracks(ctx context.Context, limit, offset int) (any, error) {
	return c.api.CurrentUsersTracks(ctx, pageOptions(limit, offset)...)
}

// SavedAlbums returns the user's saved albums.
func (c *Client) SavedAlbums(ctx context.Context, limit, offset int) (any, error) {
	return c.api.CurrentUsersAlbums(ctx, pageOptions(limit, offset)...)
}

// Search searches the catalog for items of the given kind.
func (c *Client) Search(ctx context.Context, query, kind string, limit, offset int) (any, error) {
	searchType, err := searchTypeFor(kind)
	if err != nil {
		return nil, err
	}
	opts := append(pageOptions(limit, offset), spotify.Market(market))
	return c.api.Search(ctx, query, searchType, opts...)
}

// CreatePlaylist creates a playlist owned by the given username.
func (c *Client) CreatePlaylist(ctx context.Context, username, name, description string) (any, error) {
	return c.api.CreatePlaylistForUser(ctx, username, name, description, false, false)
}

// FollowPlaylist makes the current user follow a playlist publicly.
func (c *Client) FollowPlaylist(ctx context.Context, playlist string) error {
	return c.api.FollowPlaylist(ctx, spotify.ID(playlist), true)
}

// maxTracksPerRequest is the Web API's per-request track limit.
const maxTracksPerRequest = 100

// AddPlaylistTracks appends tracks to a playlist, batching large sets.
// Returns the playlist's snapshot ID after the last batch.
func (c *Client) AddPlaylistTracks(ctx context.Context, playlist string, trackIDs []string) (string, error) {
	ids := toIDs(trackIDs)

	var snapshot string
	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		s, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlist), ids[i:end]...)
		if err != nil {
			return "", fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
		snapshot = s
	}
	return snapshot, nil
}

// IsFollowingPlaylist reports, per user ID, whether each user follows
// the playlist.
func (c *Client) IsFollowingPlaylist(ctx context.Context, playlist string, userIDs []string) ([]bool, error) {
	path := fmt.Sprintf("/playlists/%s/followers/contains?ids=%s",
		playlist, url.QueryEscape(strings.Join(userIDs, ",")))

	var following []bool
	if err := c.call(ctx, http.MethodGet, path, "", nil, &following); err != nil {
		return nil, fmt.Errorf("checking playlist followers: %w", err)
	}
	return following, nil
}

// EditPlaylistDetails updates a playlist's name and description.
// Empty fields are left unchanged.
func (c *Client) EditPlaylistDetails(ctx context.Context, playlist, name, description string) error {
	details := make(map[string]string)
	if name != "" {
		details["name"] = name
	}
	if description != "" {
		details["description"] = description
	}

	body, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encoding playlist details: %w", err)
	}
	if err := c.call(ctx, http.MethodPut, "/playlists/"+playlist, "application/json", strings.NewReader(string(body)), nil); err != nil {
		return fmt.Errorf("editing playlist details: %w", err)
	}
	return nil
}

// SetPlaylistImage replaces a playlist's cover image. The image is a
// base64-encoded JPEG, passed through to the API as-is.
func (c *Client) SetPlaylistImage(ctx context.Context, playlist, imageB64 string) error {
	if err := c.call(ctx, http.MethodPut, "/playlists/"+playlist+"/images", "image/jpeg", strings.NewReader(imageB64), nil); err != nil {
		return fmt.Errorf("uploading playlist image: %w", err)
	}
	return nil
}

// call performs a bearer-authorized request against the Web API for
// the endpoints the client library does not cover. A non-nil out is
// filled from the response body.
func (c *Client) call(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("spotify API status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}

func pageOptions(limit, offset int) []spotify.RequestOption {
	var opts []spotify.RequestOption
	if limit > 0 {
		opts = append(opts, spotify.Limit(limit))
	}
	if offset > 0 {
		opts = append(opts, spotify.Offset(offset))
	}
	return opts
}

func searchTypeFor(kind string) (spotify.SearchType, error) {
	switch kind {
	case "", "track":
		return spotify.SearchTypeTrack, nil
	case "artist":
		return spotify.SearchTypeArtist, nil
	case "album":
		return spotify.SearchTypeAlbum, nil
	case "playlist":
		return spotify.SearchTypePlaylist, nil
	default:
		return 0, fmt.Errorf("unsupported search type %q", kind)
	}
}

// Profile resolves usernames by asking the Web API who owns a token.
// It implements ProfileResolver.
type Profile struct{}

// CurrentUserID returns the Spotify user ID owning the access token.
func (Profile) CurrentUserID(ctx context.Context, accessToken string) (string, error) {
	user, err := NewClient(ctx, accessToken).api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("getting current user: %w", err)
	}
	return user.ID, nil
}

var _ ProfileResolver = Profile{}
