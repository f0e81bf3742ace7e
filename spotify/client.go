// Package spotify glues the hub to the Spotify Web API: OAuth login with
// a QR handoff, a thin REST client, and background pollers that keep each
// linked account's playback state cached in the store.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jcpope/homehub/store"
)

const (
	accountsURL = "https://accounts.spotify.com"
	apiURL      = "https://api.spotify.com/v1"
)

// Client is a minimal Spotify Web API wrapper. Methods take the access
// token explicitly; token lifecycle lives with the profile in the store.
type Client struct {
	httpc        *http.Client
	clientID     string
	clientSecret string
	redirectURL  string
}

func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		httpc:        &http.Client{Timeout: 10 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
	}
}

// Token is the result of a code exchange or refresh.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthorizeURL builds the user-facing login URL for the given state
// token.
func (c *Client) AuthorizeURL(state string) string {
	scopes := []string{
		"user-read-private",
		"user-read-email",
		"user-read-playback-state",
		"user-modify-playback-state",
		"playlist-read-private",
		"playlist-read-collaborative",
	}

	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.redirectURL)
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("state", state)

	return accountsURL + "/authorize?" + q.Encode()
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURL)
	return c.tokenRequest(ctx, form)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, form)
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, accountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Token{}, fmt.Errorf("token request: status %d: %s", resp.StatusCode, body)
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return Token{}, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

// UserProfile is the authenticated user, from GET /v1/me.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func (c *Client) Me(ctx context.Context, token string) (UserProfile, error) {
	var me UserProfile
	if err := c.getJSON(ctx, token, "/me", &me); err != nil {
		return UserProfile{}, err
	}
	return me, nil
}

// Track is the subset of a Spotify track the UI cares about.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ArtistName string `json:"artistName"`
	URI        string `json:"uri"`
	DurationMs int    `json:"durationMs"`
	ImageURL   string `json:"imageUrl"`
}

// wire shapes for the Web API responses

type apiTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URI     string `json:"uri"`
	Type    string `json:"type"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	DurationMs int `json:"duration_ms"`
}

func (t apiTrack) artistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func (t apiTrack) imageURL() string {
	if len(t.Album.Images) > 0 {
		return t.Album.Images[0].URL
	}
	return ""
}

func (t apiTrack) toTrack() Track {
	return Track{
		ID:         t.ID,
		Name:       t.Name,
		ArtistName: t.artistNames(),
		URI:        t.URI,
		DurationMs: t.DurationMs,
		ImageURL:   t.imageURL(),
	}
}

type playbackResponse struct {
	IsPlaying    bool   `json:"is_playing"`
	ProgressMs   int    `json:"progress_ms"`
	ShuffleState bool   `json:"shuffle_state"`
	RepeatState  string `json:"repeat_state"`
	Device       struct {
		Name string `json:"name"`
	} `json:"device"`
	Context *struct {
		URI string `json:"uri"`
	} `json:"context"`
	Item *apiTrack `json:"item"`
}

// Playback fetches the current playback plus queue and flattens both into
// the store's PlaybackInfo shape. Returns nil when nothing is playing.
func (c *Client) Playback(ctx context.Context, token string) (*store.PlaybackInfo, error) {
	var pb playbackResponse
	if err := c.getJSON(ctx, token, "/me/player", &pb); err != nil {
		return nil, err
	}
	if pb.Item == nil {
		return nil, nil
	}

	playlistID := ""
	if pb.Context != nil {
		playlistID = strings.TrimPrefix(pb.Context.URI, "spotify:playlist:")
	}

	info := &store.PlaybackInfo{
		SongID:        pb.Item.ID,
		SongName:      pb.Item.Name,
		ArtistName:    pb.Item.artistNames(),
		SongImage:     pb.Item.imageURL(),
		PlaybackState: pb.IsPlaying,
		ActiveDevice:  pb.Device.Name,
		PlaylistID:    playlistID,
		ProgressMs:    pb.ProgressMs,
		DurationMs:    pb.Item.DurationMs,
		ShuffleState:  pb.ShuffleState,
		RepeatState:   pb.RepeatState,
		Queue:         []store.QueueItem{},
	}
	if info.RepeatState == "" {
		info.RepeatState = "off"
	}

	var queue struct {
		Queue []apiTrack `json:"queue"`
	}
	if err := c.getJSON(ctx, token, "/me/player/queue", &queue); err == nil {
		for _, t := range queue.Queue {
			if t.Type != "" && t.Type != "track" {
				continue
			}
			info.Queue = append(info.Queue, store.QueueItem{
				SongID:     t.ID,
				SongName:   t.Name,
				ArtistName: t.artistNames(),
				SongImage:  t.imageURL(),
				DurationMs: t.DurationMs,
			})
		}
	}

	return info, nil
}

func (c *Client) Devices(ctx context.Context, token string) ([]store.SpotifyDevice, error) {
	var resp struct {
		Devices []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			IsActive      bool   `json:"is_active"`
			Type          string `json:"type"`
			VolumePercent int    `json:"volume_percent"`
		} `json:"devices"`
	}
	if err := c.getJSON(ctx, token, "/me/player/devices", &resp); err != nil {
		return nil, err
	}

	devices := make([]store.SpotifyDevice, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		devices = append(devices, store.SpotifyDevice{
			ID:            d.ID,
			Name:          d.Name,
			IsActive:      d.IsActive,
			Type:          d.Type,
			VolumePercent: d.VolumePercent,
		})
	}
	return devices, nil
}

func (c *Client) Playlists(ctx context.Context, token, userID string) ([]store.UserPlaylist, error) {
	var resp struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	path := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := c.getJSON(ctx, token, path, &resp); err != nil {
		return nil, err
	}

	playlists := make([]store.UserPlaylist, 0, len(resp.Items))
	for _, p := range resp.Items {
		playlists = append(playlists, store.UserPlaylist{ID: p.ID, Name: p.Name})
	}
	return playlists, nil
}

func (c *Client) PlaylistTracks(ctx context.Context, token, playlistID string) ([]Track, error) {
	var resp struct {
		Items []struct {
			Track *apiTrack `json:"track"`
		} `json:"items"`
	}
	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	if err := c.getJSON(ctx, token, path, &resp); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Track == nil {
			continue
		}
		tracks = append(tracks, item.Track.toTrack())
	}
	return tracks, nil
}

func (c *Client) SearchTracks(ctx context.Context, token, query string, limit int) ([]Track, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", fmt.Sprintf("%d", limit))

	var resp struct {
		Tracks struct {
			Items []apiTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := c.getJSON(ctx, token, "/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		tracks = append(tracks, t.toTrack())
	}
	return tracks, nil
}

// ---------- playback control ---------- //

func (c *Client) Play(ctx context.Context, token string) error {
	return c.command(ctx, token, http.MethodPut, "/me/player/play", nil)
}

func (c *Client) Pause(ctx context.Context, token string) error {
	return c.command(ctx, token, http.MethodPut, "/me/player/pause", nil)
}

func (c *Client) Next(ctx context.Context, token string) error {
	return c.command(ctx, token, http.MethodPost, "/me/player/next", nil)
}

func (c *Client) Previous(ctx context.Context, token string) error {
	return c.command(ctx, token, http.MethodPost, "/me/player/previous", nil)
}

func (c *Client) SetShuffle(ctx context.Context, token string, on bool) error {
	return c.command(ctx, token, http.MethodPut, fmt.Sprintf("/me/player/shuffle?state=%t", on), nil)
}

func (c *Client) SetRepeat(ctx context.Context, token, state string) error {
	switch state {
	case "track", "context", "off":
	default:
		state = "off"
	}
	return c.command(ctx, token, http.MethodPut, "/me/player/repeat?state="+state, nil)
}

func (c *Client) TransferPlayback(ctx context.Context, token, deviceID string) error {
	body := map[string]any{"device_ids": []string{deviceID}, "play": true}
	return c.command(ctx, token, http.MethodPut, "/me/player", body)
}

func (c *Client) PlayURI(ctx context.Context, token, uri string) error {
	body := map[string]any{"uris": []string{uri}}
	return c.command(ctx, token, http.MethodPut, "/me/player/play", body)
}

func (c *Client) PlayContext(ctx context.Context, token, contextURI string) error {
	body := map[string]any{"context_uri": contextURI}
	return c.command(ctx, token, http.MethodPut, "/me/player/play", body)
}

// ---------- request plumbing ---------- //

func (c *Client) getJSON(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("spotify GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	// 204 means no active playback; leave out untouched.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) command(ctx context.Context, token, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("spotify %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("spotify %s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}
