package spotify

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/jcpope/homehub/store"
)

// Pusher is the outbound side of the WebSocket session that initiated a
// login. The OAuth callback correlates back to it via the state token,
// not a requestId.
type Pusher interface {
	Send(v any) error
	Alive() bool
}

// loginTTL bounds how long an unanswered login can park a session.
const loginTTL = 5 * time.Minute

// Auth runs the authorization-code flow. BeginLogin parks the requesting
// session under a fresh state token; the browser redirect lands on
// HandleCallback, which exchanges the code, stores the profile and pushes
// a LoginResult to the parked session.
type Auth struct {
	client   *Client
	store    *store.Store
	poller   *Poller
	webUIURL string
	ttl      time.Duration

	mu      sync.Mutex
	pending map[string]pendingLogin
}

// pendingLogin is one parked session awaiting its OAuth callback.
type pendingLogin struct {
	session Pusher
	expires time.Time
}

func NewAuth(client *Client, st *store.Store, poller *Poller, webUIURL string) *Auth {
	return &Auth{
		client:   client,
		store:    st,
		poller:   poller,
		webUIURL: webUIURL,
		ttl:      loginTTL,
		pending:  make(map[string]pendingLogin),
	}
}

// BeginLogin registers the session and returns the login URL plus a QR
// code for it as a base64 PNG data URI. Abandoned logins expire after
// loginTTL so dead sessions never accumulate.
func (a *Auth) BeginLogin(session Pusher) (loginURL, qrDataURI string, err error) {
	state := uuid.NewString()

	a.mu.Lock()
	a.prune(time.Now())
	a.pending[state] = pendingLogin{session: session, expires: time.Now().Add(a.ttl)}
	a.mu.Unlock()

	loginURL = a.client.AuthorizeURL(state)

	png, err := qrcode.Encode(loginURL, qrcode.Medium, 330)
	if err != nil {
		return "", "", err
	}
	qrDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	return loginURL, qrDataURI, nil
}

// prune drops expired entries and entries whose session has closed.
// Caller holds a.mu.
func (a *Auth) prune(now time.Time) {
	for state, entry := range a.pending {
		if now.After(entry.expires) || !entry.session.Alive() {
			delete(a.pending, state)
		}
	}
}

// takePending removes and returns the session parked under state.
// Expired entries count as absent.
func (a *Auth) takePending(state string) (Pusher, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.pending[state]
	if !ok {
		return nil, false
	}
	delete(a.pending, state)
	if time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.session, true
}

// HandleCallback is the HTTP handler for the OAuth redirect.
func (a *Auth) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	session, ok := a.takePending(state)
	if code == "" || state == "" || !ok {
		http.Error(w, "Invalid login session.", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	token, err := a.client.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("Spotify token exchange failed", "error", err)
		http.Error(w, "Token exchange failed.", http.StatusBadGateway)
		return
	}

	me, err := a.client.Me(ctx, token.AccessToken)
	if err != nil {
		slog.Error("Spotify profile fetch failed", "error", err)
		http.Error(w, "Profile fetch failed.", http.StatusBadGateway)
		return
	}

	profile := store.SpotifyProfile{
		ID:           me.ID,
		DisplayName:  me.DisplayName,
		Email:        me.Email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		LastActive:   time.Now().UTC(),
		Playlists:    []store.UserPlaylist{},
		Devices:      []store.SpotifyDevice{},
	}
	a.store.PutSpotifyProfile(profile)
	slog.Info("Spotify account linked", "displayName", profile.DisplayName, "spotifyId", profile.ID)

	if a.webUIURL != "" {
		redirect := a.webUIURL + "Spotify/Callback/Success" +
			"?name=" + url.QueryEscape(profile.DisplayName) +
			"&email=" + url.QueryEscape(profile.Email)
		http.Redirect(w, r, redirect, http.StatusFound)
	} else {
		w.Write([]byte("Spotify login complete. You can close this tab."))
	}

	// Server-initiated push to the session that asked for the login.
	if session.Alive() {
		result := map[string]any{
			"type":        "Spotify/LoginResult",
			"displayName": profile.DisplayName,
			"userId":      profile.ID,
		}
		if err := session.Send(result); err != nil {
			slog.Warn("Failed to push login result", "error", err)
		}
	}

	a.poller.EnsureRunning()
}
