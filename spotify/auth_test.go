package spotify

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jcpope/homehub/store"
)

type fakePusher struct {
	alive bool
	sent  []any
}

func (f *fakePusher) Send(v any) error { f.sent = append(f.sent, v); return nil }
func (f *fakePusher) Alive() bool      { return f.alive }

func newTestAuth() *Auth {
	client := NewClient("client-id", "client-secret", "http://localhost:8080/Spotify/Callback")
	st := store.New(false)
	return NewAuth(client, st, NewPoller(client, st), "")
}

// stateOf extracts the OAuth state token from a login URL.
func stateOf(t *testing.T, loginURL string) string {
	t.Helper()
	parsed, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("Failed to parse login URL %q: %v", loginURL, err)
	}
	state := parsed.Query().Get("state")
	if state == "" {
		t.Fatalf("Expected state parameter in %q", loginURL)
	}
	return state
}

func TestBeginLogin_ParksSession(t *testing.T) {
	auth := newTestAuth()
	session := &fakePusher{alive: true}

	loginURL, qr, err := auth.BeginLogin(session)
	if err != nil {
		t.Fatalf("BeginLogin failed: %v", err)
	}
	if !strings.HasPrefix(qr, "data:image/png;base64,") {
		t.Errorf("Expected PNG data URI, got %q", qr[:min(len(qr), 30)])
	}

	got, ok := auth.takePending(stateOf(t, loginURL))
	if !ok {
		t.Fatal("Expected parked session")
	}
	if got != session {
		t.Error("Expected the same session back")
	}

	// A state token is single-use.
	if _, ok := auth.takePending(stateOf(t, loginURL)); ok {
		t.Error("Expected second take to miss")
	}
}

func TestTakePending_Expired(t *testing.T) {
	auth := newTestAuth()
	auth.ttl = -time.Minute

	loginURL, _, err := auth.BeginLogin(&fakePusher{alive: true})
	if err != nil {
		t.Fatalf("BeginLogin failed: %v", err)
	}

	if _, ok := auth.takePending(stateOf(t, loginURL)); ok {
		t.Error("Expected expired login to count as absent")
	}
}

func TestBeginLogin_PrunesAbandonedLogins(t *testing.T) {
	auth := newTestAuth()
	auth.ttl = -time.Minute

	if _, _, err := auth.BeginLogin(&fakePusher{alive: true}); err != nil {
		t.Fatalf("BeginLogin failed: %v", err)
	}

	// The next login sweeps the already-expired entry.
	auth.ttl = time.Minute
	if _, _, err := auth.BeginLogin(&fakePusher{alive: true}); err != nil {
		t.Fatalf("BeginLogin failed: %v", err)
	}

	auth.mu.Lock()
	pending := len(auth.pending)
	auth.mu.Unlock()
	if pending != 1 {
		t.Errorf("Expected 1 pending login after sweep, got %d", pending)
	}
}

func TestBeginLogin_PrunesDeadSessions(t *testing.T) {
	auth := newTestAuth()

	if _, _, err := auth.BeginLogin(&fakePusher{alive: false}); err != nil {
		t.Fatalf("BeginLogin failed: %v", err)
	}
	if _, _, err := auth.BeginLogin(&fakePusher{alive: true}); err != nil {
		t.Fatalf("BeginLogin failed: %v", err)
	}

	auth.mu.Lock()
	pending := len(auth.pending)
	auth.mu.Unlock()
	if pending != 1 {
		t.Errorf("Expected closed session to be swept, got %d pending", pending)
	}
}
