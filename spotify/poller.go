package spotify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jcpope/homehub/store"
)

// Poller keeps every linked account's cached state fresh: playback and
// queue every few seconds, devices and playlists on slower cycles, plus a
// periodic token refresh. Loops start once, on the first login, and run
// for the lifetime of the process. Failures keep the previous cache.
type Poller struct {
	client *Client
	store  *store.Store

	once sync.Once

	PlaybackInterval time.Duration
	DevicesInterval  time.Duration
	PlaylistInterval time.Duration
	RefreshInterval  time.Duration
}

func NewPoller(client *Client, st *store.Store) *Poller {
	return &Poller{
		client:           client,
		store:            st,
		PlaybackInterval: 5 * time.Second,
		DevicesInterval:  30 * time.Second,
		PlaylistInterval: 5 * time.Minute,
		RefreshInterval:  30 * time.Minute,
	}
}

// EnsureRunning starts the poll loops exactly once.
func (p *Poller) EnsureRunning() {
	p.once.Do(func() {
		go p.loop(p.PlaybackInterval, p.updatePlayback)
		go p.loop(p.DevicesInterval, p.updateDevices)
		go p.loop(p.PlaylistInterval, p.updatePlaylists)
		go p.loop(p.RefreshInterval, p.refreshTokens)
		slog.Info("Spotify pollers started")
	})
}

func (p *Poller) loop(interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		fn(ctx)
		cancel()
	}
}

func (p *Poller) updatePlayback(ctx context.Context) {
	for _, profile := range p.store.SpotifyProfiles() {
		if profile.AccessToken == "" {
			continue
		}

		playback, err := p.client.Playback(ctx, profile.AccessToken)
		if err != nil {
			slog.Debug("Playback poll failed", "spotifyId", profile.ID, "error", err)
			continue
		}

		p.store.UpdateSpotifyProfile(profile.ID, func(sp *store.SpotifyProfile) {
			if playback != nil {
				sp.Playback = playback
				sp.LastActive = time.Now().UTC()
			} else if sp.Playback != nil {
				// Nothing playing: keep the last known track, mark paused.
				// Swap in a fresh value rather than writing through the
				// old pointer.
				paused := *sp.Playback
				paused.PlaybackState = false
				sp.Playback = &paused
			}
		})
	}
}

func (p *Poller) updateDevices(ctx context.Context) {
	for _, profile := range p.store.SpotifyProfiles() {
		if profile.AccessToken == "" {
			continue
		}

		devices, err := p.client.Devices(ctx, profile.AccessToken)
		if err != nil {
			slog.Debug("Device poll failed", "spotifyId", profile.ID, "error", err)
			continue
		}

		p.store.UpdateSpotifyProfile(profile.ID, func(sp *store.SpotifyProfile) {
			sp.Devices = devices
		})
	}
}

func (p *Poller) updatePlaylists(ctx context.Context) {
	for _, profile := range p.store.SpotifyProfiles() {
		if profile.AccessToken == "" {
			continue
		}

		playlists, err := p.client.Playlists(ctx, profile.AccessToken, profile.ID)
		if err != nil {
			slog.Debug("Playlist poll failed", "spotifyId", profile.ID, "error", err)
			continue
		}

		p.store.UpdateSpotifyProfile(profile.ID, func(sp *store.SpotifyProfile) {
			sp.Playlists = playlists
			if sp.Playback != nil {
				sp.ActivePlaylistID = sp.Playback.PlaylistID
			}
		})
	}
}

func (p *Poller) refreshTokens(ctx context.Context) {
	for _, profile := range p.store.SpotifyProfiles() {
		if profile.RefreshToken == "" {
			continue
		}

		token, err := p.client.Refresh(ctx, profile.RefreshToken)
		if err != nil {
			slog.Warn("Token refresh failed", "spotifyId", profile.ID, "error", err)
			continue
		}

		p.store.UpdateSpotifyProfile(profile.ID, func(sp *store.SpotifyProfile) {
			sp.AccessToken = token.AccessToken
			if token.RefreshToken != "" {
				sp.RefreshToken = token.RefreshToken
			}
		})
		slog.Debug("Refreshed Spotify token", "spotifyId", profile.ID)
	}
}
