package endpoints

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/server"
	"github.com/jcpope/homehub/spotify"
	"github.com/jcpope/homehub/store"
)

const spotifyCallTimeout = 15 * time.Second

func spotifyLogin(auth *spotify.Auth) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		loginURL, qr, err := auth.BeginLogin(c)
		if err != nil {
			respondError(c, "Spotify/Login", msg.RequestID, err.Error())
			return
		}

		respond(c, "Spotify/Login", msg.RequestID, map[string]any{
			"loginUrl": loginURL,
			"qrCode":   qr,
		})
	}
}

func spotifyGetProfiles(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		profiles := st.SpotifyProfiles()
		out := make([]map[string]any, 0, len(profiles))
		for _, p := range profiles {
			isPlaying := p.Playback != nil && p.Playback.PlaybackState
			out = append(out, map[string]any{
				"id":          p.ID,
				"displayName": p.DisplayName,
				"email":       p.Email,
				"isPlaying":   isPlaying,
				"lastActive":  p.LastActive,
			})
		}
		respond(c, "Spotify/GetProfiles", msg.RequestID, out)
	}
}

func spotifyState(p store.SpotifyProfile) map[string]any {
	return map[string]any{
		"id":               p.ID,
		"displayName":      p.DisplayName,
		"playback":         p.Playback,
		"devices":          p.Devices,
		"playlists":        p.Playlists,
		"activePlaylistId": p.ActivePlaylistID,
		"lastActive":       p.LastActive,
	}
}

func spotifyGetState(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		userID := proto.String(msg.Data, "userId")

		profile, ok := st.SpotifyProfile(userID)
		if !ok {
			respondError(c, "Spotify/GetState", msg.RequestID, "Profile not found")
			return
		}

		respond(c, "Spotify/GetState", msg.RequestID, spotifyState(profile))
	}
}

func spotifyGetAllStates(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		profiles := st.SpotifyProfiles()
		states := make([]map[string]any, 0, len(profiles))
		for _, p := range profiles {
			states = append(states, spotifyState(p))
		}
		respond(c, "Spotify/GetAllStates", msg.RequestID, states)
	}
}

func spotifyPlayback(st *store.Store, client *spotify.Client) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		userID := proto.String(msg.Data, "userId")
		action := proto.String(msg.Data, "action")

		profile, ok := st.SpotifyProfile(userID)
		if userID == "" || action == "" || !ok {
			respondError(c, "Spotify/Playback", msg.RequestID, "Invalid userId or action")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), spotifyCallTimeout)
		defer cancel()
		token := profile.AccessToken

		var err error
		switch action {
		case "play":
			err = client.Play(ctx, token)
		case "pause":
			err = client.Pause(ctx, token)
		case "next":
			err = client.Next(ctx, token)
		case "previous":
			err = client.Previous(ctx, token)
		case "shuffle":
			err = client.SetShuffle(ctx, token, proto.Bool(msg.Data, "value"))
		case "repeat":
			err = client.SetRepeat(ctx, token, proto.String(msg.Data, "state"))
		case "transfer":
			deviceID := proto.String(msg.Data, "deviceId")
			if deviceID == "" {
				err = fmt.Errorf("deviceId required")
			} else {
				err = client.TransferPlayback(ctx, token, deviceID)
			}
		case "playuri":
			uri := proto.String(msg.Data, "uri")
			if uri == "" {
				err = fmt.Errorf("uri required")
			} else {
				err = client.PlayURI(ctx, token, uri)
			}
		case "playcontext":
			contextURI := proto.String(msg.Data, "contextUri")
			if contextURI == "" {
				err = fmt.Errorf("contextUri required")
			} else {
				err = client.PlayContext(ctx, token, contextURI)
			}
		default:
			err = fmt.Errorf("unknown action: %s", action)
		}

		if err != nil {
			slog.Warn("Playback control failed", "action", action, "spotifyId", profile.ID, "error", err)
			respond(c, "Spotify/Playback", msg.RequestID, map[string]any{
				"success": false,
				"action":  action,
				"error":   err.Error(),
			})
			return
		}

		st.UpdateSpotifyProfile(profile.ID, func(sp *store.SpotifyProfile) {
			sp.LastActive = time.Now().UTC()
		})

		respond(c, "Spotify/Playback", msg.RequestID, map[string]any{
			"success": true,
			"action":  action,
		})
	}
}

func spotifySearch(st *store.Store, client *spotify.Client) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		userID := proto.String(msg.Data, "userId")
		query := proto.String(msg.Data, "query")

		profile, ok := st.SpotifyProfile(userID)
		if userID == "" || query == "" || !ok {
			respondError(c, "Spotify/Search", msg.RequestID, "Invalid userId or query")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), spotifyCallTimeout)
		defer cancel()

		tracks, err := client.SearchTracks(ctx, profile.AccessToken, query, 20)
		if err != nil {
			respondError(c, "Spotify/Search", msg.RequestID, err.Error())
			return
		}

		respond(c, "Spotify/Search", msg.RequestID, map[string]any{"tracks": tracks})
	}
}

func spotifyGetPlaylistTracks(st *store.Store, client *spotify.Client) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		userID := proto.String(msg.Data, "userId")
		playlistID := proto.String(msg.Data, "playlistId")

		profile, ok := st.SpotifyProfile(userID)
		if userID == "" || playlistID == "" || !ok {
			respondError(c, "Spotify/GetPlaylistTracks", msg.RequestID, "Invalid userId or playlistId")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), spotifyCallTimeout)
		defer cancel()

		tracks, err := client.PlaylistTracks(ctx, profile.AccessToken, playlistID)
		if err != nil {
			respondError(c, "Spotify/GetPlaylistTracks", msg.RequestID, err.Error())
			return
		}

		respond(c, "Spotify/GetPlaylistTracks", msg.RequestID, map[string]any{"tracks": tracks})
	}
}
