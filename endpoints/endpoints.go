// Package endpoints holds every WebSocket message handler the hub
// registers at startup: system introspection, PC power control, weather
// queries, Spotify session operations and profile CRUD.
package endpoints

import (
	"log/slog"

	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/server"
	"github.com/jcpope/homehub/spotify"
	"github.com/jcpope/homehub/store"
)

// Deps is everything the handler table closes over.
type Deps struct {
	Store   *store.Store
	Spotify *spotify.Client
	Auth    *spotify.Auth
	PC      store.PCConfig
}

// RegisterAll installs the full handler table. Key format is
// "Category/Action" for app endpoints and bare camelCase for system ones.
func RegisterAll(s *server.Server, deps Deps) {
	// System
	s.RegisterModule("getEndpoints", getEndpoints(s.Registry()))
	s.RegisterModule("getConnectedUsers", getConnectedUsers(deps.Store))
	s.RegisterModule("getDevMode", getDevMode(deps.Store))
	s.RegisterModule("getServerUptime", getServerUptime(deps.Store))
	s.RegisterModule("getLocation", getLocation(deps.Store))

	// PC power control
	s.RegisterModule("WakeOnLan", wakeOnLan(deps.PC, deps.Store))
	s.RegisterModule("Shutdown", shutdown(deps.PC))
	s.RegisterModule("PcStatus", pcStatus(deps.PC))

	// Weather
	s.RegisterModule("Weather/GetWeather", getWeather(deps.Store))
	s.RegisterModule("Weather/GetForecast", getForecast(deps.Store))

	// Spotify
	s.RegisterModule("Spotify/Login", spotifyLogin(deps.Auth))
	s.RegisterModule("Spotify/GetProfiles", spotifyGetProfiles(deps.Store))
	s.RegisterModule("Spotify/GetState", spotifyGetState(deps.Store))
	s.RegisterModule("Spotify/GetAllStates", spotifyGetAllStates(deps.Store))
	s.RegisterModule("Spotify/Playback", spotifyPlayback(deps.Store, deps.Spotify))
	s.RegisterModule("Spotify/Search", spotifySearch(deps.Store, deps.Spotify))
	s.RegisterModule("Spotify/GetPlaylistTracks", spotifyGetPlaylistTracks(deps.Store, deps.Spotify))

	// Profiles
	s.RegisterModule("Profile/GetAll", profileGetAll(deps.Store))
	s.RegisterModule("Profile/Create", profileCreate(deps.Store))
	s.RegisterModule("Profile/Login", profileLogin(deps.Store))
	s.RegisterModule("Profile/Update", profileUpdate(deps.Store))
	s.RegisterModule("Profile/Delete", profileDelete(deps.Store))
	s.RegisterModule("Profile/LinkSpotify", profileLinkSpotify(deps.Store))
}

// respond sends the handler's reply envelope, echoing the requestId.
func respond(c server.Conn, msgType, requestID string, data any) {
	err := c.Send(proto.Response{Type: msgType, RequestID: requestID, Data: data})
	if err != nil {
		slog.Debug("Failed to send response", "type", msgType, "deviceId", c.DeviceID(), "error", err)
	}
}

// respondError sends the conventional {success:false, error} payload.
func respondError(c server.Conn, msgType, requestID, message string) {
	respond(c, msgType, requestID, proto.Result{Success: false, Error: message})
}
