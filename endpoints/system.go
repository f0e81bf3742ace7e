package endpoints

import (
	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/server"
	"github.com/jcpope/homehub/store"
)

func getEndpoints(reg *server.Registry) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		respond(c, "getEndpoints", msg.RequestID, map[string]any{
			"endpoints": reg.Types(),
		})
	}
}

func getConnectedUsers(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		devices := st.Devices()
		respond(c, "getConnectedUsers", msg.RequestID, map[string]any{
			"devices": devices,
			"count":   len(devices),
		})
	}
}

func getDevMode(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		respond(c, "getDevMode", msg.RequestID, map[string]any{
			"devMode": st.DevMode(),
		})
	}
}

func getServerUptime(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		respond(c, "getServerUptime", msg.RequestID, map[string]any{
			"uptime":    st.Uptime().Seconds(),
			"startedAt": st.StartedAt(),
		})
	}
}

func getLocation(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		loc, ok := st.Location()
		if !ok {
			respondError(c, "getLocation", msg.RequestID, "Location not resolved yet")
			return
		}
		respond(c, "getLocation", msg.RequestID, map[string]any{
			"city":        loc.City,
			"lat":         loc.Latitude,
			"lon":         loc.Longitude,
			"region":      loc.Region,
			"country":     loc.Country,
			"countryName": loc.CountryName,
			"timezone":    loc.Timezone,
		})
	}
}
