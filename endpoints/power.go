package endpoints

import (
	"log/slog"
	"time"

	"github.com/jcpope/homehub/pc"
	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/server"
	"github.com/jcpope/homehub/store"
)

const reachableTimeout = 2 * time.Second

func wakeOnLan(cfg store.PCConfig, st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		if cfg.MacAddress == "" || cfg.BroadcastIP == "" {
			respondError(c, "WakeOnLan", msg.RequestID, "No PC configured")
			return
		}

		if err := pc.WakeOnLAN(cfg.MacAddress, cfg.BroadcastIP); err != nil {
			slog.Warn("Wake-on-LAN failed", "error", err)
			respondError(c, "WakeOnLan", msg.RequestID, err.Error())
			return
		}

		respond(c, "WakeOnLan", msg.RequestID, "Completed")
	}
}

func pcStatus(cfg store.PCConfig) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		if cfg.IP == "" {
			respondError(c, "PcStatus", msg.RequestID, "No PC configured")
			return
		}

		respond(c, "PcStatus", msg.RequestID, map[string]any{
			"name":      cfg.Name,
			"ip":        cfg.IP,
			"reachable": pc.Reachable(cfg.IP, reachableTimeout),
		})
	}
}

func shutdown(cfg store.PCConfig) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		if cfg.IP == "" {
			respondError(c, "Shutdown", msg.RequestID, "No PC configured")
			return
		}

		if err := pc.PowerOff(cfg.IP); err != nil {
			respondError(c, "Shutdown", msg.RequestID, err.Error())
			return
		}

		respond(c, "Shutdown", msg.RequestID, "Completed")
	}
}
