package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jcpope/homehub/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // UI clients connect from arbitrary LAN origins
	},
}

// Server owns the listening endpoint. Each accepted upgrade becomes a
// Session running on its own goroutine, seeded with the (startup-frozen)
// handler registry and the shared state store.
type Server struct {
	addr     string
	registry *Registry
	store    *store.Store
	router   chi.Router
	httpSrv  *http.Server
}

func New(addr string, st *store.Store) *Server {
	s := &Server{
		addr:     addr,
		registry: NewRegistry(),
		store:    st,
		router:   chi.NewRouter(),
	}

	s.router.Get("/ws", s.handleWebSocket)
	s.router.Get("/api/endpoints", s.handleEndpoints)
	s.router.Get("/api/devices", s.handleDevices)

	return s
}

// RegisterModule installs a handler for a message type. Startup only; the
// registry is read-only once the server is serving.
func (s *Server) RegisterModule(msgType string, handler HandlerFunc) {
	s.registry.Register(msgType, handler)
}

func (s *Server) Registry() *Registry { return s.registry }

// Router exposes the chi mux so callers can mount extra HTTP routes, such
// as the Spotify OAuth callback, before Start.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) Start() error {
	slog.Info("Starting WebSocket server", "addr", s.addr, "endpoints", s.registry.Len())

	s.httpSrv = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	err := s.httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down WebSocket server", "addr", s.addr)
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}

	session := newSession(conn, remoteIP(r), s.store, s.registry)
	go session.run()
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"endpoints": s.registry.Types()})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"devices": s.store.Devices()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// remoteIP strips the port and unwraps IPv4-mapped IPv6 addresses.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
		return ip.String()
	}
	return strings.TrimSpace(host)
}
