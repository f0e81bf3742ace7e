package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/store"
)

// ErrSessionClosed is returned by Send after the connection has closed.
// Late handler writes hit this instead of a dead socket.
var ErrSessionClosed = errors.New("session closed")

// Session is the server-side state for one connected socket: the device
// record it registered, the write lock that serializes outbound frames,
// and the read loop that dispatches inbound ones.
type Session struct {
	conn     *websocket.Conn
	device   store.Device
	store    *store.Store
	registry *Registry

	wmu    sync.Mutex
	closed bool
	once   sync.Once
}

func newSession(conn *websocket.Conn, remoteAddr string, st *store.Store, reg *Registry) *Session {
	return &Session{
		conn:     conn,
		device:   store.NewDevice(remoteAddr),
		store:    st,
		registry: reg,
	}
}

func (s *Session) DeviceID() string { return s.device.ID }

func (s *Session) Alive() bool {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return !s.closed
}

// Send marshals v and writes it as one text frame. Writes are serialized;
// gorilla/websocket allows only one concurrent writer. After close it is
// a no-op returning ErrSessionClosed.
func (s *Session) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// run registers the device and processes frames until the client goes
// away. Cleanup happens exactly once, even if the loop exits by panic.
func (s *Session) run() {
	s.store.PutDevice(s.device)
	slog.Info("Device connected", "deviceId", s.device.ID, "addr", s.device.Addr)

	defer s.close()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket read error", "deviceId", s.device.ID, "error", err)
			}
			return
		}
		s.dispatch(raw)
	}
}

// dispatch decodes one inbound frame, acks it and hands it to its
// handler. The handler runs on its own goroutine so a slow endpoint never
// stalls the read loop; the ack is written first, so a request's ack
// always precedes its response.
func (s *Session) dispatch(raw []byte) {
	msg, ok, err := proto.Decode(raw)
	if err != nil {
		slog.Warn("Failed to decode message", "deviceId", s.device.ID, "error", err)
		return
	}
	if !ok {
		return // empty frame
	}

	handler, found := s.registry.Lookup(msg.Type)
	if !found {
		slog.Warn("No handler registered", "type", msg.Type, "deviceId", s.device.ID)
		return
	}

	if err := s.Send(proto.NewAck(msg.RequestID)); err != nil {
		slog.Warn("Failed to send ack", "deviceId", s.device.ID, "error", err)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Handler panicked", "type", msg.Type, "deviceId", s.device.ID, "panic", r)
			}
		}()
		handler(s, msg)
	}()
}

// close marks the device offline, removes it from the store and closes
// the socket. Safe to call more than once.
func (s *Session) close() {
	s.once.Do(func() {
		s.wmu.Lock()
		s.closed = true
		s.wmu.Unlock()

		s.store.SetDeviceStatus(s.device.ID, store.StatusOffline)
		s.store.RemoveDevice(s.device.ID)
		s.conn.Close()
		slog.Info("Device disconnected", "deviceId", s.device.ID, "addr", s.device.Addr)
	})
}
