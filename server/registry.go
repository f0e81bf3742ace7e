package server

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/jcpope/homehub/proto"
)

// HandlerFunc is one registered endpoint. The session invokes it on its
// own goroutine after the ack has been written; msg is the decoded
// request.
type HandlerFunc func(c Conn, msg proto.Message)

// Conn is the outbound half of a session handed to handlers. Send is safe
// to call concurrently and after the connection has closed (it becomes an
// error-returning no-op).
type Conn interface {
	Send(v any) error
	DeviceID() string
	Alive() bool
}

// Registry maps message-type strings to handlers. It is populated once at
// startup and read-only afterward; the first registration of a type wins.
type Registry struct {
	mu    sync.RWMutex
	store map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{store: make(map[string]HandlerFunc)}
}

// Register installs a handler for a message type. A duplicate type is
// logged and ignored so accidental re-registration cannot shadow an
// existing endpoint.
func (r *Registry) Register(msgType string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.store[msgType]; exists {
		slog.Warn("Handler already registered, ignoring", "type", msgType)
		return
	}
	r.store[msgType] = handler
}

func (r *Registry) Lookup(msgType string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.store[msgType]
	return h, ok
}

// Types returns a sorted snapshot of the registered message types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.store))
	for t := range r.store {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}
