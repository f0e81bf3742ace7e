package proto

import (
	"encoding/json"
)

// Message is the envelope for every frame a client sends over the
// WebSocket. Type selects the handler, RequestID is an opaque correlation
// token echoed back on every reply, Data is the handler-specific payload.
type Message struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Ack is sent immediately after a frame resolves to a handler, before the
// handler itself runs. Clients must keep waiting for a non-ack envelope
// carrying the same requestId.
type Ack struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Status    string `json:"status"`
}

// Response is the generic outbound envelope sent by handlers.
type Response struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Result is the conventional payload shape for CRUD-style operations.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

const AckStatusReceived = "received"

func NewAck(requestID string) Ack {
	return Ack{Type: "ack", RequestID: requestID, Status: AckStatusReceived}
}
