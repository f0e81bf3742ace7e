package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/store"
)

type envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Server, *store.Store, *httptest.Server) {
	t.Helper()

	st := store.New(false)
	srv := New(":0", st)

	srv.RegisterModule("echo", func(c Conn, msg proto.Message) {
		c.Send(proto.Response{Type: "echo", RequestID: msg.RequestID, Data: msg.Data})
	})
	srv.RegisterModule("slow", func(c Conn, msg proto.Message) {
		time.Sleep(150 * time.Millisecond)
		c.Send(proto.Response{Type: "slow", RequestID: msg.RequestID, Data: "done"})
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, st, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Failed to unmarshal %q: %v", raw, err)
	}
	return env
}

func waitForDeviceCount(t *testing.T, st *store.Store, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st.DeviceCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d devices, got %d", want, st.DeviceCount())
}

func TestSession_AckBeforeResponse(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dial(t, ts)

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"echo","requestId":"r1","data":{"v":1}}`))
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	first := readEnvelope(t, conn)
	if first.Type != "ack" {
		t.Fatalf("Expected first envelope to be ack, got %q", first.Type)
	}
	if first.RequestID != "r1" {
		t.Errorf("Expected ack requestId 'r1', got %q", first.RequestID)
	}
	if first.Status != "received" {
		t.Errorf("Expected ack status 'received', got %q", first.Status)
	}

	second := readEnvelope(t, conn)
	if second.Type != "echo" {
		t.Errorf("Expected response type 'echo', got %q", second.Type)
	}
	if second.RequestID != "r1" {
		t.Errorf("Expected response requestId 'r1', got %q", second.RequestID)
	}
}

func TestSession_AckOrdering(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dial(t, ts)

	for _, id := range []string{"a", "b"} {
		err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"slow","requestId":"`+id+`"}`))
		if err != nil {
			t.Fatalf("Failed to send: %v", err)
		}
	}

	// Acks are written from the read loop, so ack "a" must arrive before
	// ack "b" even though the handler responses may interleave.
	var ackOrder []string
	for len(ackOrder) < 2 {
		env := readEnvelope(t, conn)
		if env.Type == "ack" {
			ackOrder = append(ackOrder, env.RequestID)
		}
	}

	if ackOrder[0] != "a" || ackOrder[1] != "b" {
		t.Errorf("Expected ack order [a b], got %v", ackOrder)
	}
}

func TestSession_EmptyFramesIgnored(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dial(t, ts)

	for _, frame := range []string{"", "   ", "\n\t"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("Failed to send empty frame: %v", err)
		}
	}

	// The connection must remain open and silent: the next reply is the
	// ack for a real request.
	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"echo","requestId":"after-empty"}`))
	if err != nil {
		t.Fatalf("Failed to send after empty frames: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Type != "ack" || env.RequestID != "after-empty" {
		t.Errorf("Expected ack for 'after-empty', got type=%q requestId=%q", env.Type, env.RequestID)
	}
}

func TestSession_MalformedFrameIgnored(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)); err != nil {
		t.Fatalf("Failed to send malformed frame: %v", err)
	}

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"echo","requestId":"after-bad"}`))
	if err != nil {
		t.Fatalf("Failed to send after malformed frame: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Type != "ack" || env.RequestID != "after-bad" {
		t.Errorf("Expected ack for 'after-bad', got type=%q requestId=%q", env.Type, env.RequestID)
	}
}

func TestSession_UnknownTypeSilence(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dial(t, ts)

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"NoSuchThing","requestId":"x"}`))
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	// No ack, no response; the next envelope belongs to the follow-up
	// request, proving the connection stayed open.
	err = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"echo","requestId":"known"}`))
	if err != nil {
		t.Fatalf("Failed to send follow-up: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.RequestID != "known" {
		t.Errorf("Expected first reply to correlate with 'known', got %q", env.RequestID)
	}
}

func TestSession_DeviceLifecycle(t *testing.T) {
	_, st, ts := newTestServer(t)
	conn := dial(t, ts)

	waitForDeviceCount(t, st, 1)

	devices := st.Devices()
	if devices[0].Status != store.StatusOnline {
		t.Errorf("Expected device online, got %s", devices[0].Status)
	}
	if devices[0].ConnectedAt.IsZero() {
		t.Error("Expected connectedAt to be set")
	}

	conn.Close()
	waitForDeviceCount(t, st, 0)
}

func TestSession_ConcurrentConnections(t *testing.T) {
	_, st, ts := newTestServer(t)

	conns := make([]*websocket.Conn, 5)
	for i := range conns {
		conns[i] = dial(t, ts)
	}
	waitForDeviceCount(t, st, 5)

	for _, conn := range conns {
		conn.Close()
	}
	waitForDeviceCount(t, st, 0)
}

func TestSession_DisconnectWithInFlightHandler(t *testing.T) {
	_, st, ts := newTestServer(t)
	conn := dial(t, ts)
	waitForDeviceCount(t, st, 1)

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"slow","requestId":"inflight"}`))
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	// Drop the connection before the handler replies. The late Send must
	// be a no-op, not a crash, and the device must be deregistered.
	conn.Close()
	waitForDeviceCount(t, st, 0)

	// Give the in-flight handler time to attempt its write.
	time.Sleep(300 * time.Millisecond)

	// A fresh connection still works.
	conn2 := dial(t, ts)
	err = conn2.WriteMessage(websocket.TextMessage, []byte(`{"type":"echo","requestId":"alive"}`))
	if err != nil {
		t.Fatalf("Failed to send on new connection: %v", err)
	}
	env := readEnvelope(t, conn2)
	if env.RequestID != "alive" {
		t.Errorf("Expected reply for 'alive', got %q", env.RequestID)
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	st := store.New(false)
	srv := New(":0", st)

	// Capture the handler's Conn so we can call Send after disconnect.
	captured := make(chan Conn, 1)
	srv.RegisterModule("capture", func(c Conn, msg proto.Message) {
		captured <- c
	})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn := dial(t, ts)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"capture"}`)); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	var c Conn
	select {
	case c = <-captured:
	case <-time.After(2 * time.Second):
		t.Fatal("Handler was never invoked")
	}

	if !c.Alive() {
		t.Error("Expected session alive while connected")
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for c.Alive() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if c.Alive() {
		t.Fatal("Expected session to be closed")
	}
	if err := c.Send("late"); err != ErrSessionClosed {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
}
