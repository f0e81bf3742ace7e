package endpoints

import (
	"testing"
	"time"

	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/store"
)

func TestGetServerUptime(t *testing.T) {
	st := store.New(false)
	conn := &mockConn{}

	getServerUptime(st)(conn, proto.Message{Type: "getServerUptime", RequestID: "u1"})

	resp := conn.last(t)
	if resp.Type != "getServerUptime" || resp.RequestID != "u1" {
		t.Errorf("Unexpected envelope: type=%q requestId=%q", resp.Type, resp.RequestID)
	}

	payload := asMap(t, resp.Data)
	uptime, ok := payload["uptime"].(float64)
	if !ok {
		t.Fatalf("Expected uptime as float seconds, got %T", payload["uptime"])
	}
	if uptime < 0 {
		t.Errorf("Expected non-negative uptime, got %f", uptime)
	}
	startedAt, ok := payload["startedAt"].(time.Time)
	if !ok || startedAt.IsZero() {
		t.Errorf("Expected startedAt to be set, got %v", payload["startedAt"])
	}
}

func TestGetConnectedUsers(t *testing.T) {
	st := store.New(false)
	st.PutDevice(store.NewDevice("10.0.0.5"))
	st.PutDevice(store.NewDevice("10.0.0.6"))
	conn := &mockConn{}

	getConnectedUsers(st)(conn, proto.Message{Type: "getConnectedUsers"})

	payload := asMap(t, conn.last(t).Data)
	if payload["count"] != 2 {
		t.Errorf("Expected count 2, got %v", payload["count"])
	}
}

func TestGetDevMode(t *testing.T) {
	st := store.New(true)
	conn := &mockConn{}

	getDevMode(st)(conn, proto.Message{Type: "getDevMode"})

	payload := asMap(t, conn.last(t).Data)
	if payload["devMode"] != true {
		t.Errorf("Expected devMode true, got %v", payload["devMode"])
	}
}

func TestGetLocation_Unresolved(t *testing.T) {
	st := store.New(false)
	conn := &mockConn{}

	getLocation(st)(conn, proto.Message{Type: "getLocation"})

	result := asResult(t, conn.last(t).Data)
	if result.Success || result.Error != "Location not resolved yet" {
		t.Errorf("Expected unresolved-location error, got %+v", result)
	}
}

func TestGetLocation(t *testing.T) {
	st := store.New(false)
	st.SetLocation(store.IPInfo{City: "Austin", Latitude: 30.27, Longitude: -97.74})
	conn := &mockConn{}

	getLocation(st)(conn, proto.Message{Type: "getLocation"})

	payload := asMap(t, conn.last(t).Data)
	if payload["city"] != "Austin" {
		t.Errorf("Expected city Austin, got %v", payload["city"])
	}
}
