package endpoints

import (
	"testing"

	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/store"
)

func TestPcStatus_NotConfigured(t *testing.T) {
	conn := &mockConn{}

	pcStatus(store.PCConfig{})(conn, proto.Message{Type: "PcStatus", RequestID: "p1"})

	result := asResult(t, conn.last(t).Data)
	if result.Success || result.Error != "No PC configured" {
		t.Errorf("Expected 'No PC configured', got %+v", result)
	}
}

func TestPcStatus(t *testing.T) {
	cfg := store.PCConfig{Name: "Desktop", IP: "127.0.0.1"}
	conn := &mockConn{}

	pcStatus(cfg)(conn, proto.Message{Type: "PcStatus", RequestID: "p2"})

	resp := conn.last(t)
	if resp.Type != "PcStatus" || resp.RequestID != "p2" {
		t.Errorf("Unexpected envelope: type=%q requestId=%q", resp.Type, resp.RequestID)
	}

	payload := asMap(t, resp.Data)
	if payload["ip"] != "127.0.0.1" || payload["name"] != "Desktop" {
		t.Errorf("Expected configured PC echoed back, got %v", payload)
	}
	if _, ok := payload["reachable"].(bool); !ok {
		t.Errorf("Expected boolean reachable field, got %T", payload["reachable"])
	}
}

func TestWakeOnLan_NotConfigured(t *testing.T) {
	conn := &mockConn{}

	wakeOnLan(store.PCConfig{}, store.New(false))(conn, proto.Message{Type: "WakeOnLan"})

	result := asResult(t, conn.last(t).Data)
	if result.Success || result.Error != "No PC configured" {
		t.Errorf("Expected 'No PC configured', got %+v", result)
	}
}
