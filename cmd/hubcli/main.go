// hubcli is a small manual-testing client: it dials the hub, sends one
// typed request and prints the ack plus every reply until the correlated
// response arrives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jcpope/homehub/proto"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "hub address")
	msgType := flag.String("type", "getServerUptime", "message type to send")
	data := flag.String("data", "", "JSON data payload")
	timeout := flag.Duration("timeout", 10*time.Second, "time to wait for the response")
	flag.Parse()

	url := fmt.Sprintf("ws://%s/ws", *addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		slog.Error("Failed to connect", "url", url, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	msg := proto.Message{Type: *msgType, RequestID: "hubcli-1"}
	if *data != "" {
		msg.Data = json.RawMessage(*data)
	}

	if err := conn.WriteJSON(msg); err != nil {
		slog.Error("Failed to send request", "error", err)
		os.Exit(1)
	}

	deadline := time.Now().Add(*timeout)
	for {
		conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			slog.Error("No response before timeout", "error", err)
			os.Exit(1)
		}

		fmt.Println(string(raw))

		var reply proto.Response
		if err := json.Unmarshal(raw, &reply); err != nil {
			continue
		}
		if reply.RequestID == msg.RequestID && reply.Type != "ack" {
			return
		}
	}
}
