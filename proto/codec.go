package proto

import (
	"encoding/json"
	"strings"
)

// Decode parses a raw text frame into a Message. A frame that is empty
// after trimming whitespace is a no-op: ok is false and err is nil.
// Malformed JSON returns ok false with the parse error; the caller logs
// and drops the frame without closing the connection.
func Decode(raw []byte) (Message, bool, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return Message{}, false, nil
	}

	var msg Message
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

// String extracts a string property from a message's data payload.
// Returns "" when the payload or the key is absent.
func String(data json.RawMessage, key string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return ""
	}
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Bool extracts a boolean property from a message's data payload.
func Bool(data json.RawMessage, key string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	raw, ok := fields[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}
