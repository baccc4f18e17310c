// Package streaming defines the messages a live journal sends over WebSocket.
package streaming

import (
	"encoding/json"
	"time"
)

// Message types of the streaming protocol.
const (
	TypeSessionStart = "session_start"
	TypeSessionEnd   = "session_end"
	TypeStep         = "step"
	TypeInterception = "interception"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SessionStartPayload identifies the extension instance whose steps follow.
type SessionStartPayload struct {
	Extension string    `json:"extension"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"startedAt"`
}
