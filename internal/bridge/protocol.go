package bridge

import "encoding/json"

// clientFrame is the envelope for every client -> server message. Only
// Type is guaranteed; the remaining fields are interpreted per Type.
type clientFrame struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Event     string          `json:"event,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Token     string          `json:"token,omitempty"`
	AgentID   string          `json:"agent_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	ClockMS   int64           `json:"clock_ms,omitempty"`
}

const (
	frameAuth        = "auth"
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	framePublish     = "publish"
	framePing        = "ping"
	frameAck         = "ack"
)

// connectedFrame greets a newly-accepted socket before authentication.
type connectedFrame struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
}

// ackFrame answers a client frame that warrants a success/failure reply.
type ackFrame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// pongFrame answers a client ping.
type pongFrame struct {
	Type string `json:"type"`
}

// errorFrame reports a protocol-level failure (unauthenticated, bad frame).
type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// eventFrame is a routed notification delivered to a subscribed client.
type eventFrame struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Channel   string         `json:"channel"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp"`
}

func newErrorFrame(code, msg string) errorFrame {
	return errorFrame{Type: "error", Code: code, Error: msg}
}
