package notify

import "time"

// Subject is the single well-known subject the two processes rendezvous
// on — the Go-native stand-in for the database's commit-coupled
// NOTIFY channel.
const Subject = "swarmdeck.notify"

// Channel families a notification may target. A notification can target
// more than one at once (e.g. a subtask transition fans out to both
// ChannelGlobal and an agents/{type} lane).
const (
	ChannelGlobal = "global"
)

// AgentChannel returns the per-agent channel name for agentID.
func AgentChannel(agentID string) string { return "agents/" + agentID }

// SessionChannel returns the per-session channel name for sessionID.
func SessionChannel(sessionID string) string { return "sessions/" + sessionID }

// TopicChannel returns the per-topic channel name for topic.
func TopicChannel(topic string) string { return "topics/" + topic }

// ChannelMetrics is the lane the metrics aggregator broadcasts on.
const ChannelMetrics = "metrics"

// Notification is the payload published on Subject and consumed by the
// bridge process. It mirrors the WS event frame shape almost exactly;
// the bridge stamps an id and re-serializes before fan-out.
type Notification struct {
	Channels  []string       `json:"channels"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}
