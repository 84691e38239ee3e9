package bridge

import (
	"sync"

	"github.com/swarmdeck/core/internal/metrics"
	"github.com/swarmdeck/core/internal/notify"
)

// hub is the in-memory client registry: one coarse mutex guarding every
// map it holds (client registry, channel subscription index, per-agent
// prior channel sets). The pending-delivery map is not kept here; it has
// its own mutex in deliveryTracker.
type hub struct {
	mu sync.RWMutex

	clients   map[string]*client
	channels  map[string]map[string]*client // channel -> clientID -> client
	agentSubs map[string][]string           // agentID -> last known channel set, for reconnect restore
}

func newHub() *hub {
	return &hub{
		clients:   make(map[string]*client),
		channels:  make(map[string]map[string]*client),
		agentSubs: make(map[string][]string),
	}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()
	metrics.BridgeClientsConnected.Set(float64(count))
}

// unregister removes c from every channel index and the client map.
func (h *hub) unregister(c *client) {
	h.mu.Lock()
	h.unregisterLocked(c)
	count := len(h.clients)
	h.mu.Unlock()
	metrics.BridgeClientsConnected.Set(float64(count))
}

func (h *hub) unregisterLocked(c *client) {
	delete(h.clients, c.id)
	for ch, members := range h.channels {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.channels, ch)
		}
	}
}

func (h *hub) subscribe(c *client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[string]*client)
		h.channels[channel] = members
	}
	members[c.id] = c
	c.channels[channel] = struct{}{}
	if c.agentID != "" {
		h.agentSubs[c.agentID] = channelSetToSlice(c.channels)
	}
}

func (h *hub) unsubscribe(c *client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.channels[channel]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	delete(c.channels, channel)
	if c.agentID != "" {
		h.agentSubs[c.agentID] = channelSetToSlice(c.channels)
	}
}

// priorChannels returns the last known subscription set for agentID, so
// a reconnecting client can be restored to where it left off.
func (h *hub) priorChannels(agentID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.agentSubs[agentID]...)
}

// recipients returns every client subscribed to any of n.Channels, plus
// every client subscribed to notify.ChannelGlobal. A notification
// targeting a non-global channel is additionally visible to global
// subscribers, matching the fan-out rule.
func (h *hub) recipients(n notify.Notification) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]*client)
	channels := n.Channels
	hasGlobal := false
	for _, ch := range channels {
		if ch == notify.ChannelGlobal {
			hasGlobal = true
		}
		for id, c := range h.channels[ch] {
			seen[id] = c
		}
	}
	if !hasGlobal {
		for id, c := range h.channels[notify.ChannelGlobal] {
			seen[id] = c
		}
	}

	out := make([]*client, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	return out
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func channelSetToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for ch := range set {
		out = append(out, ch)
	}
	return out
}
