package bridge

import (
	"sort"
	"testing"

	"github.com/swarmdeck/core/internal/notify"
)

func TestHubSubscribeAndRecipients(t *testing.T) {
	h := newHub()
	a := newClient("a", nil)
	b := newClient("b", nil)
	h.register(a)
	h.register(b)

	h.subscribe(a, "agents/agent-1")
	h.subscribe(b, notify.ChannelGlobal)

	recipients := h.recipients(notify.Notification{Channels: []string{"agents/agent-1"}})
	if len(recipients) != 2 {
		t.Fatalf("expected both the targeted subscriber and the global subscriber, got %d", len(recipients))
	}
}

func TestHubRecipientsDedupesClientSubscribedToBoth(t *testing.T) {
	h := newHub()
	a := newClient("a", nil)
	h.register(a)
	h.subscribe(a, "agents/agent-1")
	h.subscribe(a, notify.ChannelGlobal)

	recipients := h.recipients(notify.Notification{Channels: []string{"agents/agent-1"}})
	if len(recipients) != 1 {
		t.Fatalf("expected a single deduped recipient, got %d", len(recipients))
	}
}

func TestHubUnregisterRemovesFromAllChannels(t *testing.T) {
	h := newHub()
	a := newClient("a", nil)
	h.register(a)
	h.subscribe(a, "topics/build")
	h.subscribe(a, notify.ChannelGlobal)

	h.unregister(a)

	if h.clientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", h.clientCount())
	}
	recipients := h.recipients(notify.Notification{Channels: []string{"topics/build"}})
	if len(recipients) != 0 {
		t.Errorf("expected no recipients after unregister, got %d", len(recipients))
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := newHub()
	a := newClient("a", nil)
	h.register(a)
	h.subscribe(a, "sessions/s1")
	h.unsubscribe(a, "sessions/s1")

	recipients := h.recipients(notify.Notification{Channels: []string{"sessions/s1"}})
	if len(recipients) != 0 {
		t.Errorf("expected no recipients after unsubscribe, got %d", len(recipients))
	}
}

func TestHubPriorChannelsRestoresAgentSubscriptions(t *testing.T) {
	h := newHub()
	a := newClient("a", nil)
	a.agentID = "agent-1"
	h.register(a)
	h.subscribe(a, "agents/agent-1")
	h.subscribe(a, "sessions/s1")

	got := h.priorChannels("agent-1")
	sort.Strings(got)
	want := []string{"agents/agent-1", "sessions/s1"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("priorChannels(%q) = %v, want %v", "agent-1", got, want)
	}
}

func TestHubGlobalNotificationReachesOnlyGlobalSubscribers(t *testing.T) {
	h := newHub()
	a := newClient("a", nil)
	b := newClient("b", nil)
	h.register(a)
	h.register(b)
	h.subscribe(a, notify.ChannelGlobal)
	h.subscribe(b, "agents/agent-1")

	recipients := h.recipients(notify.Notification{Channels: []string{notify.ChannelGlobal}})
	if len(recipients) != 1 {
		t.Fatalf("expected exactly 1 recipient, got %d", len(recipients))
	}
}
