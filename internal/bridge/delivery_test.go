package bridge

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestIsCriticalMatchesTrackedPrefixes(t *testing.T) {
	cases := map[string]bool{
		"task.completed":     true,
		"subtask.started":    true,
		"message.sent":       true,
		"metric.update":      false,
		"agent.heartbeat":    false,
	}
	for event, want := range cases {
		if got := isCritical(event); got != want {
			t.Errorf("isCritical(%q) = %v, want %v", event, got, want)
		}
	}
}

func TestDeliveryTrackerAckRemovesPending(t *testing.T) {
	d := newDeliveryTracker()
	c := newClient("c1", nil)
	d.track("msg-1", c, []byte("payload"))

	if len(d.pending) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(d.pending))
	}
	d.ack("msg-1", "c1")
	if len(d.pending) != 0 {
		t.Errorf("expected ack to remove the pending entry, got %d remaining", len(d.pending))
	}
}

func TestDeliveryTrackerDropForClientRemovesAllEntries(t *testing.T) {
	d := newDeliveryTracker()
	c := newClient("c1", nil)
	d.track("msg-1", c, []byte("a"))
	d.track("msg-2", c, []byte("b"))

	d.dropForClient("c1")
	if len(d.pending) != 0 {
		t.Errorf("expected dropForClient to remove all entries for the client, got %d", len(d.pending))
	}
}

func TestDeliverySweepResendsStaleEntries(t *testing.T) {
	d := newDeliveryTracker()
	c := newClient("c1", nil)
	d.track("msg-1", c, []byte("payload"))
	d.pending[pendingKey{"msg-1", "c1"}].sentAt = time.Now().Add(-deliveryResendAfter - time.Second)

	d.sweep(zerolog.Nop())

	entry, ok := d.pending[pendingKey{"msg-1", "c1"}]
	if !ok {
		t.Fatal("expected entry to still be pending after one resend")
	}
	if entry.attempts != 1 {
		t.Errorf("expected attempts = 1 after one sweep, got %d", entry.attempts)
	}
	select {
	case <-c.send:
	default:
		t.Error("expected the stale entry to be re-enqueued onto the client's send channel")
	}
}

func TestDeliverySweepDropsAfterMaxAttempts(t *testing.T) {
	d := newDeliveryTracker()
	c := newClient("c1", nil)
	d.track("msg-1", c, []byte("payload"))
	key := pendingKey{"msg-1", "c1"}
	d.pending[key].attempts = deliveryMaxAttempts
	d.pending[key].sentAt = time.Now().Add(-deliveryResendAfter - time.Second)

	d.sweep(zerolog.Nop())

	if _, ok := d.pending[key]; ok {
		t.Error("expected entry to be dropped once max attempts is reached")
	}
}

func TestDeliverySweepDropsWhenClientQueueFull(t *testing.T) {
	d := newDeliveryTracker()
	c := newClient("c1", nil)
	for i := 0; i < sendQueueDepth; i++ {
		c.enqueue([]byte("filler"))
	}
	d.track("msg-1", c, []byte("payload"))
	key := pendingKey{"msg-1", "c1"}
	d.pending[key].sentAt = time.Now().Add(-deliveryResendAfter - time.Second)

	d.sweep(zerolog.Nop())

	if _, ok := d.pending[key]; ok {
		t.Error("expected entry to be dropped when the client's send queue is full")
	}
}
