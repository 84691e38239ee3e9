package bridge

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/swarmdeck/core/internal/logging"
	"github.com/swarmdeck/core/internal/metrics"
)

const (
	deliverySweepInterval = 2 * time.Second
	deliveryResendAfter   = 5 * time.Second
	deliveryMaxAttempts   = 3
)

// pendingKey identifies one tracked delivery: a single event sent to a
// single client.
type pendingKey struct {
	messageID string
	clientID  string
}

type pendingDelivery struct {
	client   *client
	payload  []byte
	sentAt   time.Time
	attempts int
}

// deliveryTracker implements at-least-once delivery for "critical"
// events (task.*, subtask.*, message.*): every send is recorded, a
// sweeper resends un-acked entries, and entries are dropped after
// deliveryMaxAttempts.
type deliveryTracker struct {
	mu      sync.Mutex
	pending map[pendingKey]*pendingDelivery
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func newDeliveryTracker() *deliveryTracker {
	return &deliveryTracker{
		pending: make(map[pendingKey]*pendingDelivery),
		stopCh:  make(chan struct{}),
	}
}

// isCritical reports whether event warrants tracked delivery.
func isCritical(event string) bool {
	return strings.HasPrefix(event, "task.") ||
		strings.HasPrefix(event, "subtask.") ||
		strings.HasPrefix(event, "message.")
}

func (d *deliveryTracker) track(messageID string, c *client, payload []byte) {
	d.mu.Lock()
	d.pending[pendingKey{messageID: messageID, clientID: c.id}] = &pendingDelivery{
		client:  c,
		payload: payload,
		sentAt:  time.Now(),
	}
	count := len(d.pending)
	d.mu.Unlock()
	metrics.BridgePendingDeliveries.Set(float64(count))
}

// ack removes the pending entry for (messageID, clientID), if present.
func (d *deliveryTracker) ack(messageID, clientID string) {
	d.mu.Lock()
	delete(d.pending, pendingKey{messageID: messageID, clientID: clientID})
	count := len(d.pending)
	d.mu.Unlock()
	metrics.BridgePendingDeliveries.Set(float64(count))
}

// dropForClient discards every pending entry addressed to clientID,
// called when a client is removed from the registry.
func (d *deliveryTracker) dropForClient(clientID string) {
	d.mu.Lock()
	for k := range d.pending {
		if k.clientID == clientID {
			delete(d.pending, k)
		}
	}
	count := len(d.pending)
	d.mu.Unlock()
	metrics.BridgePendingDeliveries.Set(float64(count))
}

func (d *deliveryTracker) start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		log := logging.WithComponent("bridge.delivery")
		ticker := time.NewTicker(deliverySweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-d.stopCh:
				return
			case <-ticker.C:
				d.sweep(log)
			}
		}
	}()
}

// sweep retransmits entries older than deliveryResendAfter and drops
// entries that have exhausted deliveryMaxAttempts.
func (d *deliveryTracker) sweep(log zerolog.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for k, p := range d.pending {
		if now.Sub(p.sentAt) < deliveryResendAfter {
			continue
		}
		if p.attempts >= deliveryMaxAttempts {
			delete(d.pending, k)
			log.Warn().Str("message_id", k.messageID).Str("client_id", k.clientID).
				Msg("dropping undelivered event after max attempts")
			continue
		}
		p.attempts++
		p.sentAt = now
		if !p.client.enqueue(p.payload) {
			delete(d.pending, k)
		}
	}
	metrics.BridgePendingDeliveries.Set(float64(len(d.pending)))
}

func (d *deliveryTracker) stop() {
	close(d.stopCh)
	d.wg.Wait()
}
