// Package bridge turns committed database notifications into per-channel
// WebSocket fan-out over client connections. One process instance runs a
// notify subscription loop, a heartbeat loop, a retry sweeper, a metrics
// aggregator, and one read/write loop pair per client connection.
package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/swarmdeck/core/internal/auth"
	"github.com/swarmdeck/core/internal/logging"
	"github.com/swarmdeck/core/internal/metrics"
	"github.com/swarmdeck/core/internal/notify"
	"github.com/swarmdeck/core/internal/store"
)

const metricsChannel = notify.ChannelMetrics

// Bridge is the real-time event bridge process.
type Bridge struct {
	store        *store.Store
	minter       *auth.Minter
	notifyClient *notify.Client
	devMode      bool

	hub      *hub
	delivery *deliveryTracker

	upgrader websocket.Upgrader

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Bridge. notifyClient must already be connected to the
// broker; Bridge owns subscribing to it but not closing it.
func New(st *store.Store, minter *auth.Minter, notifyClient *notify.Client, devMode bool) *Bridge {
	return &Bridge{
		store:        st,
		minter:       minter,
		notifyClient: notifyClient,
		devMode:      devMode,
		hub:          newHub(),
		delivery:     newDeliveryTracker(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		stopCh: make(chan struct{}),
	}
}

// Start boots the notify subscription, heartbeat loop, delivery sweeper,
// and metrics aggregator. It blocks until the notify subscription is
// established, retrying without limit, and returns an error only if the
// bridge is stopped before that happens.
func (b *Bridge) Start() error {
	log := logging.WithComponent("bridge")

	if err := b.subscribeWithBackoff(); err != nil {
		return err
	}

	b.delivery.start()

	b.wg.Add(2)
	go b.heartbeatLoop()
	go b.metricsLoop()

	log.Info().Msg("bridge started")
	return nil
}

// Stop halts all background loops and closes every client connection.
func (b *Bridge) Stop() {
	close(b.stopCh)
	b.delivery.stop()
	b.wg.Wait()

	b.hub.mu.Lock()
	clients := make([]*client, 0, len(b.hub.clients))
	for _, c := range b.hub.clients {
		clients = append(clients, c)
	}
	b.hub.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// subscribeWithBackoff establishes the notify subscription, retrying
// with exponential backoff (250ms initial, 5s cap) until it succeeds.
// Once established, reconnection of the underlying NATS connection
// itself is handled by notify.Client's own reconnect options; this
// backoff only covers the initial Subscribe call failing outright.
func (b *Bridge) subscribeWithBackoff() error {
	log := logging.WithComponent("bridge.notify")
	backoff := 250 * time.Millisecond
	const backoffCap = 5 * time.Second

	for {
		_, err := b.notifyClient.Subscribe(b.handleNotification)
		if err == nil {
			return nil
		}
		metrics.NotifySubscriptionReconnects.Inc()
		log.Warn().Err(err).Dur("retry_in", backoff).Msg("notify subscribe failed, retrying")
		select {
		case <-time.After(backoff):
		case <-b.stopCh:
			return err
		}
		backoff *= 2
		if backoff > backoffCap {
			backoff = backoffCap
		}
	}
}

// handleNotification is the notify.SubscribeHandler invoked for every
// message received on the broker subject. A payload that fails to decode
// is already filtered out by notify.Client; this only performs fan-out.
// A notification with no channels still reaches global subscribers.
func (b *Bridge) handleNotification(n notify.Notification) {
	id := uuid.NewString()
	channel := ""
	if len(n.Channels) > 0 {
		channel = n.Channels[0]
	}
	frame := eventFrame{
		Type:      "event",
		ID:        id,
		Channel:   channel,
		Event:     n.Event,
		Data:      n.Data,
		Timestamp: n.Timestamp.Format(time.RFC3339),
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}

	critical := isCritical(n.Event)
	for _, c := range b.hub.recipients(n) {
		if !c.isAuthenticated() {
			continue
		}
		// each recipient sees the same event id; clients dedupe on it.
		if !c.enqueue(payload) {
			metrics.BridgeEventsDeliveredTotal.WithLabelValues(n.Event, "dropped").Inc()
			b.dropClient(c)
			continue
		}
		metrics.BridgeEventsDeliveredTotal.WithLabelValues(n.Event, "sent").Inc()
		if critical {
			b.delivery.track(id, c, payload)
		}
	}
}

// dispatchLocal broadcasts a bridge-originated event (metric updates and
// client publish frames) without round-tripping through the notify broker.
func (b *Bridge) dispatchLocal(event string, channels []string, data map[string]any) {
	b.handleNotification(notify.Notification{
		Channels:  channels,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// dropClient removes c from the registry, drops its pending deliveries,
// and closes its connection. Safe to call more than once.
func (b *Bridge) dropClient(c *client) {
	b.hub.unregister(c)
	b.delivery.dropForClient(c.id)
	c.close()
}
