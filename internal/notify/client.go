package notify

import (
	"encoding/json"
	"fmt"
	"time"

	nc "github.com/nats-io/nats.go"

	"github.com/swarmdeck/core/internal/logging"
	"github.com/swarmdeck/core/internal/metrics"
)

// Client wraps a connection to the embedded notify broker. The API
// process uses it only to Publish; the bridge process uses it only to
// Subscribe, with its own backoff/reconnect loop layered on top (see
// internal/bridge).
type Client struct {
	conn     *nc.Conn
	identity string
}

// Connect dials the broker at url, tagged with identity for server-side
// logging ("api" or "bridge").
func Connect(url, identity string) (*Client, error) {
	log := logging.WithComponent("notify.client")

	opts := []nc.Option{
		nc.Name(identity),
		nc.ReconnectWait(250 * time.Millisecond),
		nc.MaxReconnects(-1),
		nc.DisconnectErrHandler(func(_ *nc.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Str("identity", identity).Msg("notify client disconnected")
			}
		}),
		nc.ReconnectHandler(func(c *nc.Conn) {
			log.Info().Str("identity", identity).Str("url", c.ConnectedUrl()).Msg("notify client reconnected")
		}),
	}

	conn, err := nc.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to notify broker: %w", err)
	}

	return &Client{conn: conn, identity: identity}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Publisher is the narrow interface the store package depends on, so a
// notification is only ever emitted after its owning transaction commits.
type Publisher interface {
	Publish(n Notification) error
}

// Publish emits n on the well-known Subject.
func (c *Client) Publish(n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := c.conn.Publish(Subject, data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	metrics.NotificationsPublishedTotal.WithLabelValues(n.Event).Inc()
	return nil
}

// SubscribeHandler is invoked once per notification received.
type SubscribeHandler func(Notification)

// Subscribe registers an async subscription on Subject. Malformed
// payloads are logged and skipped, never delivered to handler.
func (c *Client) Subscribe(handler SubscribeHandler) (*nc.Subscription, error) {
	log := logging.WithComponent("notify.client")
	sub, err := c.conn.Subscribe(Subject, func(msg *nc.Msg) {
		var n Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			log.Warn().Err(err).Msg("malformed notification, skipping")
			return
		}
		handler(n)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

// IsConnected reports whether the underlying connection is up.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
