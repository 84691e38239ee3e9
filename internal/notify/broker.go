package notify

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/swarmdeck/core/internal/logging"
)

// Broker is an embedded NATS server standing in for the database's
// pub/sub primitive: both the API and bridge processes connect to it as
// ordinary NATS clients, so a transaction's commit-then-publish ordering
// is preserved without either process needing to run an in-process queue.
type Broker struct {
	srv *server.Server
}

// StartBroker boots an embedded NATS server bound to port and blocks
// until it is ready for connections or 5 seconds elapse.
func StartBroker(port int) (*Broker, error) {
	opts := &server.Options{
		Host:           "127.0.0.1",
		Port:           port,
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 4096,
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded notify broker: %w", err)
	}

	log := logging.WithComponent("notify.broker")
	go srv.Start()

	if !srv.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("notify broker not ready for connections after 5s")
	}
	log.Info().Int("port", port).Msg("notify broker ready")

	return &Broker{srv: srv}, nil
}

// URL returns the client connection URL for this broker.
func (b *Broker) URL() string { return b.srv.ClientURL() }

// Shutdown stops the embedded broker.
func (b *Broker) Shutdown() {
	b.srv.Shutdown()
	b.srv.WaitForShutdown()
}
