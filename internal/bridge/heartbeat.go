package bridge

import (
	"encoding/json"
	"time"

	"github.com/swarmdeck/core/internal/logging"
)

// heartbeatLoop pings every registered client every heartbeatPeriod and
// evicts any client idle for longer than idleTimeout, removing it from
// every channel subscription and dropping its pending deliveries.
func (b *Bridge) heartbeatLoop() {
	defer b.wg.Done()
	log := logging.WithComponent("bridge.heartbeat")
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()

	ping, _ := json.Marshal(pongFrame{Type: "ping"})

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.hub.mu.RLock()
			clients := make([]*client, 0, len(b.hub.clients))
			for _, c := range b.hub.clients {
				clients = append(clients, c)
			}
			b.hub.mu.RUnlock()

			for _, c := range clients {
				if c.idleSince() > idleTimeout {
					log.Info().Str("client_id", c.id).Msg("evicting idle client")
					b.dropClient(c)
					continue
				}
				c.enqueue(ping)
			}
		}
	}
}
