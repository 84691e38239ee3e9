package bridge

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout    = 2 * time.Second
	sendQueueDepth  = 64
	idleTimeout     = 60 * time.Second
	heartbeatPeriod = 30 * time.Second
)

// client wraps one accepted WebSocket connection. Reads happen on a
// dedicated goroutine; writes are serialized through send so two
// goroutines never call conn.WriteMessage concurrently.
type client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	mu            sync.Mutex
	authenticated bool
	agentID       string
	sessionID     string
	channels      map[string]struct{}
	lastActivity  time.Time
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:           id,
		conn:         conn,
		send:         make(chan []byte, sendQueueDepth),
		closed:       make(chan struct{}),
		channels:     make(map[string]struct{}),
		lastActivity: time.Now(),
	}
}

// touch records activity for the heartbeat idle-eviction check.
func (c *client) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *client) idleSince() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

func (c *client) isAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *client) markAuthenticated(agentID, sessionID string) {
	c.mu.Lock()
	c.authenticated = true
	c.agentID = agentID
	c.sessionID = sessionID
	c.mu.Unlock()
}

// enqueue attempts a non-blocking send; a full queue means the client
// is too slow or wedged and is dropped like any other send failure.
// Sending on a closed client is a no-op, never a panic.
func (c *client) enqueue(payload []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.closed:
		return false
	default:
		return false
	}
}

// close is idempotent; safe to call from the read loop, write loop, or
// the heartbeat/eviction sweep concurrently. It does not close send —
// writeLoop exits on its own once closed is observed, avoiding a
// send-on-closed-channel race with concurrent enqueue calls.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// writeLoop serializes all outbound frames for this connection and
// enforces the write timeout that causes slow clients to be dropped.
func (c *client) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		}
	}
}
