package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/swarmdeck/core/internal/logging"
	"github.com/swarmdeck/core/internal/notify"
)

// ServeHTTP upgrades the request to a WebSocket and runs the connection
// until it closes. A client may authenticate via the `token` query
// parameter (pre-minted via POST /auth/token) or via an `auth` frame
// sent as its first message.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logging.WithComponent("bridge.ws")

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(uuid.NewString(), conn)
	b.hub.register(c)
	go c.writeLoop()

	greet, _ := json.Marshal(connectedFrame{Type: "connected", ClientID: c.id})
	c.enqueue(greet)

	if token := r.URL.Query().Get("token"); token != "" {
		b.authenticateToken(c, token)
	}

	b.readLoop(c)
}

func (b *Bridge) readLoop(c *client) {
	defer b.dropClient(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.touch()

		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			b.sendError(c, "BAD_FRAME", "malformed frame")
			continue
		}
		b.handleFrame(c, f)
	}
}

func (b *Bridge) handleFrame(c *client, f clientFrame) {
	if !c.isAuthenticated() && f.Type != frameAuth && f.Type != framePing {
		b.sendError(c, "UNAUTHENTICATED", "send auth first")
		return
	}

	switch f.Type {
	case frameAuth:
		b.authenticateFrame(c, f)
	case framePing:
		pong, _ := json.Marshal(pongFrame{Type: "pong"})
		c.enqueue(pong)
	case frameSubscribe:
		b.hub.subscribe(c, f.Channel)
		b.sendAck(c, f.MessageID, true, "")
	case frameUnsubscribe:
		b.hub.unsubscribe(c, f.Channel)
		b.sendAck(c, f.MessageID, true, "")
	case framePublish:
		b.handlePublish(c, f)
	case frameAck:
		b.delivery.ack(f.MessageID, c.id)
	default:
		b.sendError(c, "UNKNOWN_FRAME", "unrecognized frame type")
	}
}

func (b *Bridge) handlePublish(c *client, f clientFrame) {
	var data map[string]any
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &data); err != nil {
			b.sendAck(c, f.MessageID, false, "malformed data")
			return
		}
	}
	b.dispatchLocal(f.Event, []string{f.Channel}, data)
	b.sendAck(c, f.MessageID, true, "")
}

func (b *Bridge) authenticateToken(c *client, token string) {
	payload, err := b.minter.Validate(token)
	if err != nil {
		b.sendError(c, "AUTH_INVALID", err.Error())
		return
	}
	b.completeAuth(c, payload.AgentID, payload.SessionID)
}

func (b *Bridge) authenticateFrame(c *client, f clientFrame) {
	if f.Token != "" {
		b.authenticateToken(c, f.Token)
		return
	}
	if b.devMode && f.AgentID != "" {
		b.completeAuth(c, f.AgentID, f.SessionID)
		return
	}
	b.sendError(c, "AUTH_INVALID", "missing token")
}

// completeAuth marks c authenticated and auto-subscribes it to global,
// its agent channel, its session channel (if given), and restores its
// prior channel set from a previous connection under the same agent id.
func (b *Bridge) completeAuth(c *client, agentID, sessionID string) {
	c.markAuthenticated(agentID, sessionID)

	// Read the prior set before subscribing: every subscribe below
	// overwrites the agent's recorded channel set.
	var prior []string
	if agentID != "" {
		prior = b.hub.priorChannels(agentID)
	}

	b.hub.subscribe(c, notify.ChannelGlobal)
	if agentID != "" {
		b.hub.subscribe(c, notify.AgentChannel(agentID))
		for _, ch := range prior {
			b.hub.subscribe(c, ch)
		}
	}
	if sessionID != "" {
		b.hub.subscribe(c, notify.SessionChannel(sessionID))
	}

	b.sendAck(c, "", true, "")
}

func (b *Bridge) sendAck(c *client, id string, success bool, errMsg string) {
	payload, _ := json.Marshal(ackFrame{Type: "ack", ID: id, Success: success, Error: errMsg})
	c.enqueue(payload)
}

func (b *Bridge) sendError(c *client, code, msg string) {
	payload, _ := json.Marshal(newErrorFrame(code, msg))
	c.enqueue(payload)
}
