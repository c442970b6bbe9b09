package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/potluckhq/potluck/collab/session"
	"github.com/potluckhq/potluck/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// clientInfo is the registry entry for a connection that has completed a
// create or join. Participants do not hold connection handles; this table
// is the only link between session state and transport state.
type clientInfo struct {
	userID      string
	sessionID   string
	displayName string
}

// Hub owns the client registry and the broadcast fan-out. Session state
// itself lives in the store; the hub only maps live connections to
// (userId, sessionId) and back.
type Hub struct {
	store *session.Store

	mu      sync.RWMutex
	clients map[*Client]clientInfo
	users   map[string]*Client
}

// NewHub creates a hub over the given session store.
func NewHub(store *session.Store) *Hub {
	return &Hub{
		store:   store,
		clients: make(map[*Client]clientInfo),
		users:   make(map[string]*Client),
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and starts the
// read/write pumps. The server greets every accepted connection with a
// connection:established event carrying an opaque id used only for log
// correlation.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn, uuid.NewString())
	metrics.Incr("ws.connections", 1)
	log.Printf("[WS] conn=%s connected", client.connectionID)

	go client.writePump()
	go client.readPump()

	client.sendJSON(connectionEstablishedEvent{
		Type:         EvtConnectionEstablished,
		ConnectionID: client.connectionID,
	})
}

// register installs the connection in the registry after a successful
// create or join, replacing any entry the connection held before.
func (h *Hub) register(c *Client, userID, sessionID, displayName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.clients[c]; ok && prev.userID != userID && h.users[prev.userID] == c {
		delete(h.users, prev.userID)
	}
	h.clients[c] = clientInfo{userID: userID, sessionID: sessionID, displayName: displayName}
	h.users[userID] = c
}

// unregister drops the connection's registry entries, returning what they
// were. The user mapping is only cleared if it still points at this
// connection; a rejoin may already have claimed it.
func (h *Hub) unregister(c *Client) (clientInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	info, ok := h.clients[c]
	if !ok {
		return clientInfo{}, false
	}
	delete(h.clients, c)
	if h.users[info.userID] == c {
		delete(h.users, info.userID)
	}
	return info, true
}

// lookup returns the registry entry for a connection, if any.
func (h *Hub) lookup(c *Client) (clientInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	info, ok := h.clients[c]
	return info, ok
}

// userClient returns the live connection bound to userID, if any.
func (h *Hub) userClient(userID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.users[userID]
	return c, ok
}

// displaceUser removes userID's previous connection from the registry (so
// its eventual disconnect is not mistaken for the participant leaving) and
// closes it. Used by host rejoin, which replaces any prior live connection.
func (h *Hub) displaceUser(userID string, keep *Client) {
	h.mu.Lock()
	old, ok := h.users[userID]
	if !ok || old == keep {
		h.mu.Unlock()
		return
	}
	delete(h.clients, old)
	delete(h.users, userID)
	h.mu.Unlock()

	old.shutdown(websocket.ClosePolicyViolation, "Connection replaced")
}

// BroadcastToSession fans an event out to every live connection in the
// session, optionally excluding one user. Targets are snapshotted under the
// registry lock; writes happen outside it and are best-effort. A failed or
// dropped write to one peer never affects the others and never rolls back
// the mutation that produced the event.
func (h *Hub) BroadcastToSession(sessionID string, event any, excludeUserID string) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WS] marshal broadcast failed: %v", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c, info := range h.clients {
		if info.sessionID != sessionID {
			continue
		}
		if excludeUserID != "" && info.userID == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
	metrics.Incr("hub.broadcasts", 1)
}

// SessionEnded broadcasts a terminal event to the whole session, purges its
// registry entries, and closes each connection with a normal-closure code.
// It satisfies the service layer's Realtime interface.
func (h *Hub) SessionEnded(sessionID, reason string) {
	h.BroadcastToSession(sessionID, sessionEndedEvent{Type: EvtSessionEnded, Message: reason}, "")

	h.mu.Lock()
	var closing []*Client
	for c, info := range h.clients {
		if info.sessionID != sessionID {
			continue
		}
		delete(h.clients, c)
		if h.users[info.userID] == c {
			delete(h.users, info.userID)
		}
		closing = append(closing, c)
	}
	h.mu.Unlock()

	for _, c := range closing {
		c.shutdown(websocket.CloseNormalClosure, reason)
	}
}

// ConnectionCount reports the number of registered connections. Satisfies
// the service layer's Realtime interface.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleDisconnect runs when a connection's read pump exits. The session
// and the participant record survive; only the live connection goes away.
func (h *Hub) handleDisconnect(c *Client) {
	metrics.Decr("ws.connections", 1)
	defer c.shutdown(websocket.CloseNormalClosure, "")

	info, ok := h.unregister(c)
	if !ok {
		log.Printf("[WS] conn=%s disconnected (unregistered)", c.connectionID)
		return
	}

	log.Printf("[WS] conn=%s disconnected user=%s session=%s", c.connectionID, info.userID, info.sessionID)

	sess, err := h.store.Get(info.sessionID)
	if err != nil {
		return
	}
	username, ok := sess.MarkDisconnected(info.userID)
	if !ok {
		return
	}

	h.BroadcastToSession(info.sessionID, participantDisconnectedEvent{
		Type:     EvtParticipantDisconnected,
		UserID:   info.userID,
		Username: username,
	}, info.userID)
}

// RunReaper sweeps expired sessions on a fixed interval until the context
// is cancelled.
func (h *Hub) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.ReapExpired(); n > 0 {
				log.Printf("[REAPER] removed %d expired sessions", n)
			}
		}
	}
}

// ReapExpired removes every session idle beyond the TTL and emits
// session:expired to any lingering connections. The connections stay open;
// their registry entries clear on natural disconnect. Returns the number of
// sessions reaped.
func (h *Hub) ReapExpired() int {
	removed := h.store.SweepExpired()
	for _, sess := range removed {
		h.BroadcastToSession(sess.ID(), sessionExpiredEvent{
			Type:      EvtSessionExpired,
			SessionID: sess.ID(),
		}, "")
		metrics.Incr("sessions.reaped", 1)
	}
	return len(removed)
}
