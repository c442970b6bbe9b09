package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/potluckhq/potluck/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Client is one live websocket connection. Its identity (userId, sessionId)
// lives in the hub's registry, not here; an accepted connection that never
// sends a successful create/join stays anonymous.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	connectionID string

	send chan []byte

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

func newClient(h *Hub, conn *websocket.Conn, connectionID string) *Client {
	return &Client{
		hub:          h,
		conn:         conn,
		connectionID: connectionID,
		send:         make(chan []byte, 256),
		closeCode:    websocket.CloseNormalClosure,
	}
}

// enqueue hands a serialized message to the write pump. A full buffer or a
// closed client drops the message; delivery is best-effort and a slow peer
// must not block the rest of the session.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		metrics.Incr("ws.send.drops", 1)
		log.Printf("[WS] conn=%s send buffer full, dropping message", c.connectionID)
		return false
	}
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WS] conn=%s marshal failed: %v", c.connectionID, err)
		return
	}
	c.enqueue(data)
}

// shutdown closes the send channel exactly once. Queued messages are still
// flushed by the write pump before the close frame goes out.
func (c *Client) shutdown(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *Client) closeFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}

// readPump pumps frames from the connection into the dispatcher. One per
// connection; exits on transport error or close, which triggers the
// disconnect handling.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] conn=%s read error: %v", c.connectionID, err)
			}
			break
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			c.sendJSON(errorEvent{Type: EvtError, Message: "Invalid message format"})
			continue
		}
		c.hub.dispatch(c, env)
	}
}

// writePump pumps messages from the send channel to the connection and
// keeps the peer alive with pings. One per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the client; the channel is drained.
				c.conn.WriteMessage(websocket.CloseMessage, c.closeFrame())
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] conn=%s write error: %v", c.connectionID, err)
				return
			}
			metrics.Incr("ws.send", 1)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
