package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tablecast/tablecast/pkg/logger"
	"github.com/tablecast/tablecast/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultBufferSize = 64

	// CloseSessionNotFound is sent when a client subscribes to a session
	// the store does not know.
	CloseSessionNotFound = 4404
)

// Keepalive probe exchanged as plain text frames. Probes never touch
// session state.
const (
	probeMessage = "ping"
	probeReply   = "pong"
)

// Message is the JSON payload delivered to subscribers. State snapshots
// carry Type "state" so clients can tell them apart from other frames.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub tracks which subscriber connections are attached to which session
// and fans committed snapshots out to them. Sends only enqueue onto
// per-connection buffers; socket I/O happens on each connection's write
// loop, so Broadcast never blocks the store's exclusive section.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*connection]struct{}
	upgrader    websocket.Upgrader
	log         *zap.Logger
	buffer      int
}

// Option customises the Hub.
type Option func(*Hub)

// WithSendBuffer overrides the per-connection send queue depth.
func WithSendBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.buffer = size
		}
	}
}

// NewHub constructs a hub. Origins are not restricted; the projection
// surface is meant to be embedded from arbitrary viewer hosts.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[string]map[*connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:    logger.WithModule("realtime"),
		buffer: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Serve upgrades the request, attaches the connection to the session and
// immediately queues the supplied point-in-time snapshot. It blocks until
// the client disconnects or a send fails.
func (h *Hub) Serve(sessionID string, initial any, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("session", sessionID), zap.Error(err))
		return
	}

	client := newConnection(h, socket, sessionID, h.buffer)
	h.attach(client, initial)

	go client.writeLoop()
	client.readLoop()
}

// Reject upgrades the request only to close it with CloseSessionNotFound,
// so the client can distinguish a missing session from a transport error.
func (h *Hub) Reject(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	deadline := time.Now().Add(writeWait)
	_ = socket.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseSessionNotFound, "session not found"),
		deadline,
	)
	_ = socket.Close()
}

// BroadcastState queues a state snapshot for every subscriber of the
// session. A connection that cannot keep up is marked dead and detached
// by its own loops; the failure is never surfaced to the caller.
func (h *Hub) BroadcastState(sessionID string, state any) {
	payload, err := json.Marshal(Message{Type: "state", Payload: state})
	if err != nil {
		h.log.Error("marshal snapshot", zap.String("session", sessionID), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.subscribers[sessionID]
	if len(targets) == 0 {
		return
	}

	metrics.Broadcasts.WithLabelValues(sessionID).Inc()
	for client := range targets {
		h.enqueue(client, payload)
	}
}

// SubscriberCount reports how many connections are attached to a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[sessionID])
}

func (h *Hub) attach(client *connection, initial any) {
	payload, err := json.Marshal(Message{Type: "state", Payload: initial})
	if err != nil {
		h.log.Error("marshal initial snapshot", zap.String("session", client.sessionID), zap.Error(err))
		payload = nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[client.sessionID] == nil {
		h.subscribers[client.sessionID] = make(map[*connection]struct{})
	}
	h.subscribers[client.sessionID][client] = struct{}{}
	metrics.ConnectedSubscribers.Inc()

	if payload != nil {
		h.enqueue(client, payload)
	}
}

func (h *Hub) detach(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.subscribers[client.sessionID]
	if !ok {
		return
	}
	if _, registered := clients[client]; !registered {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.subscribers, client.sessionID)
	}
	metrics.ConnectedSubscribers.Dec()
}

// enqueue never blocks and never takes the hub lock beyond what the
// caller already holds: a full queue only marks the connection dead, and
// the connection's own loops perform the detach.
func (h *Hub) enqueue(client *connection, payload []byte) {
	select {
	case <-client.done:
	case client.send <- payload:
	default:
		h.log.Warn("dropping backpressured subscriber", zap.String("session", client.sessionID))
		metrics.DroppedConnections.Inc()
		client.markDead()
	}
}

type connection struct {
	hub       *Hub
	socket    *websocket.Conn
	sessionID string
	send      chan []byte
	done      chan struct{}
	once      sync.Once
}

func newConnection(hub *Hub, socket *websocket.Conn, sessionID string, buffer int) *connection {
	return &connection{
		hub:       hub,
		socket:    socket,
		sessionID: sessionID,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

// markDead signals both loops to exit. The send channel is never closed,
// so concurrent broadcasts cannot panic against a dying connection.
func (c *connection) markDead() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *connection) teardown() {
	c.markDead()
	c.hub.detach(c)
	_ = c.socket.Close()
}

func (c *connection) readLoop() {
	defer c.teardown()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("unexpected close", zap.String("session", c.sessionID), zap.Error(err))
			}
			return
		}

		if strings.EqualFold(strings.TrimSpace(string(payload)), probeMessage) {
			select {
			case <-c.done:
				return
			case c.send <- []byte(probeReply):
			default:
				// Too backed up even for a keepalive reply.
				return
			}
		}
	}
}

func (c *connection) writeLoop() {
	defer c.teardown()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
