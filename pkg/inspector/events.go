package inspector

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
	"github.com/DeBrosOfficial/hdsview/pkg/session"
	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 32
)

// Envelope types on the event stream.
const (
	EventSession     = "session"
	EventTopicLoaded = "topic.loaded"
	EventTopicFailed = "topic.failed"
)

// Envelope is one message on the event stream.
type Envelope struct {
	Type      string         `json:"type"`
	Session   *session.Event `json:"session,omitempty"`
	Topic     string         `json:"topic,omitempty"`
	Hosts     int            `json:"hosts,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header and browser requests
// from the inspector's own host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans session and discovery progress out to WebSocket clients. Slow
// clients are dropped rather than blocking the publisher.
type Hub struct {
	logger  *logging.ColoredLogger
	metrics *metrics.Registry

	mu      sync.RWMutex
	clients map[string]*wsClient
	closed  bool
}

var (
	_ session.Observer  = (*Hub)(nil)
	_ topology.Observer = (*Hub)(nil)
)

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, reg *metrics.Registry) *Hub {
	return &Hub{
		logger:  logging.Wrap(logger),
		metrics: reg,
		clients: make(map[string]*wsClient),
	}
}

// OnSessionEvent broadcasts a session transition.
func (h *Hub) OnSessionEvent(e session.Event) {
	h.Broadcast(Envelope{Type: EventSession, Session: &e, Timestamp: e.Timestamp})
}

// OnTopicFetched broadcasts discovery progress.
func (h *Hub) OnTopicFetched(topic string, hosts []string) {
	h.Broadcast(Envelope{Type: EventTopicLoaded, Topic: topic, Hosts: len(hosts), Timestamp: time.Now().UTC()})
}

// OnTopicFailed broadcasts a degraded topic.
func (h *Hub) OnTopicFailed(topic string, err error) {
	h.Broadcast(Envelope{Type: EventTopicFailed, Topic: topic, Reason: err.Error(), Timestamp: time.Now().UTC()})
}

// Broadcast sends env to every connected client.
func (h *Hub) Broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.ComponentWarn(logging.ComponentInspector, "failed to marshal event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.ComponentWarn(logging.ComponentInspector, "dropping slow event client", zap.String("client", id))
			h.removeLocked(id)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ComponentWarn(logging.ComponentInspector, "websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.ComponentDebug(logging.ComponentInspector, "event client connected", zap.String("client", c.id))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) add(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.metrics.SetEventSubscribers(len(h.clients))
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
	h.metrics.SetEventSubscribers(len(h.clients))
}

// readPump discards client messages and handles pongs until the connection
// fails.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c.id)
		_ = c.conn.Close()
		h.logger.ComponentDebug(logging.ComponentInspector, "event client disconnected", zap.String("client", c.id))
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id)
	}
}
