// Package realtime pushes dashboard events to connected admin browsers
// over WebSocket.
package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"collector/pkg/logger"
)

const (
	defaultQueueSize    = 64
	defaultWriteTimeout = 5 * time.Second
	defaultPingEvery    = 30 * time.Second
	maxPingFailures     = 3
)

// Event is the envelope written to every subscriber.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	At   time.Time   `json:"at"`
}

// Hub keeps the set of live subscribers. Broadcast never blocks: a
// subscriber whose queue is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	queueSize      int
	writeTimeout   time.Duration
	pingEvery      time.Duration
	originPatterns []string
}

type Option func(*Hub)

// WithOriginPatterns authorizes cross-origin dashboards (host patterns).
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.originPatterns = patterns }
}

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) { h.pingEvery = d }
}

func WithQueueSize(n int) Option {
	return func(h *Hub) { h.queueSize = n }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:      make(map[string]*client),
		queueSize:    defaultQueueSize,
		writeTimeout: defaultWriteTimeout,
		pingEvery:    defaultPingEvery,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Broadcast queues ev for every subscriber and returns how many accepted it.
func (h *Hub) Broadcast(ev Event) int {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, c := range h.clients {
		select {
		case <-c.done:
			continue
		default:
		}
		select {
		case c.send <- ev:
			delivered++
		default:
			logger.Debug("realtime queue full", "module", "realtime", "action", "broadcast", "resource", "event", "result", "dropped", "client", c.id)
		}
	}
	return delivered
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	logger.Info("realtime subscriber joined", "module", "realtime", "action", "join", "resource", "subscriber", "result", "ok", "client", c.id)
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close()
	logger.Info("realtime subscriber left", "module", "realtime", "action", "leave", "resource", "subscriber", "result", "ok", "client", c.id)
}

// ServeHTTP upgrades the request and streams events until either side closes.
// Messages sent by the browser are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		logger.Warn("realtime accept failed", "module", "realtime", "action", "accept", "resource", "subscriber", "result", "failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	c := newClient(uuid.NewString(), h.queueSize)
	h.join(c)
	defer h.leave(c)

	// CloseRead drains control frames and cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(h.pingEvery)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			_ = conn.Close(websocket.StatusGoingAway, "server shutdown")
			return
		case ev := <-c.send:
			if err := h.write(ctx, conn, ev); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Info("realtime write failed", "module", "realtime", "action", "write", "resource", "event", "result", "failed", "client", c.id, "error", err)
				}
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				failures++
				if failures >= maxPingFailures {
					_ = conn.Close(websocket.StatusGoingAway, "heartbeat failed")
					return
				}
				continue
			}
			failures = 0
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.close()
	}
}
