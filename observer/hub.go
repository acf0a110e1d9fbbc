// Package observer streams simulation events and window statistics to
// websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
	"github.com/pthm-cable/hunters/telemetry"
)

// Message is one frame sent to clients.
type Message struct {
	Type  string                 `json:"type"` // "event" or "stats"
	Event *events.Event          `json:"event,omitempty"`
	Stats *telemetry.WindowStats `json:"stats,omitempty"`
}

type client struct {
	out  chan []byte
	done chan struct{}
}

// Hub fans messages out to connected clients. It is an events.Sink.
// Slow clients lose frames rather than stall the simulation.
type Hub struct {
	cfg      config.ObserverConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  *telemetry.WindowStats
	closed  bool

	nclients atomic.Int32
	dropped  atomic.Uint64
}

// NewHub creates a hub with the given client buffer and write timeout.
func NewHub(cfg config.ObserverConfig) *Hub {
	if cfg.ClientBuffer < 1 {
		cfg.ClientBuffer = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5
	}
	return &Hub{
		cfg:     cfg,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Emit broadcasts a simulation event.
func (h *Hub) Emit(e events.Event) {
	if h.nclients.Load() == 0 {
		return
	}
	h.broadcast(Message{Type: "event", Event: &e})
}

// PublishStats records the latest window and broadcasts it.
func (h *Hub) PublishStats(s telemetry.WindowStats) {
	h.mu.Lock()
	h.latest = &s
	h.mu.Unlock()
	if h.nclients.Load() == 0 {
		return
	}
	h.broadcast(Message{Type: "stats", Stats: &s})
}

func (h *Hub) broadcast(m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		slog.Warn("observer: marshal failed", "type", m.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.nclients.Load()) }

// Dropped returns how many frames were dropped for slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Handler serves /ws and /stats.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/stats", h.serveStats)
	return mux
}

func (h *Hub) serveStats(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.mu.Lock()
	latest := h.latest
	h.mu.Unlock()
	if latest == nil {
		rw.WriteHeader(http.StatusNoContent)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(latest)
}

func (h *Hub) register() (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{out: make(chan []byte, h.cfg.ClientBuffer), done: make(chan struct{})}
	h.clients[c] = struct{}{}
	h.nclients.Add(1)
	return c, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.done)
		h.nclients.Add(-1)
	}
}

func (h *Hub) serveWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c, ok := h.register()
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		return
	}
	defer h.unregister(c)

	timeout := time.Duration(h.cfg.WriteTimeout * float64(time.Second))

	// Writer goroutine.
	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-c.done:
				writeErr <- nil
				return
			case b := <-c.out:
				_ = conn.SetWriteDeadline(time.Now().Add(timeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Reader loop only detects disconnects; clients send nothing.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-readDone:
	case <-writeErr:
	case <-c.done:
	}
	h.unregister(c)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
}

// Close disconnects all clients and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.done)
		h.nclients.Add(-1)
	}
}

// Serve listens on addr until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("observer listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
