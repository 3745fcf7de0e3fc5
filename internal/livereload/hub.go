// Package livereload pushes route table versions to browsers over
// server-sent events so dev pages reload after a rebuild.
package livereload

import (
	"bufio"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/fest/internal/metrics"
)

// Hub manages SSE clients for version broadcasts.
type Hub struct {
	mu          sync.RWMutex
	nextID      int
	clients     map[int]*client
	metrics     metrics.Recorder
	closed      bool
	lastVersion string
	heartbeat   time.Duration
}

type client struct {
	id   int
	ch   chan string
	done chan struct{}
}

// NewHub creates a hub reporting its client count to rec (may be nil).
func NewHub(rec metrics.Recorder) *Hub {
	return &Hub{clients: map[int]*client{}, metrics: metrics.OrNoop(rec), heartbeat: 30 * time.Second}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	current := h.lastVersion
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetLiveReloadClients(n)

	// The first event sets the client's baseline; it never triggers a reload.
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		slog.Debug("livereload write", "error", err)
		h.removeClient(c.id)
		return
	}
	if current != "" {
		if _, err := bw.WriteString(message(current)); err != nil {
			slog.Debug("livereload write", "error", err)
			h.removeClient(c.id)
			return
		}
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(h.heartbeat)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(c.id)
			return
		case <-c.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err == nil {
				_ = bw.Flush()
				flusher.Flush()
			} else {
				slog.Debug("livereload ping write", "error", err)
			}
		case v := <-c.ch:
			if _, err := bw.WriteString(message(v)); err == nil {
				_ = bw.Flush()
				flusher.Flush()
			} else {
				slog.Debug("livereload broadcast write", "error", err)
			}
		}
	}
}

func message(version string) string {
	return "data: {\"version\":\"" + version + "\"}\n\n"
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.metrics.SetLiveReloadClients(n)
	}
}

// Broadcast sends version to all clients. Repeated versions are ignored and
// clients whose buffers are full are dropped.
func (h *Hub) Broadcast(version string) {
	h.mu.Lock()
	if h.closed || version == "" || version == h.lastVersion {
		h.mu.Unlock()
		return
	}
	h.lastVersion = version
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- version:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	slog.Debug("livereload broadcast", "version", version, "clients", len(snapshot), "dropped", dropped)
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*client{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.metrics.SetLiveReloadClients(0)
}
