package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"regression-lab/internal/ml"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// Hub streams session transitions to connected WebSocket clients.
type Hub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	events    <-chan ml.Transition
	stop      func()
	done      chan struct{}
}

// NewHub subscribes to the session. Call Run to start broadcasting.
func NewHub(session *ml.Session) *Hub {
	events, unsubscribe := session.Subscribe(64)
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]bool),
		events:   events,
		stop:     unsubscribe,
		done:     make(chan struct{}),
	}
}

// Run broadcasts transitions until the subscription is closed.
func (h *Hub) Run() {
	defer close(h.done)
	for ev := range h.events {
		h.broadcast(ev)
	}
}

// Close unsubscribes from the session, waits for Run to drain and
// disconnects all clients.
func (h *Hub) Close() {
	h.stop()
	<-h.done

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev ml.Transition) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal transition for broadcast")
		return
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("dropping WebSocket client")
			client.Close()
			delete(h.clients, client)
		}
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	h.clientsMu.Unlock()
	log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	// Drain reads so close frames are processed; drop the client on error.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.clientsMu.Lock()
				if h.clients[conn] {
					delete(h.clients, conn)
					conn.Close()
				}
				h.clientsMu.Unlock()
				return
			}
		}
	}()
}
