package fleet

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsClient serializes writes to one connection. Snapshot broadcasts arrive
// from mutation goroutines and alert broadcasts from the telemetry loop;
// gorilla connections allow only a single writer at a time.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

// Hub fans fleet snapshots and alerts out to websocket subscribers (the
// dashboard and report pages). Subscribers are read-only consumers; nothing
// they send is interpreted.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			h.mu.Unlock()
			if ok {
				client.conn.Close()
			}
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	client := &wsClient{conn: conn}
	h.register <- client

	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				h.unregister <- client
				return
			}
		}
	}()
}

// BroadcastSnapshot pushes the full fleet state to every subscriber.
func (h *Hub) BroadcastSnapshot(snap Snapshot) {
	h.broadcast(map[string]any{
		"type":     "snapshot",
		"snapshot": snap,
	})
}

// BroadcastAlert pushes a single alert to every subscriber.
func (h *Hub) BroadcastAlert(alert Alert) {
	h.broadcast(map[string]any{
		"type":  "alert",
		"alert": alert,
	})
}

func (h *Hub) broadcast(payload any) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()
	for _, client := range clients {
		if err := client.write(payload); err != nil {
			h.unregister <- client
		}
	}
}
