package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"breakoutengine/internal/model"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans every emitted signal out to connected WebSocket clients. No
// per-channel subscription filtering, replay buffers or pub/sub routing —
// this domain has one logical channel, terminal signals, with no backfill
// requirement — just a client registry and a write-pump/ping idiom.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty signal-broadcast hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]bool)}
}

// ServeWS upgrades an HTTP connection to a WebSocket and registers it as a
// broadcast recipient. Wire into an http.ServeMux under e.g. "/ws/signals".
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[wsbroadcast] upgrade failed: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[wsbroadcast] client connected (%d total)", count)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.send)
		c.conn.Close()
		log.Println("[wsbroadcast] client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast fans data out to every connected client, dropping it for any
// client whose send buffer is full rather than blocking the caller.
func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Send implements Notifier: broadcasts the signal's wire JSON to every
// connected WebSocket client. Errors only if the signal cannot be marshaled
// — an unreachable client is the client's problem, not the sink's (matches
// spec §4.6 step 5's isolation).
func (h *Hub) Send(ctx context.Context, sig model.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	h.broadcast(data)
	return nil
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
