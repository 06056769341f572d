// Package ws pushes session snapshots to connected browser clients
package ws

import (
	log "github.com/sirupsen/logrus"

	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/chucky-1/papertrader/internal/model"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the maximum time to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// sendBufferSize is the channel buffer for outgoing messages per client
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The UI is served from a different origin in development.
		return true
	},
}

// client is a single websocket connection
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// envelope is the frame sent to clients
type envelope struct {
	Type    string         `json:"type"`
	Payload model.Snapshot `json:"payload"`
}

// Hub fans session snapshots out to every connected client
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
}

// NewHub is constructor
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// BroadcastSnapshot sends the snapshot to every connected client. Safe to
// call from any goroutine; drops the frame if the hub is saturated
func (h *Hub) BroadcastSnapshot(snapshot model.Snapshot) {
	data, err := json.Marshal(envelope{Type: "session", Payload: snapshot})
	if err != nil {
		log.Error(err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn("ws: dropping snapshot, hub is saturated")
	}
}

// Run is the hub's main loop. It exits when the context is cancelled
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Infof("ws: client connected, %d total", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Infof("ws: client disconnected, %d total", total)

		case data := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					log.Warn("ws: dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWS upgrades the request and registers the connection
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error(err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump drains the connection so pings and close frames are processed.
// Clients never send anything the hub acts on
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("ws: unexpected close: %v", err)
			}
			return
		}
	}
}

// writePump pumps frames from the hub to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
