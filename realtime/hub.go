// Package realtime pushes order updates to connected websocket clients.
package realtime

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"scanndine/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	channels []string
}

type message struct {
	channels []string
	data     []byte
}

// Hub fans messages out to the clients subscribed to a channel. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan message
	done       chan struct{}
	connected  atomic.Int64

	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

// NewHub builds a hub accepting upgrades from the given origins. An empty
// list accepts any origin.
func NewHub(origins []string, log logrus.FieldLogger, m *metrics.Metrics) *Hub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		log:     log,
		metrics: m,
	}
}

// Run serves register, unregister and broadcast until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for cl := range set {
					h.drop(cl)
				}
			}
			return

		case cl := <-h.register:
			for _, ch := range cl.channels {
				if h.clients[ch] == nil {
					h.clients[ch] = make(map[*client]bool)
				}
				h.clients[ch][cl] = true
			}
			h.connected.Add(1)
			h.metrics.ClientConnected()

		case cl := <-h.unregister:
			h.drop(cl)

		case msg := <-h.broadcast:
			seen := make(map[*client]bool)
			for _, ch := range msg.channels {
				for cl := range h.clients[ch] {
					if seen[cl] {
						continue
					}
					seen[cl] = true
					select {
					case cl.send <- msg.data:
					default:
						// slow consumer
						h.drop(cl)
					}
				}
			}
		}
	}
}

func (h *Hub) drop(cl *client) {
	found := false
	for _, ch := range cl.channels {
		if set, ok := h.clients[ch]; ok && set[cl] {
			found = true
			delete(set, cl)
			if len(set) == 0 {
				delete(h.clients, ch)
			}
		}
	}
	if found {
		close(cl.send)
		h.connected.Add(-1)
		h.metrics.ClientDisconnected()
	}
}

// Connected is the number of registered clients.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

// Broadcast delivers data to every client subscribed to any of channels.
// A client subscribed to several of them gets the message once.
func (h *Hub) Broadcast(channels []string, data []byte) {
	select {
	case h.broadcast <- message{channels: channels, data: data}:
	case <-h.done:
	}
}

// Serve upgrades the request and subscribes the connection to channels.
func (h *Hub) Serve(c *gin.Context, channels []string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer), channels: channels}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(cl)
	go h.readPump(cl)
}

// readPump only drains control frames; clients never send data.
func (h *Hub) readPump(cl *client) {
	defer func() {
		select {
		case h.unregister <- cl:
		case <-h.done:
		}
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case data, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
