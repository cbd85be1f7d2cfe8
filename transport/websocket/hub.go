package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/pyramid-solver/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// AllPuzzles subscribes a client to runs of every puzzle.
	AllPuzzles = "*"

	EventRunFinished = "run_finished"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the JSON envelope sent to subscribers
type Message struct {
	Topic string           `json:"topic"`
	Event string           `json:"event"`
	Run   *service.RunInfo `json:"run,omitempty"`
	Data  interface{}      `json:"data,omitempty"`
}

// Client is one websocket subscriber
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

// Hub fans finished runs out to the clients subscribed to their puzzle.
// Topics are puzzle IDs; AllPuzzles receives everything.
type Hub struct {
	// Registered clients by topic
	topics map[string]map[*Client]bool
	mu     sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends the event loop and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ServeWS upgrades the request and subscribes the connection to topic
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, topic string) {
	if topic == "" {
		topic = AllPuzzles
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 256),
		topic: topic,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// RunFinished publishes a finished run to its puzzle's subscribers
func (h *Hub) RunFinished(run *service.RunInfo) {
	h.publish(&Message{
		Topic: run.PuzzleID,
		Event: EventRunFinished,
		Run:   run,
	})
}

// BroadcastEvent sends a custom event to the clients of a topic
func (h *Hub) BroadcastEvent(topic string, event string, data interface{}) {
	h.publish(&Message{
		Topic: topic,
		Event: event,
		Data:  data,
	})
}

// ClientCount returns the number of clients subscribed to topic
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) publish(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		log.WithField("topic", message.Topic).Warn("Warning: WebSocket broadcast queue full, dropping message")
	}
}

// registerClient adds a client to its topic
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[client.topic] == nil {
		h.topics[client.topic] = make(map[*Client]bool)
	}
	h.topics[client.topic][client] = true

	log.WithFields(log.Fields{
		"topic":   client.topic,
		"clients": len(h.topics[client.topic]),
	}).Debug("Client registered")
}

// unregisterClient removes a client from its topic
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.topics[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.topics, client.topic)
	}

	log.WithFields(log.Fields{
		"topic":   client.topic,
		"clients": len(clients),
	}).Debug("Client unregistered")
}

// broadcastMessage delivers a message to its topic and to AllPuzzles
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Warnf("Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	topics := []string{message.Topic}
	if message.Topic != AllPuzzles {
		topics = append(topics, AllPuzzles)
	}

	for _, topic := range topics {
		for client := range h.topics[topic] {
			select {
			case client.send <- data:
			default:
				// Slow client
				h.removeLocked(client)
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.topics {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// readPump keeps the connection alive; subscribers do not send messages
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
