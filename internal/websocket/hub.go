// Package websocket pushes calibrated snapshots to subscribed clients.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// Message types sent to clients
const (
	TypeSnapshot     = "snapshot"
	TypeDeleted      = "snapshot_deleted"
	TypeSubscribed   = "subscription_confirmed"
	TypeUnsubscribed = "unsubscription_confirmed"
	TypePong         = "pong"
	TypeError        = "error"
)

// AllSnapshots subscribes to every snapshot name
const AllSnapshots = "*"

// Hub maintains the set of active clients and broadcasts snapshot events to them
type Hub struct {
	clients       map[*Client]bool
	broadcast     chan event
	register      chan *Client
	unregister    chan *Client
	subscriptions map[string]map[*Client]bool // snapshot name -> clients
	snapshots     store.SnapshotStore
	stopped       chan struct{} // closed when Run returns
	stopOnce      sync.Once
	log           *logger.Logger
	mu            sync.RWMutex
	nextID        atomic.Uint64
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	id   string
}

// Message is a websocket message
type Message struct {
	Type     string      `json:"type"`
	Snapshot string      `json:"snapshot,omitempty"`
	Version  int         `json:"version,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	ID       string      `json:"id,omitempty"`
}

// SubscriptionMessage is what clients send
type SubscriptionMessage struct {
	Type      string   `json:"type"`
	Snapshots []string `json:"snapshots"`
	ID        string   `json:"id,omitempty"`
}

type event struct {
	snapshot string
	data     []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// NewHub creates a hub serving the snapshots of the store
func NewHub(snapshots store.SnapshotStore) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		broadcast:     make(chan event, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscriptions: make(map[string]map[*Client]bool),
		snapshots:     snapshots,
		stopped:       make(chan struct{}),
		log:           logger.GetLogger("websocket.hub"),
	}
}

// Run serves registrations and broadcasts until the context is done
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Starting WebSocket hub")
	defer h.stopOnce.Do(func() { close(h.stopped) })

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			h.log.Info("WebSocket hub shutting down")
			return

		case client := <-h.register:
			h.clients[client] = true
			metrics.SetWebsocketClients(len(h.clients))
			h.log.Debugw("Client registered", "client", client.id)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.log.Debugw("Client unregistered", "client", client.id)
			}

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// remove must only be called from Run
func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.done)
	h.removeClientSubscriptions(client)
	metrics.SetWebsocketClients(len(h.clients))
}

// deliver sends an event to its subscribers. Clients that cannot keep up are dropped.
func (h *Hub) deliver(ev event) {
	h.mu.RLock()
	targets := make([]*Client, 0)
	for client := range h.subscriptions[ev.snapshot] {
		targets = append(targets, client)
	}
	for client := range h.subscriptions[AllSnapshots] {
		if !h.subscriptions[ev.snapshot][client] {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !h.clients[client] {
			continue
		}
		select {
		case client.send <- ev.data:
		default:
			h.log.Warnw("Dropping slow client", "client", client.id)
			h.remove(client)
		}
	}
}

// PublishSnapshot notifies subscribers that a snapshot was saved
func (h *Hub) PublishSnapshot(snap *store.Snapshot) {
	h.publish(snap.Name, Message{
		Type:     TypeSnapshot,
		Snapshot: snap.Name,
		Version:  snap.Version,
		Data:     snap.Response,
	})
}

// PublishDeleted notifies subscribers that a snapshot was removed
func (h *Hub) PublishDeleted(name string) {
	h.publish(name, Message{Type: TypeDeleted, Snapshot: name})
}

func (h *Hub) publish(name string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorw("Failed to marshal message", "snapshot", name, "error", err)
		return
	}
	select {
	case h.broadcast <- event{snapshot: name, data: data}:
	default:
		h.log.Warnw("Broadcast queue full, dropping event", "snapshot", name, "type", msg.Type)
	}
}

// HandleWebSocket upgrades the connection and registers the client
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
		id:   fmt.Sprintf("client_%d", h.nextID.Add(1)),
	}

	select {
	case h.register <- client:
	case <-h.stopped:
		h.log.Debugw("Rejecting client, hub is stopped", "client", client.id)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.done:
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
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorw("WebSocket error", "client", c.id, "error", err)
			}
			break
		}

		for _, reply := range c.hub.handleMessage(c, data) {
			c.queue(reply)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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

// queue hands a reply to the write pump without blocking the read loop
func (c *Client) queue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorw("Failed to marshal message", "client", c.id, "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.hub.log.Warnw("Send buffer full, dropping reply", "client", c.id, "type", msg.Type)
	}
}

// handleMessage returns the replies to one client message
func (h *Hub) handleMessage(c *Client, data []byte) []Message {
	var msg SubscriptionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return []Message{{Type: TypeError, Error: "invalid message format"}}
	}

	switch msg.Type {
	case "subscribe":
		return h.subscribe(c, msg)
	case "unsubscribe":
		h.unsubscribe(c, msg.Snapshots)
		return []Message{{
			Type: TypeUnsubscribed,
			Data: map[string]interface{}{"snapshots": msg.Snapshots},
			ID:   msg.ID,
		}}
	case "ping":
		return []Message{{Type: TypePong, ID: msg.ID}}
	default:
		return []Message{{Type: TypeError, Error: "unknown message type " + msg.Type, ID: msg.ID}}
	}
}

// subscribe registers interest and replies with the current snapshots
func (h *Hub) subscribe(c *Client, msg SubscriptionMessage) []Message {
	if len(msg.Snapshots) == 0 {
		return []Message{{Type: TypeError, Error: "no snapshots to subscribe to", ID: msg.ID}}
	}

	h.mu.Lock()
	for _, name := range msg.Snapshots {
		if h.subscriptions[name] == nil {
			h.subscriptions[name] = make(map[*Client]bool)
		}
		h.subscriptions[name][c] = true
	}
	h.mu.Unlock()

	var replies []Message
	for _, name := range msg.Snapshots {
		if name == AllSnapshots {
			continue
		}
		if snap, err := h.snapshots.Get(name); err == nil {
			replies = append(replies, Message{
				Type:     TypeSnapshot,
				Snapshot: snap.Name,
				Version:  snap.Version,
				Data:     snap.Response,
				ID:       msg.ID,
			})
		}
	}
	return append(replies, Message{
		Type: TypeSubscribed,
		Data: map[string]interface{}{"snapshots": msg.Snapshots},
		ID:   msg.ID,
	})
}

func (h *Hub) unsubscribe(c *Client, names []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range names {
		if clients, exists := h.subscriptions[name]; exists {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.subscriptions, name)
			}
		}
	}
}

// removeClientSubscriptions removes all subscriptions for a client
func (h *Hub) removeClientSubscriptions(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for name, clients := range h.subscriptions {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscriptions, name)
		}
	}
}

// Subscribers returns the number of clients subscribed to a name
func (h *Hub) Subscribers(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[name])
}
