package events

import (
	"context"
	"encoding/json"
	"log"

	websocket "github.com/gofiber/contrib/websocket"
)

// Hub fans domain events out to connected clients. Each event reaches the
// session's mentee and mentor if they hold an open socket; everyone else never
// sees it.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Publish implements Sink. Non-blocking: a saturated hub drops the event
// rather than stalling a booking transaction.
func (h *Hub) Publish(_ context.Context, event Event) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("event hub: dropped %s for session %s", event.Type, event.SessionID)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) deliver(event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("event hub: encode event: %v", err)
		return
	}

	h.sendToUser(event.MenteeID.String(), encoded)
	if event.MentorID != event.MenteeID {
		h.sendToUser(event.MentorID.String(), encoded)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump drains the socket so pings and closes are handled. The feed is
// one-way: inbound payloads are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
