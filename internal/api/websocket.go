package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventType identifies a pushed WebSocket event.
type EventType string

const (
	EventNoteIngested   EventType = "note_ingested"
	EventLedgerEntries  EventType = "ledger_entries"
	EventQuoteFallback  EventType = "quote_static_fallback"
)

// WSEvent is one pushed message.
type WSEvent struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

type wsSubscription struct {
	Action string   `json:"action"`
	Events []string `json:"events"`
}

type wsClient struct {
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[EventType]bool
	mu            sync.RWMutex
	hub           *WSHub
}

// WSHub fans out ingestion/quote events to subscribed dashboard clients, the
// supplemented push feature this repo adds beyond the request/response API.
type WSHub struct {
	clients    map[*wsClient]bool
	broadcast  chan *WSEvent
	register   chan *wsClient
	unregister chan *wsClient
	log        *logging.Logger
	mu         sync.RWMutex
}

func NewWSHub(log *logging.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan *WSEvent, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		log:        log,
	}
}

// Run drives the hub's event loop; callers start it in its own goroutine.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error("marshal ws event", "error", err)
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				client.mu.RLock()
				subscribed := client.subscriptions[event.Type] || len(client.subscriptions) == 0
				client.mu.RUnlock()
				if !subscribed {
					continue
				}
				select {
				case client.send <- data:
				default:
					h.log.Warn("ws client send buffer full, dropping message")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast pushes an event to every subscribed client, non-blocking.
func (h *WSHub) Broadcast(eventType EventType, data any) {
	event := &WSEvent{Type: eventType, Data: data, Timestamp: time.Now().Unix()}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("ws broadcast channel full, dropping event", "type", eventType)
	}
}

// ClientCount reports the number of live WebSocket connections.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn:          conn,
		send:          make(chan []byte, 256),
		subscriptions: make(map[EventType]bool),
		hub:           s.hub,
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var sub wsSubscription
		if err := json.Unmarshal(message, &sub); err == nil {
			c.handleSubscription(&sub)
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
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

func (c *wsClient) handleSubscription(sub *wsSubscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, eventStr := range sub.Events {
		eventType := EventType(eventStr)
		switch sub.Action {
		case "subscribe":
			c.subscriptions[eventType] = true
		case "unsubscribe":
			delete(c.subscriptions, eventType)
		}
	}
}
