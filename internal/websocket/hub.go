package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bazcar/bazcar-backend/internal/app/service"
	"github.com/bazcar/bazcar-backend/pkg/logger"
)

const (
	// maximum client messages per second
	maxMessagesPerSecond = 10

	sendBufferSize = 64
)

// ClientMessage is a message received from the site
type ClientMessage struct {
	Type string `json:"type"` // ping
}

// NoticeMessage is pushed to every connection of a session
type NoticeMessage struct {
	Type   string         `json:"type"` // notice
	Notice service.Notice `json:"notice"`
}

// Client is one WebSocket connection of a visitor session
type Client struct {
	Hub           *Hub
	Conn          *Conn
	SessionID     string
	Send          chan []byte
	MessageCount  int       // messages received in the current second
	LastResetTime time.Time // start of the current second
	RateMu        sync.Mutex
}

// NewClient wraps an upgraded connection for a session
func NewClient(hub *Hub, conn *Conn, sessionID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBufferSize),
	}
}

// Hub routes notices to the open connections of each session.
// A session may have several tabs open.
type Hub struct {
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex
}

// BroadcastMessage is a payload addressed to one session
type BroadcastMessage struct {
	SessionID string
	Message   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for sessionID, list := range h.clients {
				for _, client := range list {
					close(client.Send)
				}
				delete(h.clients, sessionID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			total := len(h.clients[client.SessionID])
			h.mu.Unlock()
			logger.Debug("WebSocket client registered", logger.Fields{
				"session_id":  client.SessionID,
				"connections": total,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients[message.SessionID] {
				select {
				case client.Send <- message.Message:
				default:
					// slow reader, drop the connection
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", logger.Fields{
						"session_id": message.SessionID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	remaining := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return
	}
	if len(remaining) == 0 {
		delete(h.clients, client.SessionID)
	} else {
		h.clients[client.SessionID] = remaining
	}
	close(client.Send)

	logger.Debug("WebSocket client unregistered", logger.Fields{
		"session_id":  client.SessionID,
		"connections": len(remaining),
	})
}

// Notify implements service.Notifier. Delivery is best effort.
func (h *Hub) Notify(sessionID string, notice service.Notice) {
	if !h.IsSessionOnline(sessionID) {
		return
	}
	if err := h.SendToSession(sessionID, NoticeMessage{Type: "notice", Notice: notice}); err != nil {
		logger.Warn("Failed to push notice", logger.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// SendToSession queues a JSON message for every connection of a session
func (h *Hub) SendToSession(sessionID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{SessionID: sessionID, Message: data}:
	default:
		logger.Warn("Broadcast channel full, message dropped", logger.Fields{
			"session_id": sessionID,
		})
	}
	return nil
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Stop closes every connection and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) IsSessionOnline(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[sessionID]
	return ok
}

// ConnectionCount returns the number of open connections of a session
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// HandleClientMessage handles keepalive pings, rate limited per connection
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", logger.Fields{
			"session_id": client.SessionID,
			"count":      count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Debug("Ignoring malformed client message", logger.Fields{
			"session_id": client.SessionID,
			"error":      err.Error(),
		})
		return
	}

	// pings keep idle tabs connected behind proxies that ignore control frames
	if msg.Type == "ping" {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
