package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub manages all WebSocket connections
type Hub struct {
	// Registered clients
	Clients map[uint]*Client

	// Thread members, keyed by thread id
	ThreadMembers map[uint]map[uint]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Message handlers
	MessageHandlers map[string]MessageHandler

	mu sync.RWMutex
}

// Message is the envelope exchanged over the socket
type Message struct {
	Type      string      `json:"type"`
	ThreadID  uint        `json:"thread_id,omitempty"`
	SenderID  uint        `json:"sender_id,omitempty"`
	Text      string      `json:"text,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// MessageHandler handles different types of messages
type MessageHandler func(*Client, *Message) error

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		Clients:         make(map[uint]*Client),
		ThreadMembers:   make(map[uint]map[uint]bool),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		MessageHandlers: make(map[string]MessageHandler),
	}

	hub.registerDefaultHandlers()

	return hub
}

func (h *Hub) registerDefaultHandlers() {
	h.MessageHandlers["typing"] = h.handleTypingIndicator
	h.MessageHandlers["read"] = h.handleReadReceipt
	h.MessageHandlers["join"] = h.handleJoinThread
	h.MessageHandlers["leave"] = h.handleLeaveThread
	h.MessageHandlers["ping"] = h.handlePing
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("🔌 Client registered: ID=%d", client.ID)

		case client := <-h.Unregister:
			h.mu.Lock()
			// A reconnect replaces the map entry before the old connection's
			// unregister arrives; only tear down if this client still owns it.
			if h.Clients[client.ID] == client {
				for threadID := range h.ThreadMembers {
					if h.ThreadMembers[threadID][client.ID] {
						delete(h.ThreadMembers[threadID], client.ID)
					}
				}

				delete(h.Clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("🔌 Client unregistered: ID=%d", client.ID)
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID uint, message *Message) {
	h.mu.RLock()
	client, exists := h.Clients[userID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	select {
	case client.Send <- data:
	default:
		log.Printf("⚠️ User %d's send buffer is full", userID)
	}
}

// AddUserToThread adds a user to a thread's realtime room
func (h *Hub) AddUserToThread(userID uint, threadID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ThreadMembers[threadID] == nil {
		h.ThreadMembers[threadID] = make(map[uint]bool)
	}
	h.ThreadMembers[threadID][userID] = true

	log.Printf("👥 User %d joined thread %d", userID, threadID)
}

// RemoveUserFromThread removes a user from a thread's realtime room
func (h *Hub) RemoveUserFromThread(userID uint, threadID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ThreadMembers[threadID] != nil {
		delete(h.ThreadMembers[threadID], userID)
	}
}

// SendToThread sends a message to all connected members of a thread,
// excluding the sender.
func (h *Hub) SendToThread(threadID uint, message *Message, excludeUserID uint) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	roomMembers := h.ThreadMembers[threadID]
	if roomMembers == nil {
		return
	}

	for userID := range roomMembers {
		if userID == excludeUserID {
			continue
		}

		client, exists := h.Clients[userID]
		if !exists {
			continue
		}

		select {
		case client.Send <- data:
		default:
			log.Printf("⚠️ User %d's send buffer is full", userID)
		}
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.Clients[userID]
	return exists
}

// handleTypingIndicator relays typing indicators to the rest of the thread
func (h *Hub) handleTypingIndicator(client *Client, message *Message) error {
	h.SendToThread(message.ThreadID, message, client.ID)
	return nil
}

// handleReadReceipt relays read receipts to the rest of the thread
func (h *Hub) handleReadReceipt(client *Client, message *Message) error {
	h.SendToThread(message.ThreadID, message, client.ID)
	return nil
}

// handleJoinThread subscribes the client to a thread's realtime room
func (h *Hub) handleJoinThread(client *Client, message *Message) error {
	if message.ThreadID == 0 {
		return nil
	}
	h.AddUserToThread(client.ID, message.ThreadID)
	return nil
}

// handleLeaveThread unsubscribes the client from a thread's realtime room
func (h *Hub) handleLeaveThread(client *Client, message *Message) error {
	if message.ThreadID == 0 {
		return nil
	}
	h.RemoveUserFromThread(client.ID, message.ThreadID)
	return nil
}

// handlePing handles ping messages for connection health
func (h *Hub) handlePing(client *Client, message *Message) error {
	return client.SendMessage(&Message{
		Type:      "pong",
		Timestamp: time.Now(),
	})
}
