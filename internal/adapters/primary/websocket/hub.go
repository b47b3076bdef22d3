package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

// Hub maintains the set of active Clients and relays live-call stream
// events to them.
type Hub struct {
	// clients maps user IDs to their active connections.
	// A single user can have multiple connections (multiple tabs/devices).
	clients map[uuid.UUID]map[*Client]bool

	// rooms maps tracking IDs to clients watching that call.
	rooms map[string]map[*Client]bool

	// broadcast carries events from the upstream bus.
	broadcast chan domain.StreamEvent

	// Register requests from clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// mu protects the clients and rooms maps.
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new relay hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan domain.StreamEvent, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "relay_hub"),
	}
}

// Broadcast queues an event for delivery to watching clients.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(event domain.StreamEvent) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_kind", event.Kind,
			"tracking_id", event.TrackingID,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Get subscriptions before removing from maps
	subscriptions := client.GetSubscriptions()

	// 1. Remove from the global user map
	if userClients, ok := h.clients[client.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
		}
	}

	// 2. Remove from all subscribed rooms
	for _, trackingID := range subscriptions {
		if room, ok := h.rooms[trackingID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, trackingID)
			}
		}
	}

	// 3. Safely close the send channel
	client.CloseSend()

	h.logger.Info("client unregistered",
		"user_id", client.UserID,
	)
}

// broadcastEvent delivers an event to the clients watching its call.
// Events with no tracking id (connection status, metrics snapshots) go
// to every connected client.
func (h *Hub) broadcastEvent(event domain.StreamEvent) {
	clients := h.recipients(event.TrackingID)
	if len(clients) == 0 {
		return
	}

	h.logger.Debug("relaying event",
		"event_kind", event.Kind,
		"tracking_id", event.TrackingID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.Send <- event:
			// Successfully queued
		default:
			// Client's send buffer is full, drop them. Must not go
			// through the Unregister channel here: its only receiver
			// is this loop, so sending would wedge the hub.
			h.logger.Warn("client send buffer full, unregistering",
				"user_id", client.UserID,
			)
			h.unregisterClient(client)
		}
	}
}

// recipients returns a snapshot of the clients an event should reach.
func (h *Hub) recipients(trackingID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if trackingID == "" {
		all := make([]*Client, 0)
		for _, userClients := range h.clients {
			for client := range userClients {
				all = append(all, client)
			}
		}
		return all
	}

	room, ok := h.rooms[trackingID]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	return clients
}

// SubscribeToCall adds a client to a call's room. Exposed so the upgrade
// handler can honor a trackingId query parameter before the pumps start.
func (h *Hub) SubscribeToCall(client *Client, trackingID string) {
	h.subscribeClientToCall(client, trackingID)
}

// subscribeClientToCall adds a client to a call's room
func (h *Hub) subscribeClientToCall(client *Client, trackingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[trackingID] == nil {
		h.rooms[trackingID] = make(map[*Client]bool)
	}
	h.rooms[trackingID][client] = true
	client.AddSubscription(trackingID)

	h.logger.Debug("client subscribed to call",
		"user_id", client.UserID,
		"tracking_id", trackingID,
	)
}

// unsubscribeClientFromCall removes a client from a call's room
func (h *Hub) unsubscribeClientFromCall(client *Client, trackingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[trackingID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, trackingID)
		}
	}
	client.RemoveSubscription(trackingID)

	h.logger.Debug("client unsubscribed from call",
		"user_id", client.UserID,
		"tracking_id", trackingID,
	)
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetRoomCount returns the number of active rooms
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetClientsInRoom returns the number of clients watching a call
func (h *Hub) GetClientsInRoom(trackingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[trackingID]; ok {
		return len(room)
	}
	return 0
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}
