package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Subscribe messages are
	// small; transcript frames only flow server-to-client.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound events.
	Send chan domain.StreamEvent

	// User ID for this client.
	UserID uuid.UUID

	// subscriptions maps tracking IDs to true.
	subscriptions map[string]bool

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// mu protects subscriptions
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new relay client
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, logger *slog.Logger) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan domain.StreamEvent, 256),
		UserID:        userID,
		subscriptions: make(map[string]bool),
		logger:        logger.With("user_id", userID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// AddSubscription marks the client as watching a call
func (c *Client) AddSubscription(trackingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[trackingID] = true
}

// RemoveSubscription stops the client from watching a call
func (c *Client) RemoveSubscription(trackingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, trackingID)
}

// HasSubscription checks if the client is watching a call
func (c *Client) HasSubscription(trackingID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[trackingID]
}

// GetSubscriptions returns a copy of all subscriptions
func (c *Client) GetSubscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]string, 0, len(c.subscriptions))
	for trackingID := range c.subscriptions {
		subs = append(subs, trackingID)
	}
	return subs
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps events from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeEvent(event); err != nil {
				c.logger.Error("failed to write event", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeEvent forwards the original backend frame unchanged when it is
// present, so dashboards see exactly what the backend sent.
func (c *Client) writeEvent(event domain.StreamEvent) error {
	if len(event.Frame) > 0 {
		return c.Conn.WriteMessage(websocket.TextMessage, event.Frame)
	}

	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(map[string]string{"type": string(event.Kind)}); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type       string `json:"type"`
	TrackingID string `json:"trackingId"`
}

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		if msg.TrackingID == "" {
			c.logger.Warn("subscribe request missing tracking id")
			return
		}
		c.Hub.subscribeClientToCall(c, msg.TrackingID)

	case "unsubscribe":
		c.Hub.unsubscribeClientFromCall(c, msg.TrackingID)

	case "ping":
		// Client-side keep-alive, respond with pong
		c.sendPong()

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) sendPong() {
	select {
	case c.Send <- domain.StreamEvent{Kind: domain.KindPong}:
	default:
		// Channel full, skip pong response
	}
}
