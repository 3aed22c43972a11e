package events

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const defaultClientBuffer = 16

// HubMetrics receives connection and delivery counts. Implementations must
// be safe for concurrent use.
type HubMetrics interface {
	ClientConnected()
	ClientDisconnected()
	EnvelopesDelivered(eventType string, n int)
	EnvelopesDropped(eventType string, n int)
}

// Client is one open duplex connection registered with the Hub.
type Client struct {
	send chan []byte

	mu     sync.RWMutex
	userID string
}

// Send yields encoded envelopes for the connection writer. It is closed on
// Unregister.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// UserID returns the tag set by an auth frame, if any.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) setUserID(id string) {
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

// BroadcastResult reports how many clients received or missed an envelope.
type BroadcastResult struct {
	Delivered int
	Dropped   int
}

// Hub is the registry of open connections. Delivery is at-most-once: a
// client whose buffer is full misses the envelope.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	bufferSize int
	logger     *zap.Logger
	metrics    HubMetrics
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(logger *zap.Logger, metrics HubMetrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		bufferSize: defaultClientBuffer,
		logger:     logger,
		metrics:    metrics,
	}
}

// Register adds a new client.
func (h *Hub) Register() *Client {
	c := &Client{send: make(chan []byte, h.bufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ClientConnected()
	}
	return c
}

// Unregister removes the client and closes its send channel. Repeated calls
// are no-ops.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok && h.metrics != nil {
		h.metrics.ClientDisconnected()
	}
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast encodes env once and offers it to every client without blocking.
func (h *Hub) Broadcast(env Envelope) (BroadcastResult, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return BroadcastResult{}, err
	}

	var result BroadcastResult
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- payload:
			result.Delivered++
		default:
			result.Dropped++
		}
	}
	h.mu.RUnlock()

	if h.metrics != nil {
		h.metrics.EnvelopesDelivered(string(env.Type), result.Delivered)
		h.metrics.EnvelopesDropped(string(env.Type), result.Dropped)
	}
	if result.Dropped > 0 {
		h.logger.Debug("dropped envelope for slow clients",
			zap.String("type", string(env.Type)),
			zap.Int("dropped", result.Dropped),
		)
	}
	return result, nil
}

// HandleEvent is an EventHandler pushing the event's envelope to all clients.
func (h *Hub) HandleEvent(_ context.Context, event Event) error {
	_, err := h.Broadcast(event.Envelope())
	return err
}

// Subscribe attaches the hub to every event type on d.
func (h *Hub) Subscribe(d Dispatcher) {
	SubscribeAll(d, h.HandleEvent)
}

type inboundFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// HandleInbound processes a frame sent by the client. Only auth frames are
// understood; the tag is informational and does not filter delivery.
func (h *Hub) HandleInbound(c *Client, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.logger.Debug("ignoring malformed ws frame", zap.Error(err))
		return
	}
	if frame.Type == "auth" && frame.UserID != "" {
		c.setUserID(frame.UserID)
		h.logger.Debug("ws client authenticated", zap.String("user_id", frame.UserID))
	}
}
