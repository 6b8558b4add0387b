// Package realtime is the websocket event hub: it authenticates channels,
// routes inbound events to their handlers and delivers outbound events to
// the rooms they are addressed to.
package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/monitoring"
	"github.com/meditrack/coordination/pkg/types"
)

// UserRoom is the room every channel of a user joins
func UserRoom(userID string) string {
	return "user:" + userID
}

// RoleRoom is the room every channel of a role joins
func RoleRoom(role types.UserRole) string {
	return "role:" + string(role)
}

type outbound struct {
	event  string
	frame  []byte
	rooms  []string
	target *Client
}

// Hub owns the set of connected channels and their rooms. All membership
// changes and sends happen on the Run goroutine.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	outbound   chan *outbound
	done       chan struct{}
	stopped    chan struct{}

	connected atomic.Int64
	stopOnce  sync.Once

	metrics *monitoring.MetricsCollector
	logger  *logger.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(metrics *monitoring.MetricsCollector, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan *outbound, 256),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		metrics:    metrics,
		logger:     log,
	}
}

// Run processes registrations and deliveries until Stop
func (h *Hub) Run() {
	defer close(h.stopped)

	for {
		select {
		case c := <-h.register:
			h.add(c)

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.outbound:
			h.deliver(msg)

		case <-h.done:
			for c := range h.clients {
				h.remove(c)
			}
			return
		}
	}
}

// Stop disconnects every channel and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	<-h.stopped
}

// Register adds a channel to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a channel and closes its send queue
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Connected returns the number of open channels
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

// Publish sends an event to every channel in any of rooms. A channel in
// several of the rooms receives the event once.
func (h *Hub) Publish(event string, payload interface{}, rooms ...string) {
	frame, ok := h.encode(event, payload)
	if !ok || len(rooms) == 0 {
		return
	}
	h.enqueue(&outbound{event: event, frame: frame, rooms: rooms})
}

// Unicast sends an event to a single channel
func (h *Hub) Unicast(c *Client, event string, payload interface{}) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.enqueue(&outbound{event: event, frame: frame, target: c})
}

func (h *Hub) enqueue(msg *outbound) {
	select {
	case h.outbound <- msg:
	case <-h.done:
	}
}

func (h *Hub) encode(event string, payload interface{}) ([]byte, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithEvent(event).WithError(err).Error("Failed to encode event payload")
		return nil, false
	}
	frame, err := json.Marshal(types.Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.WithEvent(event).WithError(err).Error("Failed to encode event envelope")
		return nil, false
	}
	return frame, true
}

func (h *Hub) add(c *Client) {
	h.clients[c] = true
	for _, room := range c.rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Client]bool)
			h.rooms[room] = members
		}
		members[c] = true
	}
	h.updateConnected()

	h.logger.WithComponent("realtime").WithFields(map[string]interface{}{
		"client_id": c.id,
		"user_id":   c.claims.UserID,
		"role":      string(c.claims.Role),
	}).Info("Channel connected")
}

func (h *Hub) remove(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	for _, room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(c.send)
	h.updateConnected()

	h.logger.WithComponent("realtime").WithFields(map[string]interface{}{
		"client_id": c.id,
		"user_id":   c.claims.UserID,
	}).Info("Channel disconnected")
}

func (h *Hub) deliver(msg *outbound) {
	var recipients []*Client
	if msg.target != nil {
		if h.clients[msg.target] {
			recipients = append(recipients, msg.target)
		}
	} else {
		seen := make(map[*Client]bool)
		for _, room := range msg.rooms {
			for c := range h.rooms[room] {
				if !seen[c] {
					seen[c] = true
					recipients = append(recipients, c)
				}
			}
		}
	}

	sent := 0
	for _, c := range recipients {
		select {
		case c.send <- msg.frame:
			sent++
		default:
			// a channel that cannot keep up is cut off
			h.logger.WithComponent("realtime").WithField("client_id", c.id).Warn("Send buffer full, dropping channel")
			if h.metrics != nil {
				h.metrics.RecordDroppedChannel()
			}
			h.remove(c)
		}
	}

	if h.metrics != nil {
		h.metrics.RecordOutboundEvent(msg.event, sent)
	}
}

func (h *Hub) updateConnected() {
	h.connected.Store(int64(len(h.clients)))
	if h.metrics != nil {
		h.metrics.SetChannelsConnected(len(h.clients))
	}
}
