// Package realtime pushes ephemeral events to connected websocket clients.
// Delivery is best-effort: nothing is queued for offline clients and nothing is replayed.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Envelope is one event on its way to local clients, possibly via the bus.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	// Room limits delivery to clients joined to it. Empty means everyone.
	Room string `json:"room,omitempty"`
	// Exclude skips the client with this id, used when relaying a client's own frame.
	Exclude string `json:"exclude,omitempty"`
}

// Bus carries envelopes between server instances.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context) (<-chan Envelope, error)
}

const (
	defaultRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// Hub tracks connected clients and the rooms they joined.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	bus     Bus

	// subscribed is set while Run holds a live bus subscription.
	// Until then envelopes are delivered locally instead of published.
	subscribed atomic.Bool
	retryDelay time.Duration
}

// NewHub creates a hub. bus may be nil for single-instance deployments.
func NewHub(bus Bus) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		bus:        bus,
		retryDelay: defaultRetryDelay,
	}
}

// Run delivers envelopes arriving from the bus until ctx is cancelled.
// A failed or lost subscription is retried with exponential backoff.
func (h *Hub) Run(ctx context.Context) error {
	if h.bus == nil {
		<-ctx.Done()
		return nil
	}

	delay := h.retryDelay
	for {
		envelopes, err := h.bus.Subscribe(ctx)
		if err == nil {
			delay = h.retryDelay
			h.subscribed.Store(true)
			logrus.Info("Realtime hub subscribed to event bus")
			h.consume(ctx, envelopes)
			h.subscribed.Store(false)
			if ctx.Err() != nil {
				return nil
			}
			logrus.Warn("Event bus subscription closed, resubscribing")
		} else {
			if ctx.Err() != nil {
				return nil
			}
			logrus.WithError(err).Warnf("Event bus subscribe failed, retrying in %s", delay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (h *Hub) consume(ctx context.Context, envelopes <-chan Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-envelopes:
			if !ok {
				return
			}
			h.deliver(env)
		}
	}
}

// Broadcast sends event to every connected client.
func (h *Hub) Broadcast(event string, payload interface{}) {
	h.dispatch(event, payload, "", "")
}

// SendTo sends event to the clients joined to room.
func (h *Hub) SendTo(room, event string, payload interface{}) {
	if room == "" {
		return
	}
	h.dispatch(event, payload, room, "")
}

func (h *Hub) relay(from *Client, event string, payload json.RawMessage) {
	h.publish(Envelope{Event: event, Payload: payload, Exclude: from.id})
}

func (h *Hub) dispatch(event string, payload interface{}, room, exclude string) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to encode realtime payload")
		return
	}
	h.publish(Envelope{Event: event, Payload: raw, Room: room, Exclude: exclude})
}

func (h *Hub) publish(env Envelope) {
	if h.bus != nil && h.subscribed.Load() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := h.bus.Publish(ctx, env)
		if err == nil {
			return
		}
		logrus.WithError(err).WithField("event", env.Event).Warn("Event bus publish failed, delivering locally")
	}
	h.deliver(env)
}

// deliver writes env to matching local clients. Clients whose buffers are full are dropped.
func (h *Hub) deliver(env Envelope) {
	frame, err := json.Marshal(Frame{Event: env.Event, Payload: env.Payload})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode realtime frame")
		return
	}

	var slow []*Client
	h.mu.RLock()
	targets := h.clients
	if env.Room != "" {
		targets = h.rooms[env.Room]
	}
	for c := range targets {
		if c.id == env.Exclude {
			continue
		}
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logrus.WithField("client", c.id).Warn("Dropping slow realtime client")
		h.Unregister(c)
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes c from the hub and its rooms and closes its send buffer. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for _, room := range c.rooms {
		members := h.rooms[room]
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
}

// Join adds c to room. Only an authenticated client may join the room named after its own user id.
func (h *Hub) Join(c *Client, room string) bool {
	if c.userID == "" || room != c.userID {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	if _, joined := members[c]; !joined {
		members[c] = struct{}{}
		c.rooms = append(c.rooms, room)
	}
	return true
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
