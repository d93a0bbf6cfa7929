package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/sirupsen/logrus"
)

// Event is a WebSocket message carrying one collection snapshot.
type Event struct {
	Type       string          `json:"type"`
	Collection enum.Collection `json:"collection"`
	Payload    json.RawMessage `json:"payload"`
}

// collectionEvent routes an event to one collection room.
type collectionEvent struct {
	Collection enum.Collection
	Event      Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by collection
	rooms map[enum.Collection]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *collectionEvent

	log logrus.FieldLogger
	mu  sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		rooms:      make(map[enum.Collection]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *collectionEvent, 256),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			// The snapshot is read on the hub loop so no broadcast can slip
			// between it and the client joining the room.
			if client.snapshots != nil {
				initial, err := initialEvent(client.snapshots, client.collection)
				if err != nil {
					h.log.WithError(err).WithField("collection", string(client.collection)).Error("encode initial snapshot")
					close(client.send)
					continue
				}
				client.send <- initial
			}
			h.mu.Lock()
			if h.rooms[client.collection] == nil {
				h.rooms[client.collection] = make(map[*Client]bool)
			}
			h.rooms[client.collection][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.WithError(err).Error("encode ws event")
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Collection] {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.log.WithField("collection", string(event.Collection)).Warn("dropping slow ws client")
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.collection]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.collection)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, c)
	}
}

// BroadcastSnapshot sends a collection snapshot to every client watching
// that collection. Its signature matches mirror.Set.Broadcast.
func (h *Hub) BroadcastSnapshot(c enum.Collection, payload json.RawMessage) {
	h.broadcast <- &collectionEvent{
		Collection: c,
		Event:      Event{Type: enum.EventSnapshot, Collection: c, Payload: payload},
	}
}

// ClientCount returns the number of clients watching c.
func (h *Hub) ClientCount(c enum.Collection) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[c])
}
