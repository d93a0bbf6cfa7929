package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Snapshotter returns the current JSON snapshot of a collection.
// Satisfied by *mirror.Set.
type Snapshotter interface {
	SnapshotJSON(c enum.Collection) (json.RawMessage, error)
}

// Client represents a single WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	collection enum.Collection
	snapshots  Snapshotter
	send       chan []byte
}

// ReadPump only detects disconnects; terminals never send on the socket.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("collection", string(c.collection)).Warn("websocket read")
			}
			break
		}
	}
}

// WritePump writes hub messages to the connection. Each message is sent
// as its own frame since every one is a complete snapshot.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS handles WebSocket requests from clients.
// Endpoint: WS /ws/{collection}
// The hub reads and queues the current snapshot when it registers the
// client. Every replacement broadcast after that reaches the client, so
// the last message it holds is never older than the mirror.
func ServeWS(hub *Hub, snapshots Snapshotter, w http.ResponseWriter, r *http.Request) {
	collection, ok := enum.ParseCollection(chi.URLParam(r, "collection"))
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.WithError(err).Warn("websocket upgrade")
		return
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		collection: collection,
		snapshots:  snapshots,
		send:       make(chan []byte, 256),
	}
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

func initialEvent(snapshots Snapshotter, c enum.Collection) ([]byte, error) {
	payload, err := snapshots.SnapshotJSON(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: enum.EventSnapshot, Collection: c, Payload: payload})
}
