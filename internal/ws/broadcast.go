// Package ws streams listener events to WebSocket clients.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/rudransh-shrivastava/rider-share/internal/session"
	"github.com/sirupsen/logrus"
)

const sendBuffer = 64

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// SnapshotFunc returns the sessions a new client starts from.
type SnapshotFunc func() []session.ClientSession

// Broadcaster forwards every event to the connected clients. A client whose
// queue is full is disconnected.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	snapshot SnapshotFunc
	logger   *logrus.Logger
}

func NewBroadcaster(snapshot SnapshotFunc, logger *logrus.Logger) *Broadcaster {
	if snapshot == nil {
		snapshot = func() []session.ClientSession { return nil }
	}
	return &Broadcaster{
		clients:  make(map[*client]struct{}),
		snapshot: snapshot,
		logger:   logger,
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	data, err := json.Marshal(Message{Type: MsgSnapshot, Sessions: b.snapshot()})
	if err != nil {
		b.logger.WithError(err).Error("Failed to encode snapshot")
	} else {
		c.send <- data
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

func (b *Broadcaster) Notify(e events.Event) {
	data, err := json.Marshal(Message{Type: MsgEvent, Event: &e})
	if err != nil {
		b.logger.WithError(err).Error("Failed to encode event")
		return
	}

	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.logger.WithField("remote", c.conn.RemoteAddr().String()).Warn("Event client too slow, disconnecting")
		b.RemoveClient(c)
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		delete(b.clients, c)
		close(c.send)
	}
}

var _ events.Notifier = (*Broadcaster)(nil)
