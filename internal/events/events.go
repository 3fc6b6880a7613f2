// Package events carries session lifecycle notifications from the transfer
// listener to whoever is watching it (the UI stream, the history store,
// the log).
package events

import (
	"sync"
	"time"

	"github.com/rudransh-shrivastava/rider-share/internal/session"
)

type Kind string

const (
	KindClientConnected    Kind = "clientConnected"
	KindClientDisconnected Kind = "clientDisconnected"
	KindFileReceived       Kind = "fileReceived"
	KindError              Kind = "error"
)

type ErrorKind string

const (
	ErrDecodeFailed   ErrorKind = "decode_failed"
	ErrWriteFailed    ErrorKind = "write_failed"
	ErrBufferOverflow ErrorKind = "buffer_overflow"
	ErrSocket         ErrorKind = "socket_error"
)

// ReceivedFile records one completed transfer. It is emitted once and not
// retained by the listener.
type ReceivedFile struct {
	Path            string    `json:"path"`
	SourceSessionID string    `json:"source_session_id"`
	CompletedAt     time.Time `json:"completed_at"`
	Size            int64     `json:"size"`
	SHA256          string    `json:"sha256"`
}

type Event struct {
	Kind      Kind                   `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Session   *session.ClientSession `json:"session,omitempty"`
	File      *ReceivedFile          `json:"file,omitempty"`
	ErrorKind ErrorKind              `json:"error,omitempty"`
	Detail    string                 `json:"detail,omitempty"`
	At        time.Time              `json:"at"`
}

func ClientConnected(s session.ClientSession) Event {
	return Event{
		Kind:      KindClientConnected,
		SessionID: s.ID,
		Session:   &s,
		At:        time.Now(),
	}
}

func ClientDisconnected(sessionID string) Event {
	return Event{
		Kind:      KindClientDisconnected,
		SessionID: sessionID,
		At:        time.Now(),
	}
}

func FileReceived(f ReceivedFile) Event {
	return Event{
		Kind:      KindFileReceived,
		SessionID: f.SourceSessionID,
		File:      &f,
		At:        time.Now(),
	}
}

// Error builds an error event. cause may be nil.
func Error(kind ErrorKind, sessionID string, cause error) Event {
	e := Event{
		Kind:      KindError,
		SessionID: sessionID,
		ErrorKind: kind,
		At:        time.Now(),
	}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// Notifier receives lifecycle events. Implementations must be safe for
// concurrent use; events from one session arrive in order, events from
// different sessions may interleave arbitrarily.
type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Discard drops every event.
var Discard Notifier = NotifierFunc(func(Event) {})

// Bus fans events out to its subscribers in subscription order.
type Bus struct {
	mu    sync.RWMutex
	sinks []Notifier
}

func NewBus(sinks ...Notifier) *Bus {
	return &Bus{sinks: sinks}
}

func (b *Bus) Subscribe(n Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, n)
}

func (b *Bus) Notify(e Event) {
	b.mu.RLock()
	sinks := make([]Notifier, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		s.Notify(e)
	}
}

// ChanSink delivers events on a buffered channel. Notify blocks once the
// buffer is full, so the consumer must keep draining C.
type ChanSink struct {
	C chan Event
}

func NewChanSink(size int) *ChanSink {
	return &ChanSink{C: make(chan Event, size)}
}

func (c *ChanSink) Notify(e Event) {
	c.C <- e
}
