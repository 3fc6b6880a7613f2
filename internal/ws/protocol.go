package ws

import (
	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/rudransh-shrivastava/rider-share/internal/session"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgEvent    MessageType = "event"
)

type Message struct {
	Type     MessageType             `json:"type"`
	Sessions []session.ClientSession `json:"sessions,omitempty"`
	Event    *events.Event           `json:"event,omitempty"`
}
