package transfer

import (
	"time"

	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/rudransh-shrivastava/rider-share/internal/receiver"
	"github.com/rudransh-shrivastava/rider-share/internal/session"
	"github.com/rudransh-shrivastava/rider-share/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 5000

	readBufferSize = 32 * 1024

	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

type Config struct {
	Host string
	Port uint16
	// IdleTimeout closes a session that sends nothing for this long. Zero
	// disables it.
	IdleTimeout time.Duration

	Receiver receiver.Options
	Store    storage.Store
	Notifier events.Notifier
	Registry *session.Registry
	Logger   *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.Notifier == nil {
		c.Notifier = events.Discard
	}
	if c.Registry == nil {
		c.Registry = session.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}
