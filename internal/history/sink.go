package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// Sink persists lifecycle events. Write failures are logged and never
// reach the listener.
type Sink struct {
	repo   Repository
	logger *logrus.Logger
}

func NewSink(repo Repository, logger *logrus.Logger) *Sink {
	return &Sink{repo: repo, logger: logger}
}

func (s *Sink) Notify(e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch e.Kind {
	case events.KindClientConnected:
		if e.Session != nil {
			err = s.repo.RecordConnected(ctx, *e.Session)
		}
	case events.KindClientDisconnected:
		err = s.repo.RecordDisconnected(ctx, e.SessionID, e.At)
	case events.KindFileReceived:
		if e.File != nil {
			_, err = s.repo.RecordFile(ctx, *e.File)
		}
	case events.KindError:
		detail := string(e.ErrorKind)
		if e.Detail != "" {
			detail = fmt.Sprintf("%s: %s", e.ErrorKind, e.Detail)
		}
		err = s.repo.RecordError(ctx, e.SessionID, detail)
	}

	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"session": e.SessionID,
			"type":    e.Kind,
		}).Error("Failed to record history")
	}
}
