package events

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// LogSink writes every event to a logrus logger.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Notify(e Event) {
	entry := l.logger.WithField("session", e.SessionID)

	switch e.Kind {
	case KindClientConnected:
		entry.Info("Client connected")
	case KindClientDisconnected:
		entry.Info("Client disconnected")
	case KindFileReceived:
		entry.WithFields(logrus.Fields{
			"path": e.File.Path,
			"size": humanize.Bytes(uint64(e.File.Size)),
		}).Info("File received")
	case KindError:
		entry.WithFields(logrus.Fields{
			"kind":   e.ErrorKind,
			"detail": e.Detail,
		}).Warn("Transfer error")
	default:
		entry.WithField("type", e.Kind).Debug("Unhandled event type")
	}
}
