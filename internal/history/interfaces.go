package history

import (
	"context"
	"time"

	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/rudransh-shrivastava/rider-share/internal/session"
)

// Repository defines the history operations used by the sink and the CLI.
type Repository interface {
	RecordConnected(ctx context.Context, s session.ClientSession) error
	RecordDisconnected(ctx context.Context, sessionID string, at time.Time) error
	RecordError(ctx context.Context, sessionID, detail string) error
	RecordFile(ctx context.Context, f events.ReceivedFile) (FileRecord, error)
	Files(ctx context.Context, limit int) ([]FileRecord, error)
	Sessions(ctx context.Context, limit int) ([]SessionRecord, error)
}

var _ Repository = (*Store)(nil)
