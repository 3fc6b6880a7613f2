package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/rudransh-shrivastava/rider-share/internal/session"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RecordConnected(ctx context.Context, cs session.ClientSession) error {
	return s.db.WithContext(ctx).Create(&SessionRecord{
		SessionID:     cs.ID,
		RemoteAddress: cs.RemoteAddress,
		RemotePort:    int(cs.RemotePort),
		ConnectedAt:   cs.ConnectedAt.UnixNano(),
	}).Error
}

// openSession returns the newest record for sessionID that has not been
// closed yet.
func (s *Store) openSession(ctx context.Context, sessionID string) (SessionRecord, error) {
	var rec SessionRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND disconnected_at = 0", sessionID).
		Order("connected_at DESC").
		First(&rec).Error
	return rec, err
}

// RecordDisconnected stamps the open record for sessionID. A session that was
// never recorded is ignored.
func (s *Store) RecordDisconnected(ctx context.Context, sessionID string, at time.Time) error {
	rec, err := s.openSession(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&rec).Update("disconnected_at", at.UnixNano()).Error
}

func (s *Store) RecordError(ctx context.Context, sessionID, detail string) error {
	rec, err := s.openSession(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&rec).Update("last_error", detail).Error
}

func (s *Store) RecordFile(ctx context.Context, f events.ReceivedFile) (FileRecord, error) {
	rec := FileRecord{
		ID:          uuid.NewString(),
		Path:        f.Path,
		SessionID:   f.SourceSessionID,
		Size:        f.Size,
		SHA256:      f.SHA256,
		CompletedAt: f.CompletedAt.UnixNano(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return FileRecord{}, err
	}
	return rec, nil
}

// Files returns the newest received files first. limit <= 0 returns all.
func (s *Store) Files(ctx context.Context, limit int) ([]FileRecord, error) {
	var files []FileRecord
	q := s.db.WithContext(ctx).Order("completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// Sessions returns the newest sessions first. limit <= 0 returns all.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	var sessions []SessionRecord
	q := s.db.WithContext(ctx).Order("connected_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
