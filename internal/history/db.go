// Package history keeps a sqlite record of sessions and received files.
package history

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type SessionRecord struct {
	ID             uint   `gorm:"primaryKey" json:"-"`
	SessionID      string `gorm:"index;not null" json:"session_id"`
	RemoteAddress  string `json:"remote_address"`
	RemotePort     int    `json:"remote_port"`
	ConnectedAt    int64  `gorm:"index" json:"connected_at"`
	DisconnectedAt int64  `json:"disconnected_at,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

type FileRecord struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Path        string `gorm:"not null" json:"path"`
	SessionID   string `gorm:"index" json:"session_id"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
	CompletedAt int64  `gorm:"index" json:"completed_at"`
}

// Open opens (or creates) the history database at path and migrates it.
// ":memory:" gives a private in-memory database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// sqlite serialises writers anyway, and an in-memory database only
	// exists on the connection that created it.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&SessionRecord{}, &FileRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
