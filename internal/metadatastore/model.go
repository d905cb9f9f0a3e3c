// Package metadatastore persists file records produced by executions and
// direct uploads, keyed by session id and basename.
package metadatastore

import (
	"errors"
	"time"
)

// ErrFileNotFound is returned by Get when no record matches.
var ErrFileNotFound = errors.New("metadatastore: file not found")

// FileRecord is the persisted row for a single tracked file.
type FileRecord struct {
	ID               string `gorm:"primaryKey;size:21"`
	SessionID        string `gorm:"size:21;not null;uniqueIndex:idx_session_filename;index:idx_session_id"`
	Filename         string `gorm:"not null;uniqueIndex:idx_session_filename"`
	Filepath         string `gorm:"not null"`
	Size             int64  `gorm:"not null"`
	ContentType      string `gorm:"not null"`
	OriginalFilename string `gorm:"not null"`
	ETag             string `gorm:"not null"`
	CreatedAt        time.Time
	LastModified     time.Time `gorm:"index:idx_last_modified"`
}

// TableName pins the GORM table name rather than relying on pluralization.
func (FileRecord) TableName() string {
	return "files"
}
