package metadatastore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sandboxlabs/sandboxd/internal/telemetry"
)

// Config describes how to open the embedded metadata database.
type Config struct {
	// Path is the filesystem location of the sqlite database file.
	Path string
}

// ApplyDefaults fills in a default database path when none is configured.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = filepath.Join(".", "data", "database.db")
	}
}

// Store is the GORM-backed implementation of the metadata store described
// in the Metadata Store component: upsert-by-(session_id, filename),
// point lookups, per-session listing, delete, and aged-out reaping.
type Store struct {
	db *gorm.DB
}

// New opens (creating if necessary) the sqlite database at cfg.Path and
// runs schema auto-migration.
func New(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("metadatastore: creating database directory: %w", err)
	}

	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("metadatastore: opening database: %w", err)
	}

	if err := db.AutoMigrate(&FileRecord{}); err != nil {
		return nil, fmt.Errorf("metadatastore: running migration: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying GORM handle, for tests and advanced callers.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Upsert writes record, overwriting the existing row for
// (SessionID, Filename) if one exists — preserving its CreatedAt — or
// inserting a new row with both timestamps set to now otherwise. The whole
// operation runs in one transaction.
func (s *Store) Upsert(ctx context.Context, record *FileRecord) error {
	ctx, span := telemetry.StartMetadataSpan(ctx, telemetry.SpanMetaInsert, telemetry.SessionID(record.SessionID), telemetry.StoreOperation("upsert"))
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var existing FileRecord
		err := tx.Where("session_id = ? AND filename = ?", record.SessionID, record.Filename).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record.CreatedAt = now
			record.LastModified = now
			return tx.Create(record).Error
		case err != nil:
			return err
		default:
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			record.LastModified = now
			return tx.Model(&existing).
				Select("Filepath", "Size", "ContentType", "OriginalFilename", "ETag", "LastModified").
				Updates(record).Error
		}
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return err
}

// Get returns the record identified by (sessionID, fileID), or
// ErrFileNotFound.
func (s *Store) Get(ctx context.Context, sessionID, fileID string) (*FileRecord, error) {
	ctx, span := telemetry.StartMetadataSpan(ctx, telemetry.SpanMetaLookup, telemetry.SessionID(sessionID), telemetry.FileID(fileID), telemetry.StoreOperation("get"))
	defer span.End()

	var record FileRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND id = ?", sessionID, fileID).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		err = fmt.Errorf("metadatastore: get: %w", err)
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return &record, nil
}

// List returns every record for sessionID, order unspecified.
func (s *Store) List(ctx context.Context, sessionID string) ([]*FileRecord, error) {
	ctx, span := telemetry.StartMetadataSpan(ctx, telemetry.SpanMetaLookup, telemetry.SessionID(sessionID), telemetry.StoreOperation("list"))
	defer span.End()

	var records []*FileRecord
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&records).Error; err != nil {
		err = fmt.Errorf("metadatastore: list: %w", err)
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return records, nil
}

// Delete removes the record identified by (sessionID, fileID). It reports
// true iff a row was actually removed.
func (s *Store) Delete(ctx context.Context, sessionID, fileID string) (bool, error) {
	ctx, span := telemetry.StartMetadataSpan(ctx, telemetry.SpanMetaDelete, telemetry.SessionID(sessionID), telemetry.FileID(fileID), telemetry.StoreOperation("delete"))
	defer span.End()

	result := s.db.WithContext(ctx).
		Where("session_id = ? AND id = ?", sessionID, fileID).
		Delete(&FileRecord{})
	if result.Error != nil {
		telemetry.RecordError(ctx, result.Error)
		return false, fmt.Errorf("metadatastore: delete: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Reap selects every record whose LastModified is older than maxAge,
// deletes them, and returns exactly the set that was deleted — guarded by
// a transaction so the returned set and the deleted set never diverge.
func (s *Store) Reap(ctx context.Context, maxAge time.Duration) ([]*FileRecord, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	var reaped []*FileRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("last_modified < ?", cutoff).Find(&reaped).Error; err != nil {
			return err
		}
		if len(reaped) == 0 {
			return nil
		}

		ids := make([]string, len(reaped))
		for i, r := range reaped {
			ids[i] = r.ID
		}
		return tx.Where("id IN ?", ids).Delete(&FileRecord{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("metadatastore: reap: %w", err)
	}

	return reaped, nil
}
