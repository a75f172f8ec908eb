package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quilldocs/quill/internal/types"
)

// SQLiteStore implements Store over a local SQLite database.
type SQLiteStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	if err := db.AutoMigrate(&documentRow{}, &userConfigRow{}, &uploadRow{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("store ready", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// GetDocument returns the document by id, or ErrNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*types.DocumentRecord, error) {
	var row documentRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
		}
		return nil, err
	}
	return rowToDocument(&row)
}

// PutDocument creates or replaces the document.
func (s *SQLiteStore) PutDocument(ctx context.Context, doc *types.DocumentRecord) error {
	row, err := documentToRow(doc)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// ListDocumentsByUser returns the user's documents, newest first.
func (s *SQLiteStore) ListDocumentsByUser(ctx context.Context, userID string) ([]types.DocumentRecord, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	docs := make([]types.DocumentRecord, 0, len(rows))
	for i := range rows {
		doc, err := rowToDocument(&rows[i])
		if err != nil {
			s.logger.Warn("skipping undecodable document", "id", rows[i].ID, "error", err)
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// DeleteDocument removes the document, or returns ErrNotFound.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&documentRow{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return nil
}

// GetUserConfig returns the user's unit configuration, or ErrNotFound.
func (s *SQLiteStore) GetUserConfig(ctx context.Context, userID string) (*types.UserConfig, error) {
	var row userConfigRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: config for user %s", ErrNotFound, userID)
		}
		return nil, err
	}
	return rowToUserConfig(&row)
}

// PutUserConfig creates or replaces the user's unit configuration.
func (s *SQLiteStore) PutUserConfig(ctx context.Context, cfg *types.UserConfig) error {
	row, err := userConfigToRow(cfg)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// GetUpload returns the upload record by id, or ErrNotFound.
func (s *SQLiteStore) GetUpload(ctx context.Context, id string) (*types.UploadRecord, error) {
	var row uploadRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: upload %s", ErrNotFound, id)
		}
		return nil, err
	}
	return rowToUpload(&row), nil
}

// PutUpload creates or replaces the upload record.
func (s *SQLiteStore) PutUpload(ctx context.Context, up *types.UploadRecord) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(uploadToRow(up)).Error
}

// LatestUploadByUser returns the user's most recent upload, or
// ErrNotFound when they have none.
func (s *SQLiteStore) LatestUploadByUser(ctx context.Context, userID string) (*types.UploadRecord, error) {
	var row uploadRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no uploads for user %s", ErrNotFound, userID)
		}
		return nil, err
	}
	return rowToUpload(&row), nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Verify interface
var _ Store = (*SQLiteStore)(nil)
