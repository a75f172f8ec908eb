// Package store persists documents, user configurations, and upload
// records. The primary implementation is SQLite via gorm; a memory
// implementation backs tests.
package store

import (
	"context"
	"errors"

	"github.com/quilldocs/quill/internal/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence boundary for the document pipeline.
type Store interface {
	// Documents.
	GetDocument(ctx context.Context, id string) (*types.DocumentRecord, error)
	PutDocument(ctx context.Context, doc *types.DocumentRecord) error
	ListDocumentsByUser(ctx context.Context, userID string) ([]types.DocumentRecord, error)
	DeleteDocument(ctx context.Context, id string) error

	// Per-user unit configuration.
	GetUserConfig(ctx context.Context, userID string) (*types.UserConfig, error)
	PutUserConfig(ctx context.Context, cfg *types.UserConfig) error

	// Uploaded source files.
	GetUpload(ctx context.Context, id string) (*types.UploadRecord, error)
	PutUpload(ctx context.Context, up *types.UploadRecord) error
	LatestUploadByUser(ctx context.Context, userID string) (*types.UploadRecord, error)

	Close() error
}
