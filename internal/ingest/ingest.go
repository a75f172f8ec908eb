// Package ingest handles uploaded source files: validation, storage on
// disk, and text extraction. Extraction degrades rather than fails: an
// OCR outage produces an upload with empty text, never an error.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/quilldocs/quill/internal/providers"
	"github.com/quilldocs/quill/internal/store"
	"github.com/quilldocs/quill/internal/types"
)

var (
	// ErrEmptyUpload is returned for zero-byte uploads.
	ErrEmptyUpload = errors.New("uploaded file is empty")

	// ErrUnsupportedFile is returned for file types the pipeline cannot
	// extract text from.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrInvalidPDF is returned when an uploaded PDF fails validation.
	ErrInvalidPDF = errors.New("invalid PDF")
)

// Request is one file upload.
type Request struct {
	Filename string
	Data     []byte
	Actor    types.Actor
}

// Service ingests uploads: the file is stored under the upload directory
// and its text extracted according to type. A nil OCR provider limits
// extraction to plain text files.
type Service struct {
	store     store.Store
	ocr       providers.OCRProvider
	uploadDir string
	logger    *slog.Logger
}

// NewService creates an ingest service.
func NewService(st store.Store, ocr providers.OCRProvider, uploadDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, ocr: ocr, uploadDir: uploadDir, logger: logger}
}

// Ingest validates, stores, and extracts text from one upload. The
// returned record's RawText is empty when extraction was impossible; that
// is not an error, generation then runs against an empty source.
func (s *Service) Ingest(ctx context.Context, req Request) (*types.UploadRecord, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !supportedExt(ext) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}

	id := uuid.New().String()
	record := &types.UploadRecord{
		ID:        id,
		Filename:  filepath.Base(req.Filename),
		UserID:    req.Actor.ID,
		CompanyID: req.Actor.CompanyID,
	}

	path, err := s.persistFile(id, record.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	record.Path = path

	switch ext {
	case ".txt", ".md":
		record.RawText = string(req.Data)
	case ".pdf":
		pageCount, err := api.PageCount(bytes.NewReader(req.Data), nil)
		if err != nil {
			os.RemoveAll(filepath.Dir(path))
			return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
		}
		record.PageCount = pageCount
		record.RawText = s.extractText(ctx, req.Data, record.Filename)
	default:
		// Image formats go straight to OCR.
		record.RawText = s.extractText(ctx, req.Data, record.Filename)
	}

	if err := s.store.PutUpload(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist upload record: %w", err)
	}

	s.logger.Info("upload ingested",
		"upload", id, "filename", record.Filename,
		"pages", record.PageCount, "text_bytes", len(record.RawText))
	return record, nil
}

// persistFile writes the upload to {uploadDir}/{id}/{filename}.
func (s *Service) persistFile(id, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.uploadDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// extractText runs OCR over the document bytes. Failures and a missing
// provider both degrade to empty text.
func (s *Service) extractText(ctx context.Context, data []byte, filename string) string {
	if s.ocr == nil {
		s.logger.Warn("no OCR provider configured, storing upload without text", "filename", filename)
		return ""
	}

	result, err := s.ocr.ExtractText(ctx, data, filename)
	if err != nil || result == nil || !result.Success {
		s.logger.Warn("text extraction failed, storing upload without text",
			"filename", filename, "provider", s.ocr.Name(), "error", err)
		return ""
	}
	return result.Text
}

func supportedExt(ext string) bool {
	switch ext {
	case ".txt", ".md", ".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}
