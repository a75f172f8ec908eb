package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/quilldocs/quill/internal/types"
)

// documentRow is the SQLite shape of a DocumentRecord. Unit lists are
// stored as JSON blobs; the queryable fields get their own columns.
type documentRow struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	RawText   string
	Pages     datatypes.JSON
	Sections  datatypes.JSON
	Version   int
	UserID    string `gorm:"index"`
	CompanyID string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (documentRow) TableName() string { return "documents" }

type userConfigRow struct {
	ID           string `gorm:"primaryKey"` // Owning user id
	UserID       string `gorm:"index"`
	Title        string
	DocumentName string
	AuthorRole   string
	Pages        datatypes.JSON
	Sections     datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userConfigRow) TableName() string { return "user_configs" }

type uploadRow struct {
	ID        string `gorm:"primaryKey"`
	Filename  string
	Path      string
	RawText   string
	PageCount int
	UserID    string `gorm:"index"`
	CompanyID string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (uploadRow) TableName() string { return "uploads" }

func documentToRow(doc *types.DocumentRecord) (*documentRow, error) {
	pages, err := json.Marshal(doc.Pages)
	if err != nil {
		return nil, fmt.Errorf("encode pages: %w", err)
	}
	sections, err := json.Marshal(doc.Sections)
	if err != nil {
		return nil, fmt.Errorf("encode sections: %w", err)
	}
	return &documentRow{
		ID:        doc.ID,
		Title:     doc.Title,
		RawText:   doc.RawText,
		Pages:     datatypes.JSON(pages),
		Sections:  datatypes.JSON(sections),
		Version:   doc.Version,
		UserID:    doc.UserID,
		CompanyID: doc.CompanyID,
	}, nil
}

func rowToDocument(row *documentRow) (*types.DocumentRecord, error) {
	doc := &types.DocumentRecord{
		ID:        row.ID,
		Title:     row.Title,
		RawText:   row.RawText,
		Version:   row.Version,
		UserID:    row.UserID,
		CompanyID: row.CompanyID,
		CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: row.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if len(row.Pages) > 0 {
		if err := json.Unmarshal(row.Pages, &doc.Pages); err != nil {
			return nil, fmt.Errorf("decode pages for %s: %w", row.ID, err)
		}
	}
	if len(row.Sections) > 0 {
		if err := json.Unmarshal(row.Sections, &doc.Sections); err != nil {
			return nil, fmt.Errorf("decode sections for %s: %w", row.ID, err)
		}
	}
	return doc, nil
}

func userConfigToRow(cfg *types.UserConfig) (*userConfigRow, error) {
	pages, err := json.Marshal(cfg.Pages)
	if err != nil {
		return nil, fmt.Errorf("encode pages: %w", err)
	}
	sections, err := json.Marshal(cfg.Sections)
	if err != nil {
		return nil, fmt.Errorf("encode sections: %w", err)
	}
	return &userConfigRow{
		ID:           cfg.ID,
		UserID:       cfg.UserID,
		Title:        cfg.Title,
		DocumentName: cfg.DocumentName,
		AuthorRole:   cfg.AuthorRole,
		Pages:        datatypes.JSON(pages),
		Sections:     datatypes.JSON(sections),
	}, nil
}

func rowToUserConfig(row *userConfigRow) (*types.UserConfig, error) {
	cfg := &types.UserConfig{
		ID:           row.ID,
		UserID:       row.UserID,
		Title:        row.Title,
		DocumentName: row.DocumentName,
		AuthorRole:   row.AuthorRole,
		UpdatedAt:    row.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if len(row.Pages) > 0 {
		if err := json.Unmarshal(row.Pages, &cfg.Pages); err != nil {
			return nil, fmt.Errorf("decode pages for %s: %w", row.ID, err)
		}
	}
	if len(row.Sections) > 0 {
		if err := json.Unmarshal(row.Sections, &cfg.Sections); err != nil {
			return nil, fmt.Errorf("decode sections for %s: %w", row.ID, err)
		}
	}
	return cfg, nil
}

func uploadToRow(up *types.UploadRecord) *uploadRow {
	return &uploadRow{
		ID:        up.ID,
		Filename:  up.Filename,
		Path:      up.Path,
		RawText:   up.RawText,
		PageCount: up.PageCount,
		UserID:    up.UserID,
		CompanyID: up.CompanyID,
	}
}

func rowToUpload(row *uploadRow) *types.UploadRecord {
	return &types.UploadRecord{
		ID:        row.ID,
		Filename:  row.Filename,
		Path:      row.Path,
		RawText:   row.RawText,
		PageCount: row.PageCount,
		UserID:    row.UserID,
		CompanyID: row.CompanyID,
		CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: row.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
