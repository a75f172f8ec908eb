package ingest

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/quilldocs/quill/internal/providers"
	"github.com/quilldocs/quill/internal/store"
	"github.com/quilldocs/quill/internal/types"
)

func testService(t *testing.T, ocr providers.OCRProvider) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewService(st, ocr, t.TempDir(), nil), st
}

func TestIngestPlainText(t *testing.T) {
	svc, st := testService(t, nil)

	rec, err := svc.Ingest(context.Background(), Request{
		Filename: "notes.txt",
		Data:     []byte("hello world"),
		Actor:    types.Actor{ID: "user-1", CompanyID: "acme"},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if rec.RawText != "hello world" {
		t.Errorf("raw text = %q", rec.RawText)
	}
	if rec.UserID != "user-1" || rec.CompanyID != "acme" {
		t.Errorf("ownership = %q/%q", rec.UserID, rec.CompanyID)
	}

	// The file landed on disk.
	if _, err := os.Stat(rec.Path); err != nil {
		t.Errorf("upload not persisted: %v", err)
	}

	// And the record is in the store.
	stored, err := st.GetUpload(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("stored record missing: %v", err)
	}
	if stored.RawText != "hello world" {
		t.Errorf("stored text = %q", stored.RawText)
	}
}

func TestIngestImageUsesOCR(t *testing.T) {
	ocr := providers.NewMockOCRProvider()
	ocr.ResponseText = "extracted text"
	svc, _ := testService(t, ocr)

	rec, err := svc.Ingest(context.Background(), Request{
		Filename: "scan.png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
		Actor:    types.Actor{ID: "user-1"},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if rec.RawText != "extracted text" {
		t.Errorf("raw text = %q", rec.RawText)
	}
	if ocr.RequestCount() != 1 {
		t.Errorf("ocr called %d times", ocr.RequestCount())
	}
}

func TestIngestOCRFailureDegrades(t *testing.T) {
	ocr := providers.NewMockOCRProvider()
	ocr.ShouldFail = true
	svc, _ := testService(t, ocr)

	rec, err := svc.Ingest(context.Background(), Request{
		Filename: "scan.png",
		Data:     []byte{0x89},
		Actor:    types.Actor{ID: "user-1"},
	})
	if err != nil {
		t.Fatalf("ocr failure must not fail the upload: %v", err)
	}
	if rec.RawText != "" {
		t.Errorf("raw text = %q, want empty", rec.RawText)
	}
}

func TestIngestNoOCRProvider(t *testing.T) {
	svc, _ := testService(t, nil)

	rec, err := svc.Ingest(context.Background(), Request{
		Filename: "scan.png",
		Data:     []byte{0x89},
		Actor:    types.Actor{ID: "user-1"},
	})
	if err != nil {
		t.Fatalf("missing provider must not fail the upload: %v", err)
	}
	if rec.RawText != "" {
		t.Errorf("raw text = %q, want empty", rec.RawText)
	}
}

func TestIngestRejections(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()

	t.Run("empty upload", func(t *testing.T) {
		_, err := svc.Ingest(ctx, Request{Filename: "a.txt"})
		if !errors.Is(err, ErrEmptyUpload) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := svc.Ingest(ctx, Request{Filename: "a.exe", Data: []byte("x")})
		if !errors.Is(err, ErrUnsupportedFile) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("invalid pdf", func(t *testing.T) {
		_, err := svc.Ingest(ctx, Request{Filename: "a.pdf", Data: []byte("not a pdf")})
		if !errors.Is(err, ErrInvalidPDF) {
			t.Errorf("err = %v", err)
		}
	})
}
