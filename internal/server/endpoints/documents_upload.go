package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/internal/auth"
	"github.com/quilldocs/quill/internal/ingest"
	"github.com/quilldocs/quill/internal/svcctx"
)

// UploadResponse describes a stored source upload.
type UploadResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	PageCount int    `json:"page_count,omitempty"`
	TextBytes int    `json:"text_bytes"`
}

// UploadEndpoint handles POST /api/documents/upload with a multipart file.
type UploadEndpoint struct{}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/upload", e.handler
}

func (e *UploadEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Upload a source file
//	@Description	Upload the source material used for document generation. Text files are read directly; PDFs and images go through OCR.
//	@Tags			documents
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Source file (.txt, .md, .pdf, or image)"
//	@Success		200	{object}	UploadResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/documents/upload [post]
func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 50 << 20 // 50MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	svc := svcctx.IngestFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "upload service not initialized")
		return
	}
	actor := auth.ActorFromContext(r.Context())

	up, err := svc.Ingest(r.Context(), ingest.Request{
		Filename: header.Filename,
		Data:     data,
		Actor:    *actor,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrEmptyUpload) || errors.Is(err, ingest.ErrUnsupportedFile) || errors.Is(err, ingest.ErrInvalidPDF) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		ID:        up.ID,
		Filename:  up.Filename,
		PageCount: up.PageCount,
		TextBytes: len(up.RawText),
	})
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a source file for generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.PostFile(cmd.Context(), "/api/documents/upload", "file", filepath.Base(args[0]), data, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
