package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/internal/export"
)

// ExportEndpoint handles POST /api/documents/{id}/export.
type ExportEndpoint struct{}

var _ api.Endpoint = (*ExportEndpoint)(nil)

func (e *ExportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/export", e.handler
}

func (e *ExportEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Export document as DOCX
//	@Description	Render a document as a Word file
//	@Tags			documents
//	@Produce		application/vnd.openxmlformats-officedocument.wordprocessingml.document
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{file}		binary
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/documents/{id}/export [post]
func (e *ExportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	doc, ok := fetchDocument(w, r)
	if !ok {
		return
	}

	data, err := export.Docx(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("export failed: %v", err))
		return
	}

	filename := export.ExportFilename(doc.Title)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *ExportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <document-id>",
		Short: "Export a document as DOCX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, err := client.PostRaw(cmd.Context(), "/api/documents/"+args[0]+"/export")
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = args[0] + ".docx"
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%d bytes)\n", outPath, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file path")
	return cmd
}
