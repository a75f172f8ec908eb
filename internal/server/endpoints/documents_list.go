package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/internal/auth"
	"github.com/quilldocs/quill/internal/svcctx"
	"github.com/quilldocs/quill/internal/types"
)

// DocumentSummary is the list view of a document.
type DocumentSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Version   int    `json:"version"`
	Pages     int    `json:"pages"`
	Sections  int    `json:"sections"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ListDocumentsResponse is the response for the document list endpoint.
type ListDocumentsResponse struct {
	Documents []DocumentSummary `json:"documents"`
	Total     int               `json:"total"`
}

// ListDocumentsEndpoint handles GET /api/documents.
type ListDocumentsEndpoint struct{}

var _ api.Endpoint = (*ListDocumentsEndpoint)(nil)

func (e *ListDocumentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents", e.handler
}

func (e *ListDocumentsEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		List documents
//	@Description	List the caller's documents, newest first
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	ListDocumentsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/documents [get]
func (e *ListDocumentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	docs, err := st.ListDocumentsByUser(r.Context(), actor.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ListDocumentsResponse{
		Documents: make([]DocumentSummary, 0, len(docs)),
		Total:     len(docs),
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, summarize(doc))
	}

	writeJSON(w, http.StatusOK, resp)
}

func summarize(doc types.DocumentRecord) DocumentSummary {
	return DocumentSummary{
		ID:        doc.ID,
		Title:     doc.Title,
		Version:   doc.Version,
		Pages:     len(doc.Pages),
		Sections:  len(doc.Sections),
		UpdatedAt: doc.UpdatedAt,
	}
}

func (e *ListDocumentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListDocumentsResponse
			if err := client.Get(cmd.Context(), "/api/documents", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
