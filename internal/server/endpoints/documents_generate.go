package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/internal/auth"
	"github.com/quilldocs/quill/internal/generate"
	"github.com/quilldocs/quill/internal/store"
	"github.com/quilldocs/quill/internal/svcctx"
	"github.com/quilldocs/quill/internal/types"
)

// GenerateRequest is the optional body for document generation.
type GenerateRequest struct {
	// Title overrides the configured document title.
	Title string `json:"title,omitempty"`
}

// GenerateEndpoint handles POST /api/documents/generate.
type GenerateEndpoint struct{}

var _ api.Endpoint = (*GenerateEndpoint)(nil)

func (e *GenerateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/generate", e.handler
}

func (e *GenerateEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Generate a document
//	@Description	Generate a full document from the caller's configured pages and sections and their most recent upload.
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GenerateRequest	false	"Generation options"
//	@Success		200	{object}	types.DocumentRecord
//	@Failure		403	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/documents/generate [post]
func (e *GenerateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if r.Body != nil {
		// Body is optional; a decode failure on an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	actor := auth.ActorFromContext(r.Context())
	services := svcctx.ServicesFrom(r.Context())
	if services == nil {
		writeError(w, http.StatusServiceUnavailable, "services not initialized")
		return
	}

	cfg, err := services.Store.GetUserConfig(r.Context(), actor.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cfg == nil {
		cfg = &types.UserConfig{UserID: actor.ID}
	}
	if len(cfg.Pages) == 0 && len(cfg.Sections) == 0 && actor.Role != types.RoleSuperadmin {
		writeError(w, http.StatusForbidden, "Please configure pages/sections first before generating a document")
		return
	}

	var rawText string
	if up, err := services.Store.LatestUploadByUser(r.Context(), actor.ID); err == nil {
		rawText = up.RawText
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := req.Title
	if title == "" {
		title = cfg.Title
	}

	// Prompt provenance is settled before assembly: non-edited units get
	// freshly built prompts, edited units keep their editable prompt.
	pages := append([]types.UnitConfig(nil), cfg.Pages...)
	sections := append([]types.UnitConfig(nil), cfg.Sections...)
	generate.RefreshPromptProvenance(types.RolePage, pages)
	generate.RefreshPromptProvenance(types.RoleSection, sections)

	doc := services.Assembler.Assemble(r.Context(), title, rawText, pages, sections)
	now := time.Now().UTC().Format(time.RFC3339)
	doc.ID = uuid.NewString()
	doc.RawText = rawText
	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.UserID = actor.ID
	doc.CompanyID = actor.CompanyID

	if err := services.Store.PutDocument(r.Context(), &doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (e *GenerateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a document from your configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc types.DocumentRecord
			if err := client.Post(cmd.Context(), "/api/documents/generate", GenerateRequest{Title: title}, &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Document title override")
	return cmd
}
