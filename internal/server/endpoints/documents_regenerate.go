package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/internal/generate"
	"github.com/quilldocs/quill/internal/svcctx"
	"github.com/quilldocs/quill/internal/types"
)

// RegenerateUnitRequest targets one page or section for regeneration.
type RegenerateUnitRequest struct {
	Name        string `json:"name"`
	Instruction string `json:"instruction,omitempty"`
}

// RegenerateDocumentRequest regenerates every unit of a document,
// optionally replacing individual unit prompts by name.
type RegenerateDocumentRequest struct {
	PagesPrompts    map[string]string `json:"pages_prompts,omitempty"`
	SectionsPrompts map[string]string `json:"sections_prompts,omitempty"`
}

// regenerateUnitHandler regenerates one unit of the given role and
// persists the updated document.
func regenerateUnitHandler(role types.UnitRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegenerateUnitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "unit name is required")
			return
		}

		doc, ok := fetchDocument(w, r)
		if !ok {
			return
		}

		services := svcctx.ServicesFrom(r.Context())
		if err := services.Coordinator.RegenerateUnitInDocument(r.Context(), doc, role, req.Name, req.Instruction); err != nil {
			if errors.Is(err, generate.ErrUnitNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		if err := services.Store.PutDocument(r.Context(), doc); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, doc)
	}
}

func regenerateUnitCommand(getServerURL func() string, role types.UnitRole, path string) *cobra.Command {
	var instruction string
	cmd := &cobra.Command{
		Use:   "regenerate-" + string(role) + " <document-id> <name>",
		Short: "Regenerate one " + string(role) + " of a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc types.DocumentRecord
			req := RegenerateUnitRequest{Name: args[1], Instruction: instruction}
			if err := client.Post(cmd.Context(), "/api/documents/"+args[0]+path, req, &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVar(&instruction, "instruction", "", "Extra instruction for the rewrite")
	return cmd
}

// RegenerateSectionEndpoint handles POST /api/documents/{id}/regenerate-section.
type RegenerateSectionEndpoint struct{}

var _ api.Endpoint = (*RegenerateSectionEndpoint)(nil)

func (e *RegenerateSectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/regenerate-section", regenerateUnitHandler(types.RoleSection)
}

func (e *RegenerateSectionEndpoint) RequiresAuth() bool { return true }

func (e *RegenerateSectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return regenerateUnitCommand(getServerURL, types.RoleSection, "/regenerate-section")
}

// RegeneratePageEndpoint handles POST /api/documents/{id}/regenerate-page.
type RegeneratePageEndpoint struct{}

var _ api.Endpoint = (*RegeneratePageEndpoint)(nil)

func (e *RegeneratePageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/regenerate-page", regenerateUnitHandler(types.RolePage)
}

func (e *RegeneratePageEndpoint) RequiresAuth() bool { return true }

func (e *RegeneratePageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return regenerateUnitCommand(getServerURL, types.RolePage, "/regenerate-page")
}

// RegenerateDocumentEndpoint handles POST /api/documents/{id}/regenerate-document.
type RegenerateDocumentEndpoint struct{}

var _ api.Endpoint = (*RegenerateDocumentEndpoint)(nil)

func (e *RegenerateDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/regenerate-document", e.handler
}

func (e *RegenerateDocumentEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Regenerate a whole document
//	@Description	Regenerate every page and section through a fresh assembly round. Manually edited units are regenerated under their edited prompt; all other units get freshly built prompts. A rebuilt document that fails validation fails the whole operation and leaves the document unchanged.
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Document ID"
//	@Param			request	body		RegenerateDocumentRequest	false	"Regeneration options"
//	@Success		200	{object}	types.DocumentRecord
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/documents/{id}/regenerate-document [post]
func (e *RegenerateDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req RegenerateDocumentRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	doc, ok := fetchDocument(w, r)
	if !ok {
		return
	}

	services := svcctx.ServicesFrom(r.Context())
	overrides := generate.PromptOverrides{
		Pages:    req.PagesPrompts,
		Sections: req.SectionsPrompts,
	}
	if err := services.Coordinator.RegenerateDocument(r.Context(), doc, overrides); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := services.Store.PutDocument(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (e *RegenerateDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var pagePrompts, sectionPrompts []string
	cmd := &cobra.Command{
		Use:   "regenerate-document <document-id>",
		Short: "Regenerate every unit of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc types.DocumentRecord
			req := RegenerateDocumentRequest{
				PagesPrompts:    parsePromptOverrides(pagePrompts),
				SectionsPrompts: parsePromptOverrides(sectionPrompts),
			}
			if err := client.Post(cmd.Context(), "/api/documents/"+args[0]+"/regenerate-document", req, &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringArrayVar(&pagePrompts, "page-prompt", nil, "Replace a page prompt as name=prompt (repeatable)")
	cmd.Flags().StringArrayVar(&sectionPrompts, "section-prompt", nil, "Replace a section prompt as name=prompt (repeatable)")
	return cmd
}

// parsePromptOverrides splits name=prompt pairs; entries without an
// equals sign are skipped.
func parsePromptOverrides(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, promptText, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		out[name] = promptText
	}
	return out
}
