package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/internal/generate"
	"github.com/quilldocs/quill/internal/svcctx"
	"github.com/quilldocs/quill/internal/types"
)

// SaveUnitRequest carries a manual edit to one page or section. Content
// and editable_prompt are both optional; whatever is present is saved.
type SaveUnitRequest struct {
	Name           string `json:"name"`
	Content        any    `json:"content,omitempty"`
	EditablePrompt string `json:"editable_prompt,omitempty"`
}

// saveUnitHandler applies a manual save to one unit of the given role
// and persists the updated document.
func saveUnitHandler(role types.UnitRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveUnitRequest
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
		save := generate.ManualSave{Content: req.Content, EditablePrompt: req.EditablePrompt}
		if err := services.Coordinator.ApplyManualSave(doc, role, req.Name, save); err != nil {
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

func saveUnitCommand(getServerURL func() string, role types.UnitRole, path string) *cobra.Command {
	var content, editablePrompt string
	cmd := &cobra.Command{
		Use:   "save-" + string(role) + " <document-id> <name>",
		Short: "Save a manual edit to one " + string(role),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := SaveUnitRequest{Name: args[1], EditablePrompt: editablePrompt}
			if content != "" {
				req.Content = content
			}
			var doc types.DocumentRecord
			if err := client.Post(cmd.Context(), "/api/documents/"+args[0]+path, req, &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "Replacement content")
	cmd.Flags().StringVar(&editablePrompt, "prompt", "", "Replacement editable prompt")
	return cmd
}

// SaveSectionEndpoint handles POST /api/documents/{id}/save-section.
type SaveSectionEndpoint struct{}

var _ api.Endpoint = (*SaveSectionEndpoint)(nil)

func (e *SaveSectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/save-section", saveUnitHandler(types.RoleSection)
}

func (e *SaveSectionEndpoint) RequiresAuth() bool { return true }

func (e *SaveSectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return saveUnitCommand(getServerURL, types.RoleSection, "/save-section")
}

// SavePageEndpoint handles POST /api/documents/{id}/save-page.
type SavePageEndpoint struct{}

var _ api.Endpoint = (*SavePageEndpoint)(nil)

func (e *SavePageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/save-page", saveUnitHandler(types.RolePage)
}

func (e *SavePageEndpoint) RequiresAuth() bool { return true }

func (e *SavePageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return saveUnitCommand(getServerURL, types.RolePage, "/save-page")
}
