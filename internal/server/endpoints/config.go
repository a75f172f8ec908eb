package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/internal/auth"
	"github.com/quilldocs/quill/internal/prompt"
	"github.com/quilldocs/quill/internal/store"
	"github.com/quilldocs/quill/internal/svcctx"
	"github.com/quilldocs/quill/internal/types"
)

// GetConfigEndpoint handles GET /api/config.
type GetConfigEndpoint struct{}

var _ api.Endpoint = (*GetConfigEndpoint)(nil)

func (e *GetConfigEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/config", e.handler
}

func (e *GetConfigEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Get unit configuration
//	@Description	Get the caller's page and section configuration
//	@Tags			config
//	@Produce		json
//	@Success		200	{object}	types.UserConfig
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/config [get]
func (e *GetConfigEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	cfg, err := st.GetUserConfig(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, types.UserConfig{
				ID:       actor.ID,
				UserID:   actor.ID,
				Pages:    []types.UnitConfig{},
				Sections: []types.UnitConfig{},
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

func (e *GetConfigEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "config-get",
		Short: "Get your page and section configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var cfg types.UserConfig
			if err := client.Get(cmd.Context(), "/api/config", &cfg); err != nil {
				return err
			}
			return api.Output(cfg)
		},
	}
}

// PutConfigEndpoint handles PUT /api/config.
type PutConfigEndpoint struct{}

var _ api.Endpoint = (*PutConfigEndpoint)(nil)

func (e *PutConfigEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/config", e.handler
}

func (e *PutConfigEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Save unit configuration
//	@Description	Replace the caller's page and section configuration. Generated prompts are refreshed for units whose fields changed; manually edited prompts are kept.
//	@Tags			config
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.UserConfig	true	"Configuration"
//	@Success		200	{object}	types.UserConfig
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/config [put]
func (e *PutConfigEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var cfg types.UserConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := auth.ActorFromContext(r.Context())
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	cfg.ID = actor.ID
	cfg.UserID = actor.ID
	cfg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	refreshPrompts(cfg.Pages, types.RolePage)
	refreshPrompts(cfg.Sections, types.RoleSection)

	if err := st.PutUserConfig(r.Context(), &cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// refreshPrompts rebuilds the generated prompt for every unit whose
// fields no longer match it. Prompt building is deterministic, so an
// unchanged unit keeps its prompt byte for byte. Manually edited
// prompts are left alone.
func refreshPrompts(units []types.UnitConfig, role types.UnitRole) {
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range units {
		units[i].Role = role
		if units[i].ManuallyEdited {
			continue
		}
		if fresh := prompt.Build(units[i]); units[i].GeneratedPrompt != fresh {
			units[i].GeneratedPrompt = fresh
			units[i].PromptLastUpdatedAt = now
		}
	}
}

func (e *PutConfigEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "config-set <config.json>",
		Short: "Replace your page and section configuration from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var cfg types.UserConfig
			if err := json.Unmarshal(data, &cfg); err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var saved types.UserConfig
			if err := client.Put(cmd.Context(), "/api/config", cfg, &saved); err != nil {
				return err
			}
			return api.Output(saved)
		},
	}
}
