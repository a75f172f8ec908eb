package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/config"
	"github.com/quilldocs/quill/internal/home"
	"github.com/quilldocs/quill/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Quill server",
	Long: `Start the Quill HTTP server.

The server provides:
  - /health and /ready probes
  - /api/documents/* for upload, generation, regeneration and export
  - /api/config for the caller's page/section configuration

Examples:
  quill serve                         # Use ./config.yaml or ~/.quill/config.yaml
  quill serve --config custom.yaml    # Use a specific config file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Fall back to the home config when no --config was given and
		// no ./config.yaml exists.
		cfg := cfgFile
		if cfg == "" && h.ConfigExists() {
			cfg = h.ConfigPath()
		}

		mgr, err := config.NewManager(cfg)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		srv, err := server.New(server.Config{
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
