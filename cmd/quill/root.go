package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	bearerToken  string
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Document generation backend with configurable pages and sections",
	Long: `Quill turns a declarative page/section configuration and an uploaded
source file into a complete generated document.

The pipeline includes:
  - Deterministic prompt construction from unit configuration
  - LLM-backed content generation with a placeholder fallback
  - Per-unit and whole-document regeneration with prompt provenance
  - Manual edit preservation and DOCX export`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.quill/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "quill home directory (default: ~/.quill)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&bearerToken, "token", "", "bearer token for api commands (default: $QUILL_TOKEN)",
	)

	// Set output format and token before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
		if bearerToken == "" {
			bearerToken = os.Getenv("QUILL_TOKEN")
		}
		api.SetToken(bearerToken)
	}

	rootCmd.AddCommand(versionCmd)
}
