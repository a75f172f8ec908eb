package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quilldocs/quill/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage quill configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Long: `Write a default configuration file.

The generated file references secrets via ${ENV_VAR} placeholders, so it
is safe to commit. Defaults to ./config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
