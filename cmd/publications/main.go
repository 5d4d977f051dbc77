// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the publications CLI. Each
// subcommand lives in its own file and registers itself in init.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/publications/internal/config"
	"github.com/pdiddy/publications/internal/logging"
	"github.com/pdiddy/publications/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// settings and logger are loaded once before any subcommand runs.
var (
	settings *types.Settings
	logger   = zerolog.Nop()
)

// rootCmd is the base command for the publications CLI.
var rootCmd = &cobra.Command{
	Use:   "publications",
	Short: "Curated database of publication references",
	Long: `publications maintains a curated set of publication references fetched
from PubMed and Crossref. Curators tag references with labels and
qualifiers; the database is served read-only over HTTP and edited
through the API or this CLI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("config")
		envFile, _ := cmd.Flags().GetString("env-file")
		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := config.Load(config.Options{File: file, EnvFile: envFile, SecretsDir: secretsDir})
		if err != nil {
			return err
		}
		settings = s
		logger, err = logging.Init(s.Log.Level, s.Log.Format)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "settings file (default: ./publications.yaml or ~/.config/publications/publications.yaml)")
	rootCmd.PersistentFlags().String("env-file", "", "environment file loaded before settings (default .env)")
	rootCmd.PersistentFlags().String("secrets-dir", "", "directory of secret files (default .secrets)")
	rootCmd.PersistentFlags().String("actor", "cli", "account recorded as the author of changes")
}

func actor(cmd *cobra.Command) string {
	a, _ := cmd.Flags().GetString("actor")
	return a
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
