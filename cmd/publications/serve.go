// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/publications/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP interface",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default from settings, 8885)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := settings.Server
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}
	srv := server.New(cfg, settings.Site, server.Deps{
		Store:    a.store,
		Pipeline: a.pipeline,
		Labels:   a.labels,
		Curator:  a.curator,
		Accounts: a.accounts,
	}, server.WithLogger(logger.With().Str("component", "server").Logger()))
	return srv.Run(ctx)
}
