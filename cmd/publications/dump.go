// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/publications/internal/dump"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [FILE]",
	Short: "Write every document to a gzipped JSON-lines file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fmt.Sprintf("publications_%s.jsonl.gz", time.Now().Format("2006-01-02"))
		if len(args) == 1 {
			path = args[0]
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Create(path)
		if err != nil {
			return err
		}
		stats, err := dump.Dump(cmd.Context(), a.store.Docs(), f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dumped %d documents to %s\n", stats.Total(), path)
		return writeValue(cmd.OutOrStdout(), stats, true)
	},
}

var undumpCmd = &cobra.Command{
	Use:   "undump FILE",
	Short: "Load documents from a dump file, overwriting existing ones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		stats, err := dump.Undump(cmd.Context(), a.store.Docs(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents from %s\n", stats.Total(), args[0])
		return writeValue(cmd.OutOrStdout(), stats, true)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd, undumpCmd)
}
