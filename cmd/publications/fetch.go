// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/publications/internal/acquire"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [identifiers...]",
	Short: "Fetch publications from PubMed or Crossref",
	Long: `Fetch resolves PMIDs and DOIs, creating new publications or updating
existing ones. Identifiers may be given as arguments or one per line in a
file; lines starting with # are ignored.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringP("file", "f", "", "file with one identifier per line")
	fetchCmd.Flags().StringArrayP("label", "l", nil, "label to apply, as VALUE or VALUE=QUALIFIER (repeatable)")
	fetchCmd.Flags().Bool("verify", false, "mark fetched publications as verified")
	fetchCmd.Flags().Bool("override", false, "fetch even when blacklisted, removing the blacklist entry")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ids := append([]string(nil), args...)
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		more, err := readIdentifiers(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		ids = append(ids, more...)
	}
	if len(ids) == 0 {
		return errors.New("provide one or more PMIDs or DOIs")
	}
	labelFlags, _ := cmd.Flags().GetStringArray("label")
	verify, _ := cmd.Flags().GetBool("verify")
	override, _ := cmd.Flags().GetBool("override")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := acquire.Options{Verify: verify, Override: override}
	out := cmd.OutOrStdout()
	res, err := a.pipeline.AcquireChunks(ctx, ids, parseLabels(labelFlags), actor(cmd), opts, func(chunk acquire.BatchResult) {
		for _, ok := range chunk.Succeeded {
			fmt.Fprintf(out, "%-10s %s\n", ok.Outcome, summary(ok.Publication))
		}
		for _, f := range chunk.Failed {
			fmt.Fprintf(out, "%-10s %s: %v\n", "failed", f.Identifier, f.Err)
		}
	})
	if err != nil {
		return err
	}
	if res.HasFailures() {
		return fmt.Errorf("%d identifier(s) failed", len(res.Failed))
	}
	return nil
}

// readIdentifiers returns the non-blank, non-comment lines of r.
func readIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, sc.Err()
}
