// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist [IDENTIFIER...]",
	Short: "Blacklist and delete publications, or list the blacklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, _ := cmd.Flags().GetBool("list")
		if !list && len(args) == 0 {
			return errors.New("provide identifiers to blacklist, or --list")
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if list {
			entries, err := a.store.AllBlacklist(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(out, "pmid:%-10s doi:%-30s %s\n", e.PMID, e.DOI, e.Title)
			}
			return nil
		}
		for _, id := range args {
			entry, err := a.curator.Blacklist(cmd.Context(), id, actor(cmd))
			if err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			if entry == nil {
				fmt.Fprintf(out, "%s: no such publication\n", id)
				continue
			}
			fmt.Fprintf(out, "%s: blacklisted pmid:%s doi:%s\n", id, entry.PMID, entry.DOI)
		}
		return nil
	},
}

func init() {
	blacklistCmd.Flags().Bool("list", false, "list blacklist entries")
	rootCmd.AddCommand(blacklistCmd)
}
