// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show IDENTIFIER",
	Short: "Print a publication by IUID, PMID or DOI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asYAML, _ := cmd.Flags().GetBool("yaml")
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeValue(cmd.OutOrStdout(), p, asYAML)
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Print the number of documents of each kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.store.Counts(cmd.Context())
		if err != nil {
			return err
		}
		return writeValue(cmd.OutOrStdout(), counts, true)
	},
}

func init() {
	showCmd.Flags().Bool("yaml", false, "print YAML instead of JSON")
	rootCmd.AddCommand(showCmd, countsCmd)
}
