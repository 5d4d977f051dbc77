// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/publications/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search TERMS...",
	Short: "Search publications by author, title, identifier, journal or label",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		pubs, err := search.Search(cmd.Context(), a.store, strings.Join(args, " "))
		if err != nil {
			return err
		}
		for _, p := range pubs {
			fmt.Fprintln(cmd.OutOrStdout(), summary(p))
		}
		return nil
	},
}

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Report publications whose longest title words coincide",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		groups, err := search.Duplicates(cmd.Context(), a.store)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, g := range groups {
			fmt.Fprintf(out, "%s\n", g.Key)
			for _, p := range g.Publications {
				fmt.Fprintf(out, "  %s\n", summary(p))
			}
		}
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select publications by year, label, author, ORCID or ISSN",
	Long: `Select lists the publications matching the given options. Each option
may be repeated; the values of one option are unioned and the options given
are intersected. An author is "Family Initials", optionally ending in '*'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var criteria search.Criteria
		criteria.Years, _ = cmd.Flags().GetStringArray("year")
		criteria.Labels, _ = cmd.Flags().GetStringArray("label")
		criteria.Authors, _ = cmd.Flags().GetStringArray("author")
		criteria.ORCIDs, _ = cmd.Flags().GetStringArray("orcid")
		criteria.ISSNs, _ = cmd.Flags().GetStringArray("issn")
		if criteria.Empty() {
			return errors.New("give at least one of --year, --label, --author, --orcid or --issn")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sub, err := search.Select(cmd.Context(), a.store, criteria)
		if err != nil {
			return err
		}
		pubs, err := sub.Publications(cmd.Context(), a.store)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeValue(cmd.OutOrStdout(), pubs, false)
		}
		for _, p := range pubs {
			fmt.Fprintln(cmd.OutOrStdout(), summary(p))
		}
		return nil
	},
}

func init() {
	selectCmd.Flags().StringArrayP("year", "y", nil, "published year (repeatable)")
	selectCmd.Flags().StringArrayP("label", "l", nil, "label (repeatable)")
	selectCmd.Flags().StringArrayP("author", "a", nil, "author as \"Family Initials\" (repeatable)")
	selectCmd.Flags().StringArrayP("orcid", "o", nil, "ORCID of a linked researcher (repeatable)")
	selectCmd.Flags().StringArray("issn", nil, "journal ISSN (repeatable)")
	selectCmd.Flags().Bool("json", false, "print the publications as JSON")
	rootCmd.AddCommand(searchCmd, duplicatesCmd, selectCmd)
}
