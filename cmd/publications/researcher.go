// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/publications/pkg/types"
)

var researcherCmd = &cobra.Command{
	Use:   "researcher",
	Short: "Add, list, show and delete researchers and link them to publications",
}

var researcherAddCmd = &cobra.Command{
	Use:   "add FAMILY",
	Short: "Add a researcher",
	Args:  cobra.ExactArgs(1),
	RunE: labelAction(func(cmd *cobra.Command, a *app, args []string) (string, error) {
		r := &types.Researcher{Family: args[0]}
		r.Given, _ = cmd.Flags().GetString("given")
		r.Initials, _ = cmd.Flags().GetString("initials")
		r.ORCID, _ = cmd.Flags().GetString("orcid")
		r.Affiliations, _ = cmd.Flags().GetStringArray("affiliation")
		if _, err := a.store.SaveResearcher(cmd.Context(), r, actor(cmd)); err != nil {
			return "", err
		}
		return fmt.Sprintf("added %s %s", r.ID, r.Name()), nil
	}),
}

var researcherListCmd = &cobra.Command{
	Use:   "list",
	Short: "List researchers with their linked publication counts",
	RunE: labelAction(func(cmd *cobra.Command, a *app, args []string) (string, error) {
		all, err := a.store.AllResearchers(cmd.Context())
		if err != nil {
			return "", err
		}
		out := cmd.OutOrStdout()
		for _, r := range all {
			pubs, err := a.store.ResearcherPublications(cmd.Context(), r.ID)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(out, "%5d  %s  %-19s  %s\n", len(pubs), r.ID, r.ORCID, r.Name())
		}
		return fmt.Sprintf("%d researchers", len(all)), nil
	}),
}

var researcherShowCmd = &cobra.Command{
	Use:   "show IUID|ORCID",
	Short: "Show a researcher and the linked publications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.store.LookupResearcher(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		candidates, _ := cmd.Flags().GetBool("candidates")
		var pubs []*types.Publication
		if candidates {
			pubs, err = a.store.ResearcherCandidates(cmd.Context(), r)
		} else {
			pubs, err = a.store.ResearcherPublications(cmd.Context(), r.ID)
		}
		if err != nil {
			return err
		}
		asYAML, _ := cmd.Flags().GetBool("yaml")
		if err := writeValue(cmd.OutOrStdout(), r, asYAML); err != nil {
			return err
		}
		for _, p := range pubs {
			fmt.Fprintln(cmd.OutOrStdout(), summary(p))
		}
		return nil
	},
}

var researcherDeleteCmd = &cobra.Command{
	Use:   "delete IUID|ORCID",
	Short: "Delete a researcher no publication is linked to",
	Args:  cobra.ExactArgs(1),
	RunE: labelAction(func(cmd *cobra.Command, a *app, args []string) (string, error) {
		r, err := a.store.LookupResearcher(cmd.Context(), args[0])
		if err != nil {
			return "", err
		}
		if err := a.store.DeleteResearcher(cmd.Context(), r, actor(cmd)); err != nil {
			return "", err
		}
		return "deleted " + r.Name(), nil
	}),
}

var researcherLinkCmd = &cobra.Command{
	Use:   "link IUID|ORCID PUBLICATION...",
	Short: "Link a researcher to a matching author of each publication",
	Args:  cobra.MinimumNArgs(2),
	RunE: labelAction(func(cmd *cobra.Command, a *app, args []string) (string, error) {
		r, err := a.store.LookupResearcher(cmd.Context(), args[0])
		if err != nil {
			return "", err
		}
		unlink, _ := cmd.Flags().GetBool("unlink")
		for _, input := range args[1:] {
			var p *types.Publication
			if unlink {
				p, err = a.curator.UnlinkResearcher(cmd.Context(), input, r.ID, actor(cmd))
			} else {
				p, err = a.curator.LinkResearcher(cmd.Context(), input, r, actor(cmd))
			}
			if err != nil {
				return "", fmt.Errorf("%s: %w", input, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary(p))
		}
		if unlink {
			return fmt.Sprintf("unlinked %s from %d publication(s)", r.Name(), len(args)-1), nil
		}
		return fmt.Sprintf("linked %s to %d publication(s)", r.Name(), len(args)-1), nil
	}),
}

func init() {
	researcherAddCmd.Flags().String("given", "", "given names")
	researcherAddCmd.Flags().String("initials", "", "initials; derived from the given names when omitted")
	researcherAddCmd.Flags().String("orcid", "", "ORCID identifier")
	researcherAddCmd.Flags().StringArray("affiliation", nil, "affiliation (repeatable)")
	researcherShowCmd.Flags().Bool("candidates", false, "include publications with a matching author name")
	researcherShowCmd.Flags().Bool("yaml", false, "print YAML instead of JSON")
	researcherLinkCmd.Flags().Bool("unlink", false, "remove the links instead")
	researcherCmd.AddCommand(researcherAddCmd, researcherListCmd, researcherShowCmd, researcherDeleteCmd, researcherLinkCmd)
	rootCmd.AddCommand(researcherCmd)
}
