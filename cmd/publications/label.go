// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Create, rename, delete, merge and list labels",
}

// labelAction opens the app and runs fn, printing its message.
func labelAction(fn func(cmd *cobra.Command, a *app, args []string) (string, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		msg, err := fn(cmd, a, args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}
}

var labelCreateCmd = &cobra.Command{
	Use:   "create VALUE",
	Short: "Create a label",
	Args:  cobra.ExactArgs(1),
	RunE: labelAction(func(cmd *cobra.Command, a *app, args []string) (string, error) {
		l, err := a.labels.Create(cmd.Context(), args[0], actor(cmd))
		if err != nil {
			return "", err
		}
		return "created " + l.Value, nil
	}),
}

var labelRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a label on every publication and account",
	Args:  cobra.ExactArgs(2),
	RunE: labelAction(func(cmd *cobra.Command, a *app, args []string) (string, error) {
		l, err := a.labels.Rename(cmd.Context(), args[0], args[1], actor(cmd))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("renamed %s to %s", args[0], l.Value), nil
	}),
}

var labelDeleteCmd = &cobra.Command{
	Use:   "delete VALUE",
	Short: "Delete a label and remove it everywhere",
	Args:  cobra.ExactArgs(1),
	RunE: labelAction(func(cmd *cobra.Command, a *app, args []string) (string, error) {
		if err := a.labels.Delete(cmd.Context(), args[0], actor(cmd)); err != nil {
			return "", err
		}
		return "deleted " + args[0], nil
	}),
}

var labelMergeCmd = &cobra.Command{
	Use:   "merge SOURCE TARGET",
	Short: "Merge SOURCE into TARGET and delete SOURCE",
	Args:  cobra.ExactArgs(2),
	RunE: labelAction(func(cmd *cobra.Command, a *app, args []string) (string, error) {
		l, err := a.labels.Merge(cmd.Context(), args[0], args[1], actor(cmd))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("merged %s into %s", args[0], l.Value), nil
	}),
}

var labelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List labels with their publication counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.store.AllLabels(cmd.Context())
		if err != nil {
			return err
		}
		for _, l := range all {
			pubs, err := a.store.PublicationsByLabel(cmd.Context(), l.Value)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%5d  %s\n", len(pubs), l.Value)
		}
		return nil
	},
}

func init() {
	labelCmd.AddCommand(labelCreateCmd, labelRenameCmd, labelDeleteCmd, labelMergeCmd, labelListCmd)
	rootCmd.AddCommand(labelCmd)
}
