// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/publications/pkg/types"
)

var adminCmd = &cobra.Command{
	Use:   "admin EMAIL",
	Short: "Create an admin account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return createAccount(cmd, args[0], types.RoleAdmin)
	},
}

var curatorCmd = &cobra.Command{
	Use:   "curator EMAIL",
	Short: "Create a curator account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return createAccount(cmd, args[0], types.RoleCurator)
	},
}

// createAccount creates the account and prints the reset code, which is
// also mailed when a mail host is configured.
func createAccount(cmd *cobra.Command, email string, role types.Role) error {
	labelValues, _ := cmd.Flags().GetStringArray("label")
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	acc, err := a.accounts.Create(cmd.Context(), email, role, labelValues, actor(cmd))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s; reset code %s\n", acc.Role, acc.Email, acc.Code)
	return nil
}

var passwordCmd = &cobra.Command{
	Use:   "password EMAIL PASSWORD",
	Short: "Set the password of an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.accounts.ChangePassword(cmd.Context(), args[0], args[1], actor(cmd)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "password set for %s\n", args[0])
		return nil
	},
}

var apikeyCmd = &cobra.Command{
	Use:   "apikey EMAIL",
	Short: "Generate a new API key for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		acc, err := a.accounts.GenerateAPIKey(cmd.Context(), args[0], actor(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), acc.APIKey)
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable EMAIL",
	Short: "Disable or, with --enable, re-enable an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enable, _ := cmd.Flags().GetBool("enable")
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		acc, err := a.accounts.SetDisabled(cmd.Context(), args[0], !enable, actor(cmd))
		if err != nil {
			return err
		}
		state := "enabled"
		if acc.Disabled {
			state = "disabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", acc.Email, state)
		return nil
	},
}

func init() {
	curatorCmd.Flags().StringArrayP("label", "l", nil, "default label of the curator (repeatable)")
	adminCmd.Flags().StringArrayP("label", "l", nil, "default label of the admin (repeatable)")
	disableCmd.Flags().Bool("enable", false, "enable instead of disable")
	rootCmd.AddCommand(adminCmd, curatorCmd, passwordCmd, apikeyCmd, disableCmd)
}
