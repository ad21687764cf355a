package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/S4nzh4r/ya-note/internal/auth"
)

var (
	newUsername string
	newPassword string
)

// createUserCmd registers an account without going through the signup page.
var createUserCmd = &cobra.Command{
	Use:   "createuser",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := auth.NewAccounts(st).Register(cmd.Context(), newUsername, newPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVarP(&newUsername, "username", "u", "", "Username")
	createUserCmd.Flags().StringVarP(&newPassword, "password", "p", "", "Password")
	createUserCmd.MarkFlagRequired("username")
	createUserCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createUserCmd)
}
