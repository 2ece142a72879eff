package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login TOKEN",
		Short: "Store an access token for API calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return fmt.Errorf("token is empty")
			}
			return withEnv(cmd, func(e *env) error {
				if err := e.tokens.SetToken(cmd.Context(), token); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
				return nil
			})
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(e *env) error {
				if err := e.tokens.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}
