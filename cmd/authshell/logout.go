package main

import (
	"github.com/spf13/cobra"
)

func newLogoutCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				if err := a.shell.Logout(cmd.Context()); err != nil {
					return err
				}

				cmd.Println("logged out")

				return nil
			})
		},
	}
}
