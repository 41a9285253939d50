package main

import (
	"github.com/spf13/cobra"

	"github.com/mkrupp/homecase-authshell/internal/svc/routesvc"
)

func newOpenCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Show where a path leads for the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				path := args[0]

				decision := routesvc.Decide(path, a.store.IsLoggedIn())
				if decision.IsRedirect() {
					cmd.Printf("%s -> %s\n", path, decision.Redirect)
				}

				screen := a.shell.Navigate(path)
				cmd.Printf("%s: %s\n", screen.Location, screen.View)

				return nil
			})
		},
	}
}
