package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd creates the root command for the authshell CLI.
func newRootCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Manage the session with the homecase auth service",
		Long: `authshell registers accounts, logs in and out of the homecase auth
service and keeps the session token in local storage between invocations.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(newRegisterCmd(cfg))
	cmd.AddCommand(newLoginCmd(cfg))
	cmd.AddCommand(newLogoutCmd(cfg))
	cmd.AddCommand(newStatusCmd(cfg))
	cmd.AddCommand(newOpenCmd(cfg))

	return cmd
}
