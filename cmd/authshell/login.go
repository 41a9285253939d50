package main

import (
	"github.com/spf13/cobra"

	"github.com/mkrupp/homecase-authshell/internal/domain"
)

type loginConfig struct {
	username string
	password string
}

func newLoginCmd(cfg Config) *cobra.Command {
	flags := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				return runLogin(cmd, a, flags)
			})
		},
	}

	cmd.Flags().StringVar(&flags.username, "username", "", "account username")
	cmd.Flags().StringVar(&flags.password, "password", "", "account password (prompted if empty)")

	return cmd
}

func runLogin(cmd *cobra.Command, a *app, flags *loginConfig) error {
	screen := a.shell.Navigate(domain.PathLogin)
	if screen.View != domain.ViewLogin {
		return errAlreadyLoggedIn(a)
	}

	password := flags.password
	if password == "" && flags.username != "" {
		var err error

		if password, err = promptPassword(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	a.shell.SetLoginForm(domain.Credentials{Username: flags.username, Password: password})

	user, err := a.shell.SubmitLogin(cmd.Context())
	if err != nil {
		return reported(err)
	}

	cmd.Printf("logged in as %s\n", user.Username)

	return nil
}
