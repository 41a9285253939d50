package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkrupp/homecase-authshell/internal/domain"
)

type registerConfig struct {
	username string
	email    string
	password string
}

func newRegisterCmd(cfg Config) *cobra.Command {
	flags := &registerConfig{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				return runRegister(cmd, a, flags)
			})
		},
	}

	cmd.Flags().StringVar(&flags.username, "username", "", "account username")
	cmd.Flags().StringVar(&flags.email, "email", "", "account email address")
	cmd.Flags().StringVar(&flags.password, "password", "", "account password (prompted if empty)")

	return cmd
}

func runRegister(cmd *cobra.Command, a *app, flags *registerConfig) error {
	screen := a.shell.Navigate(domain.PathRegister)
	if screen.View != domain.ViewRegister {
		return errAlreadyLoggedIn(a)
	}

	password := flags.password
	if password == "" && flags.username != "" && flags.email != "" {
		var err error

		if password, err = promptPassword(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	a.shell.SetRegisterForm(domain.Registration{
		Username: flags.username,
		Email:    flags.email,
		Password: password,
	})

	if err := a.shell.SubmitRegister(cmd.Context()); err != nil {
		return reported(err)
	}

	cmd.Printf("registered %s, log in with: %s login --username %s\n", flags.username, appName, flags.username)

	return nil
}

func errAlreadyLoggedIn(a *app) error {
	user, _ := domain.SessionUser(a.store.Current())

	return fmt.Errorf("already logged in as %s (log out first)", user.Username)
}
