package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrupp/homecase-authshell/internal/domain"
)

// SessionStatus describes the hydrated session and the screen it lands on.
type SessionStatus struct {
	LoggedIn  bool   `json:"logged_in"`
	Username  string `json:"username,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Location  string `json:"location"`
	View      string `json:"view"`
}

type statusConfig struct {
	jsonOutput bool
}

func newStatusCmd(cfg Config) *cobra.Command {
	flags := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				return runStatus(cmd, a, flags)
			})
		},
	}

	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, a *app, flags *statusConfig) error {
	screen := a.shell.Render()

	status := SessionStatus{
		Location: screen.Location,
		View:     string(screen.View),
	}

	if user, ok := domain.SessionUser(a.store.Current()); ok {
		status.LoggedIn = true
		status.Username = user.Username

		if user.ExpiresAt > 0 {
			status.ExpiresAt = time.Unix(user.ExpiresAt, 0).UTC().Format(time.RFC3339)
		}
	}

	if flags.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal status: %w", err)
		}

		cmd.Println(string(data))

		return nil
	}

	cmd.Print(formatStatusTable(status))

	return nil
}

func formatStatusTable(status SessionStatus) string {
	var b strings.Builder

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	if status.LoggedIn {
		fmt.Fprintf(w, "SESSION\tlogged in as %s\n", status.Username)
	} else {
		fmt.Fprintln(w, "SESSION\tanonymous")
	}

	if status.ExpiresAt != "" {
		fmt.Fprintf(w, "EXPIRES\t%s\n", status.ExpiresAt)
	}

	fmt.Fprintf(w, "SCREEN\t%s (%s)\n", status.View, status.Location)

	_ = w.Flush()

	return b.String()
}
