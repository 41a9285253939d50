package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/repo/token"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/authclient"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/tokens"
	"github.com/mkrupp/homecase-authshell/internal/svc/sessionsvc"
	"github.com/mkrupp/homecase-authshell/internal/svc/shellsvc"
)

// app is one invocation's wiring: client, decoder, storage, store and shell.
type app struct {
	repo  token.Repository
	store *sessionsvc.Store
	shell *shellsvc.Shell
}

// newApp builds the application and hydrates the session, so the first
// route decision already sees a persisted login.
func newApp(ctx context.Context, cfg Config, notifications io.Writer) (*app, error) {
	client := authclient.NewHTTPClient(cfg.Auth, nil)

	decoder, err := tokens.NewDecoder(cfg.Token, client)
	if err != nil {
		return nil, fmt.Errorf("new token decoder: %w", err)
	}

	repo, err := token.TokenRepositoryFactory(cfg.Storage)(ctx)
	if err != nil {
		return nil, fmt.Errorf("open token storage: %w", err)
	}

	store := sessionsvc.NewStore(repo, decoder)

	if err := store.Hydrate(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("hydrate session: %w", err), repo.Close())
	}

	return &app{
		repo:  repo,
		store: store,
		shell: shellsvc.NewShell(client, store, shellsvc.NewWriterNotifier(notifications)),
	}, nil
}

func (a *app) Close() error {
	a.shell.Close()

	if err := a.repo.Close(); err != nil {
		return fmt.Errorf("close token storage: %w", err)
	}

	return nil
}

// withApp runs fn with a freshly built app and closes it afterwards.
func withApp(cmd *cobra.Command, cfg Config, fn func(a *app) error) (err error) {
	a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, a.Close())
	}()

	return fn(a)
}

// reportedError marks an error the user has already been notified about.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// reported marks err from a shell submission as notified. Submissions the
// shell dropped without a notification are returned as they are.
func reported(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrSubmitInFlight), errors.Is(err, domain.ErrStaleResponse):
		return err
	default:
		return reportedError{err}
	}
}

func isReported(err error) bool {
	var r reportedError

	return errors.As(err, &r)
}
