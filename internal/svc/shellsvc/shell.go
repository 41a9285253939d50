// Package shellsvc composes the session store, the route guard and the auth
// client into the application shell. The shell owns the current location and
// the transient per-form state; the session itself lives in the store.
package shellsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/authclient"
	"github.com/mkrupp/homecase-authshell/internal/svc/routesvc"
	"github.com/mkrupp/homecase-authshell/internal/svc/sessionsvc"
)

// User-facing messages.
const (
	MsgRegisterFailed = "Registration failed"
	MsgLoginFailed    = "Login failed"
	MsgRegistered     = "Registration successful, please log in"
)

// Screen is what the shell shows: the location after redirects and its view.
type Screen struct {
	Location string
	View     domain.View
}

// Shell hosts the application's screens.
type Shell struct {
	client   authclient.AuthClient
	store    *sessionsvc.Store
	notifier Notifier
	log      logging.Logger

	m         sync.Mutex
	location  string
	epoch     uint64 // advanced on every logout and location change
	register  formState[domain.Registration]
	login     formState[domain.Credentials]
	listeners []renderListener
	nextID    int

	unsubscribe func()
}

type renderListener struct {
	id int
	fn func(Screen)
}

// NewShell creates a shell at the home location and subscribes it to store
// so every session transition re-renders. Call Close to unsubscribe.
func NewShell(client authclient.AuthClient, store *sessionsvc.Store, notifier Notifier) *Shell {
	s := &Shell{
		client:   client,
		store:    store,
		notifier: notifier,
		log:      logging.GetLogger("svc.shellsvc.shell"),
		location: domain.PathHome,
	}

	s.unsubscribe = store.Subscribe(func(domain.Session) {
		s.Render()
	})

	return s
}

// Close detaches the shell from the session store.
func (s *Shell) Close() {
	s.unsubscribe()
}

// Navigate moves to path and renders it. Redirects replace the location.
func (s *Shell) Navigate(path string) Screen {
	return s.render(func(string) string { return path })
}

// Render re-evaluates the current location against the current session.
func (s *Shell) Render() Screen {
	return s.render(func(current string) string { return current })
}

// OnRender registers fn to receive every rendered screen. The returned
// function removes it.
func (s *Shell) OnRender(fn func(Screen)) (unsubscribe func()) {
	s.m.Lock()
	defer s.m.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, renderListener{id: id, fn: fn})

	return func() {
		s.m.Lock()
		defer s.m.Unlock()

		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)

				return
			}
		}
	}
}

func (s *Shell) render(target func(current string) string) Screen {
	s.m.Lock()

	location, view := routesvc.Resolve(target(s.location), s.store.IsLoggedIn())
	if location != s.location {
		s.location = location
		s.epoch++
	}

	screen := Screen{Location: location, View: view}
	listeners := append([]renderListener(nil), s.listeners...)
	s.m.Unlock()

	for _, l := range listeners {
		l.fn(screen)
	}

	return screen
}

// SetRegisterForm replaces the registration form's values.
func (s *Shell) SetRegisterForm(values domain.Registration) {
	s.m.Lock()
	defer s.m.Unlock()

	s.register.values = values
}

// RegisterForm returns the registration form's current state.
func (s *Shell) RegisterForm() RegisterForm {
	s.m.Lock()
	defer s.m.Unlock()

	return RegisterForm{Values: s.register.values, Loading: s.register.loading}
}

// SetLoginForm replaces the login form's values.
func (s *Shell) SetLoginForm(values domain.Credentials) {
	s.m.Lock()
	defer s.m.Unlock()

	s.login.values = values
}

// LoginForm returns the login form's current state.
func (s *Shell) LoginForm() LoginForm {
	s.m.Lock()
	defer s.m.Unlock()

	return LoginForm{Values: s.login.values, Loading: s.login.loading}
}

// SubmitRegister submits the registration form.
//
// A submission while one is pending returns domain.ErrSubmitInFlight. Invalid
// values are reported without a request and without entering loading. On
// success the form is cleared and the shell navigates to the login screen;
// on failure the form keeps its values and can be submitted again. A response
// arriving after a logout or navigation is dropped with domain.ErrStaleResponse.
func (s *Shell) SubmitRegister(ctx context.Context) (err error) {
	log := s.log.With(logging.Group("form", "name", "register"))

	s.m.Lock()
	if s.register.loading {
		s.m.Unlock()

		return domain.ErrSubmitInFlight
	}

	registration := s.register.values
	if err := authclient.ValidateRegistration(registration); err != nil {
		s.m.Unlock()
		s.notifyError(ctx, err, MsgRegisterFailed)

		return err
	}

	s.register.loading = true
	epoch := s.epoch
	s.m.Unlock()

	err = s.client.Register(ctx, registration)

	s.m.Lock()
	s.register.loading = false
	stale := epoch != s.epoch

	if err == nil && !stale {
		s.register.values = domain.Registration{}
	}
	s.m.Unlock()

	if stale {
		log.DebugContext(ctx, "dropped stale response", "error", err)

		return domain.ErrStaleResponse
	}

	if err != nil {
		log.WarnContext(ctx, "registration failed", "error", err)
		s.notifyError(ctx, err, MsgRegisterFailed)

		return fmt.Errorf("register: %w", err)
	}

	log.InfoContext(ctx, "registered", logging.Group("user", "username", registration.Username))
	s.notifier.Notify(ctx, Notification{Level: LevelInfo, Message: MsgRegistered})
	s.Navigate(domain.PathLogin)

	return nil
}

// SubmitLogin submits the login form and adopts the returned token.
//
// It follows the SubmitRegister protocol. A token the store cannot decode is
// a login failure. A logout while the token is being decoded makes the
// response stale and the token is never adopted. On success the password is
// cleared and the shell navigates home.
func (s *Shell) SubmitLogin(ctx context.Context) (_ domain.User, err error) {
	log := s.log.With(logging.Group("form", "name", "login"))

	s.m.Lock()
	if s.login.loading {
		s.m.Unlock()

		return domain.User{}, domain.ErrSubmitInFlight
	}

	credentials := s.login.values
	if err := authclient.ValidateCredentials(credentials); err != nil {
		s.m.Unlock()
		s.notifyError(ctx, err, MsgLoginFailed)

		return domain.User{}, err
	}

	s.login.loading = true
	epoch := s.epoch
	generation := s.store.Generation()
	s.m.Unlock()

	defer func() {
		s.m.Lock()
		s.login.loading = false

		if err == nil {
			s.login.values.Password = ""
		}
		s.m.Unlock()

		switch {
		case err == nil:
			s.Navigate(domain.PathHome)
		case errors.Is(err, domain.ErrStaleResponse):
			log.DebugContext(ctx, "dropped stale response")
		default:
			log.WarnContext(ctx, "login failed", "error", err)
			s.notifyError(ctx, err, MsgLoginFailed)
		}
	}()

	tok, err := s.client.Login(ctx, credentials)

	if s.isStale(epoch) {
		return domain.User{}, domain.ErrStaleResponse
	}

	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}

	user, err := s.store.LoginIfCurrent(ctx, tok, generation)

	switch {
	case errors.Is(err, domain.ErrStaleResponse):
		return domain.User{}, domain.ErrStaleResponse
	case err != nil:
		return domain.User{}, fmt.Errorf("adopt token: %w", err)
	}

	return user, nil
}

// Logout ends the session. The auth service is told first on a best-effort
// basis; its failure is logged, never surfaced. Pending submissions become
// stale.
func (s *Shell) Logout(ctx context.Context) error {
	s.m.Lock()
	s.epoch++
	s.m.Unlock()

	if tok, ok := domain.SessionToken(s.store.Current()); ok {
		if err := s.client.Logout(ctx, tok); err != nil {
			s.log.WarnContext(ctx, "server logout failed", "error", err)
		}
	}

	err := s.store.Logout(ctx)

	s.Render()

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	return nil
}

func (s *Shell) isStale(epoch uint64) bool {
	s.m.Lock()
	defer s.m.Unlock()

	return epoch != s.epoch
}

func (s *Shell) notifyError(ctx context.Context, err error, fallback string) {
	s.notifier.Notify(ctx, Notification{
		Level:   LevelError,
		Message: domain.UserMessage(err, fallback),
	})
}
