// Package sessionsvc owns the client's single authoritative session.
//
// The Store is the only place a token and user are set or cleared: Login
// (with its LoginIfCurrent form), Logout and Hydrate are its sole mutation
// points. Every transition is
// persisted through a token.Repository and announced to subscribers.
package sessionsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	context_ "github.com/mkrupp/homecase-authshell/internal/infra/context"
	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
	"github.com/mkrupp/homecase-authshell/internal/repo/token"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/tokens"
)

// Listener is called with the new session after every transition.
type Listener func(domain.Session)

// Store holds the current session.
type Store struct {
	repo    token.Repository
	decoder tokens.Decoder
	log     logging.Logger

	// op serializes persisting a token with committing the session, so
	// storage and memory never disagree after a Login races a Logout.
	op sync.Mutex

	m          sync.Mutex
	session    domain.Session
	generation uint64 // advanced on every Logout
	hydrated   bool
	listeners  []subscription
	nextID     int
}

type subscription struct {
	id int
	fn Listener
}

// NewStore creates an Anonymous store persisting through repo and deriving
// users through decoder.
func NewStore(repo token.Repository, decoder tokens.Decoder) *Store {
	return &Store{
		repo:    repo,
		decoder: decoder,
		log:     logging.GetLogger("svc.sessionsvc.store"),
		session: domain.Anonymous{},
	}
}

// Current returns the session as of now.
func (s *Store) Current() domain.Session {
	s.m.Lock()
	defer s.m.Unlock()

	return s.session
}

// IsLoggedIn reports whether the current session is Authenticated.
func (s *Store) IsLoggedIn() bool {
	return s.Current().IsLoggedIn()
}

// Generation identifies the current logout generation. Pass it to
// LoginIfCurrent to have a Login refused once a Logout overtook it.
func (s *Store) Generation() uint64 {
	s.m.Lock()
	defer s.m.Unlock()

	return s.generation
}

// Login decodes token, persists it and moves to Authenticated.
// If decoding or persisting fails the session is left as it was and the error
// is returned; a decode failure is a *domain.SessionDecodeError. A Logout
// that completes while the token is being decoded wins and Login returns
// domain.ErrStaleResponse.
func (s *Store) Login(ctx context.Context, tok string) (domain.User, error) {
	return s.LoginIfCurrent(ctx, tok, s.Generation())
}

// LoginIfCurrent is Login, refused with domain.ErrStaleResponse when a Logout
// happened since generation was read. Nothing is persisted when refused.
func (s *Store) LoginIfCurrent(ctx context.Context, tok string, generation uint64) (domain.User, error) {
	return s.adopt(ctx, tok, generation, true)
}

func (s *Store) adopt(ctx context.Context, tok string, generation uint64, persist bool) (_ domain.User, err error) {
	log := s.log.With(logging.Token("token", tok))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "login rejected", "error", err)
		}
	}()

	user, err := s.decoder.Decode(ctx, tok)
	if err != nil {
		return domain.User{}, fmt.Errorf("decode token: %w", err)
	}

	next, err := domain.NewAuthenticated(tok, user)
	if err != nil {
		return domain.User{}, err
	}

	s.op.Lock()

	if s.Generation() != generation {
		s.op.Unlock()

		return domain.User{}, domain.ErrStaleResponse
	}

	if persist {
		if err := s.repo.StoreToken(ctx, tok); err != nil {
			s.op.Unlock()

			return domain.User{}, fmt.Errorf("store token: %w", err)
		}
	}

	notify := s.commit(next, false)
	s.op.Unlock()

	if notify != nil {
		notify()
		log.InfoContext(context_.WithUsername(ctx, user.Username), "logged in")
	}

	return user, nil
}

// Logout moves to Anonymous and clears the persisted token. The in-memory
// session is Anonymous afterwards even if clearing the storage fails. Logins
// still decoding when Logout runs are refused.
func (s *Store) Logout(ctx context.Context) error {
	s.op.Lock()
	notify := s.commit(domain.Anonymous{}, true)
	err := s.repo.DeleteToken(ctx)
	s.op.Unlock()

	if notify != nil {
		notify()
		s.log.InfoContext(ctx, "logged out")
	}

	if err != nil {
		s.log.ErrorContext(ctx, "clear persisted token failed", "error", err)

		return fmt.Errorf("delete token: %w", err)
	}

	return nil
}

// Hydrate restores a persisted session. It runs at most once per Store and
// must be called before the first route decision.
//
// A persisted token the decoder rejects is deleted. A token that could not be
// checked because the auth service is unreachable or failing is kept for the
// next start. In both cases the session stays Anonymous and no error is
// returned.
func (s *Store) Hydrate(ctx context.Context) (err error) {
	s.m.Lock()
	if s.hydrated {
		s.m.Unlock()

		return domain.ErrAlreadyHydrated
	}
	s.hydrated = true
	s.m.Unlock()

	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "hydrate failed", "error", err)
		} else {
			s.log.DebugContext(ctx, "hydrated", "loggedIn", s.IsLoggedIn())
		}
	}()

	tok, ok, err := s.repo.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}

	if !ok {
		return nil
	}

	// the token is already persisted; a read-only storage must not fail hydrate
	_, err = s.adopt(ctx, tok, s.Generation(), false)

	switch {
	case err == nil:
		return nil
	case domain.IsSessionDecodeError(err):
		if err := s.repo.DeleteToken(ctx); err != nil {
			return fmt.Errorf("delete stale token: %w", err)
		}

		return nil
	case isTransient(err):
		return nil
	default:
		return err
	}
}

// Subscribe registers fn to be called after every transition. Listeners run
// in subscription order, outside the store lock, so they may read Current or
// call Logout. The returned function removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.m.Lock()
	defer s.m.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.m.Lock()
		defer s.m.Unlock()

		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)

				return
			}
		}
	}
}

// Watch delivers the current session and every later one on the returned
// channel until ctx is done, then closes it. A slow reader only misses
// intermediate states, never the latest one.
func (s *Store) Watch(ctx context.Context) <-chan domain.Session {
	out := make(chan domain.Session, 1)
	latest := make(chan domain.Session, 1)

	push := func(session domain.Session) {
		select {
		case <-latest:
		default:
		}
		latest <- session
	}

	var pushM sync.Mutex

	unsubscribe := s.Subscribe(func(session domain.Session) {
		pushM.Lock()
		defer pushM.Unlock()

		push(session)
	})

	pushM.Lock()
	push(s.Current())
	pushM.Unlock()

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case session := <-latest:
				select {
				case out <- session:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// commit sets next, optionally advancing the generation. If the session
// changed it returns a function notifying the listeners, to be called once
// no lock is held; otherwise nil.
func (s *Store) commit(next domain.Session, logout bool) (notify func()) {
	s.m.Lock()
	defer s.m.Unlock()

	if logout {
		s.generation++
	}

	if s.session == next {
		return nil
	}

	s.session = next
	listeners := append([]subscription(nil), s.listeners...)

	return func() {
		for _, sub := range listeners {
			sub.fn(next)
		}
	}
}

// isTransient reports whether err means the token could not be checked, as
// opposed to the token being rejected.
func isTransient(err error) bool {
	var (
		networkErr *domain.NetworkError
		serverErr  *domain.ServerError
	)

	switch {
	case errors.As(err, &networkErr), errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.As(err, &serverErr):
		return serverErr.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}
