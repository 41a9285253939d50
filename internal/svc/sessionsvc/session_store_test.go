package sessionsvc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mkrupp/homecase-authshell/internal/domain"
	"github.com/mkrupp/homecase-authshell/internal/repo/token"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/tokens"
	"github.com/mkrupp/homecase-authshell/internal/svc/routesvc"
	"github.com/mkrupp/homecase-authshell/internal/svc/sessionsvc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errStorage = errors.New("storage unavailable")

// tableDecoder accepts the tokens in its table; "offline" and "failing"
// simulate an unreachable and a failing auth service.
func tableDecoder(users map[string]string) tokens.Decoder {
	return tokens.DecoderFunc(func(_ context.Context, tok string) (domain.User, error) {
		if tok == "offline" {
			return domain.User{}, &domain.NetworkError{Op: "post /auth/validate", Err: errors.New("connection refused")}
		}

		if tok == "failing" {
			return domain.User{}, &domain.ServerError{StatusCode: 503}
		}

		username, ok := users[tok]
		if !ok {
			return domain.User{}, &domain.SessionDecodeError{Err: domain.ErrInvalidAuthToken}
		}

		return domain.User{Username: username}, nil
	})
}

// faultyRepository wraps a repository and fails the selected operations.
type faultyRepository struct {
	token.Repository

	failLoad, failStore, failDelete bool
}

func (r *faultyRepository) LoadToken(ctx context.Context) (string, bool, error) {
	if r.failLoad {
		return "", false, errStorage
	}

	return r.Repository.LoadToken(ctx)
}

func (r *faultyRepository) StoreToken(ctx context.Context, tok string) error {
	if r.failStore {
		return errStorage
	}

	return r.Repository.StoreToken(ctx, tok)
}

func (r *faultyRepository) DeleteToken(ctx context.Context) error {
	if r.failDelete {
		return errStorage
	}

	return r.Repository.DeleteToken(ctx)
}

// gatedRepository signals stored after persisting a token and waits for
// release before returning.
type gatedRepository struct {
	token.Repository

	stored  chan struct{}
	release chan struct{}
}

func (r *gatedRepository) StoreToken(ctx context.Context, tok string) error {
	err := r.Repository.StoreToken(ctx, tok)

	r.stored <- struct{}{}
	<-r.release

	return err
}

func setupTestStore(t *testing.T) (*sessionsvc.Store, *faultyRepository) {
	t.Helper()

	repo := &faultyRepository{Repository: token.NewMemoryTokenRepository()}
	store := sessionsvc.NewStore(repo, tableDecoder(map[string]string{
		"alice-token": "alice",
		"bob-token":   "bob",
	}))

	return store, repo
}

func persisted(t *testing.T, repo token.Repository) (string, bool) {
	t.Helper()

	tok, ok, err := repo.LoadToken(context.Background())
	require.NoError(t, err)

	return tok, ok
}

func TestStore_StartsAnonymous(t *testing.T) {
	t.Parallel()

	store, _ := setupTestStore(t)

	assert.Equal(t, domain.Anonymous{}, store.Current())
	assert.False(t, store.IsLoggedIn())
}

func TestStore_Login(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		store, repo := setupTestStore(t)

		user, err := store.Login(ctx, "alice-token")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)

		sessionUser, ok := domain.SessionUser(store.Current())
		require.True(t, ok)
		assert.Equal(t, "alice", sessionUser.Username)

		tok, ok := persisted(t, repo)
		assert.True(t, ok)
		assert.Equal(t, "alice-token", tok)
	})

	t.Run("undecodable token stays anonymous", func(t *testing.T) {
		t.Parallel()

		store, repo := setupTestStore(t)

		_, err := store.Login(ctx, "forged")
		require.Error(t, err)
		assert.True(t, domain.IsSessionDecodeError(err))
		assert.Equal(t, domain.Anonymous{}, store.Current())

		_, ok := persisted(t, repo)
		assert.False(t, ok)
	})

	t.Run("undecodable token keeps previous session", func(t *testing.T) {
		t.Parallel()

		store, _ := setupTestStore(t)

		_, err := store.Login(ctx, "alice-token")
		require.NoError(t, err)

		_, err = store.Login(ctx, "forged")
		require.Error(t, err)

		tok, ok := domain.SessionToken(store.Current())
		assert.True(t, ok)
		assert.Equal(t, "alice-token", tok)
	})

	t.Run("storage failure stays anonymous", func(t *testing.T) {
		t.Parallel()

		store, repo := setupTestStore(t)
		repo.failStore = true

		_, err := store.Login(ctx, "alice-token")
		require.ErrorIs(t, err, errStorage)
		assert.False(t, store.IsLoggedIn())
	})

	t.Run("repeated identical login", func(t *testing.T) {
		t.Parallel()

		store, _ := setupTestStore(t)

		var notifications int
		store.Subscribe(func(domain.Session) { notifications++ })

		for range 3 {
			user, err := store.Login(ctx, "alice-token")
			require.NoError(t, err)
			assert.Equal(t, "alice", user.Username)

			sessionUser, _ := domain.SessionUser(store.Current())
			assert.Equal(t, "alice", sessionUser.Username)
		}

		assert.Equal(t, 1, notifications)
	})

	t.Run("switching user", func(t *testing.T) {
		t.Parallel()

		store, repo := setupTestStore(t)

		_, err := store.Login(ctx, "alice-token")
		require.NoError(t, err)
		_, err = store.Login(ctx, "bob-token")
		require.NoError(t, err)

		sessionUser, _ := domain.SessionUser(store.Current())
		assert.Equal(t, "bob", sessionUser.Username)

		tok, _ := persisted(t, repo)
		assert.Equal(t, "bob-token", tok)
	})
}

func TestStore_Logout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("from authenticated", func(t *testing.T) {
		t.Parallel()

		store, repo := setupTestStore(t)

		_, err := store.Login(ctx, "alice-token")
		require.NoError(t, err)

		require.NoError(t, store.Logout(ctx))
		assert.Equal(t, domain.Anonymous{}, store.Current())

		_, ok := persisted(t, repo)
		assert.False(t, ok)
	})

	t.Run("idempotent when anonymous", func(t *testing.T) {
		t.Parallel()

		store, _ := setupTestStore(t)

		var notifications int
		store.Subscribe(func(domain.Session) { notifications++ })

		require.NoError(t, store.Logout(ctx))
		require.NoError(t, store.Logout(ctx))

		assert.False(t, store.IsLoggedIn())
		assert.Zero(t, notifications)
	})

	t.Run("storage failure still anonymous", func(t *testing.T) {
		t.Parallel()

		store, repo := setupTestStore(t)

		_, err := store.Login(ctx, "alice-token")
		require.NoError(t, err)

		repo.failDelete = true

		require.ErrorIs(t, store.Logout(ctx), errStorage)
		assert.False(t, store.IsLoggedIn())
	})

	t.Run("hydrate after logout", func(t *testing.T) {
		t.Parallel()

		repo := token.NewMemoryTokenRepository()
		decoder := tableDecoder(map[string]string{"alice-token": "alice"})

		first := sessionsvc.NewStore(repo, decoder)
		_, err := first.Login(ctx, "alice-token")
		require.NoError(t, err)
		require.NoError(t, first.Logout(ctx))

		second := sessionsvc.NewStore(repo, decoder)
		require.NoError(t, second.Hydrate(ctx))
		assert.False(t, second.IsLoggedIn())
	})
}

func TestStore_LogoutOvertakesLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("while decoding", func(t *testing.T) {
		t.Parallel()

		decoding := make(chan struct{}, 1)
		release := make(chan struct{})
		users := tableDecoder(map[string]string{"alice-token": "alice"})

		repo := token.NewMemoryTokenRepository()
		store := sessionsvc.NewStore(repo, tokens.DecoderFunc(func(ctx context.Context, tok string) (domain.User, error) {
			decoding <- struct{}{}
			<-release

			return users.Decode(ctx, tok)
		}))

		done := make(chan error, 1)

		go func() {
			_, err := store.Login(ctx, "alice-token")
			done <- err
		}()

		<-decoding
		require.NoError(t, store.Logout(ctx))
		close(release)

		require.ErrorIs(t, <-done, domain.ErrStaleResponse)
		assert.False(t, store.IsLoggedIn())

		_, ok := persisted(t, repo)
		assert.False(t, ok)
	})

	t.Run("while persisting", func(t *testing.T) {
		t.Parallel()

		repo := &gatedRepository{
			Repository: token.NewMemoryTokenRepository(),
			stored:     make(chan struct{}, 1),
			release:    make(chan struct{}),
		}
		store := sessionsvc.NewStore(repo, tableDecoder(map[string]string{"alice-token": "alice"}))

		loginDone := make(chan error, 1)

		go func() {
			_, err := store.Login(ctx, "alice-token")
			loginDone <- err
		}()

		<-repo.stored

		logoutDone := make(chan error, 1)

		go func() {
			logoutDone <- store.Logout(ctx)
		}()

		close(repo.release)

		require.NoError(t, <-loginDone)
		require.NoError(t, <-logoutDone)

		assert.False(t, store.IsLoggedIn())

		_, ok := persisted(t, repo)
		assert.False(t, ok, "memory and storage agree")
	})

	t.Run("generation from before a logout", func(t *testing.T) {
		t.Parallel()

		store, repo := setupTestStore(t)
		generation := store.Generation()

		require.NoError(t, store.Logout(ctx))

		_, err := store.LoginIfCurrent(ctx, "alice-token", generation)
		require.ErrorIs(t, err, domain.ErrStaleResponse)
		assert.False(t, store.IsLoggedIn())

		_, ok := persisted(t, repo)
		assert.False(t, ok)

		_, err = store.LoginIfCurrent(ctx, "alice-token", store.Generation())
		require.NoError(t, err)
		assert.True(t, store.IsLoggedIn())
	})
}

func TestStore_Hydrate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		stored        string
		failLoad      bool
		failStore     bool
		wantLoggedIn  bool
		wantPersisted bool
		wantErr       error
	}{
		{
			name:          "no persisted token",
			wantLoggedIn:  false,
			wantPersisted: false,
		},
		{
			name:          "valid persisted token",
			stored:        "alice-token",
			wantLoggedIn:  true,
			wantPersisted: true,
		},
		{
			name:          "stale persisted token is cleared",
			stored:        "expired-token",
			wantLoggedIn:  false,
			wantPersisted: false,
		},
		{
			name:          "unreachable auth service keeps token",
			stored:        "offline",
			wantLoggedIn:  false,
			wantPersisted: true,
		},
		{
			name:          "failing auth service keeps token",
			stored:        "failing",
			wantLoggedIn:  false,
			wantPersisted: true,
		},
		{
			name:          "read-only storage keeps persisted session",
			stored:        "alice-token",
			failStore:     true,
			wantLoggedIn:  true,
			wantPersisted: true,
		},
		{
			name:     "storage failure",
			failLoad: true,
			wantErr:  errStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store, repo := setupTestStore(t)

			if tt.stored != "" {
				require.NoError(t, repo.StoreToken(ctx, tt.stored))
			}

			repo.failLoad = tt.failLoad
			repo.failStore = tt.failStore

			err := store.Hydrate(ctx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, store.IsLoggedIn())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLoggedIn, store.IsLoggedIn())

			_, ok := persisted(t, repo)
			assert.Equal(t, tt.wantPersisted, ok)

			// the guard sees the hydrated state on the very first decision
			decision := routesvc.Decide(domain.PathLogin, store.IsLoggedIn())
			assert.Equal(t, tt.wantLoggedIn, decision.Redirect == domain.PathHome)
		})
	}
}

func TestStore_HydrateOnce(t *testing.T) {
	t.Parallel()

	store, _ := setupTestStore(t)

	require.NoError(t, store.Hydrate(context.Background()))
	require.ErrorIs(t, store.Hydrate(context.Background()), domain.ErrAlreadyHydrated)
}

func TestStore_Subscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := setupTestStore(t)

	var (
		seen    []bool
		current []bool
	)

	unsubscribe := store.Subscribe(func(session domain.Session) {
		seen = append(seen, session.IsLoggedIn())
		// listeners run outside the lock and observe the committed state
		current = append(current, store.IsLoggedIn())
	})

	_, err := store.Login(ctx, "alice-token")
	require.NoError(t, err)
	require.NoError(t, store.Logout(ctx))

	unsubscribe()
	unsubscribe()

	_, err = store.Login(ctx, "bob-token")
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, seen)
	assert.Equal(t, seen, current)
}

func TestStore_Watch(t *testing.T) {
	t.Parallel()

	store, _ := setupTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	sessions := store.Watch(ctx)

	receive := func() domain.Session {
		t.Helper()

		select {
		case session := <-sessions:
			return session
		case <-time.After(time.Second):
			t.Fatal("no session delivered")

			return nil
		}
	}

	assert.False(t, receive().IsLoggedIn(), "current state is delivered first")

	_, err := store.Login(context.Background(), "alice-token")
	require.NoError(t, err)
	assert.True(t, receive().IsLoggedIn())

	cancel()

	for range sessions {
		// drain until closed
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := setupTestStore(t)

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 50 {
				if i%2 == 0 {
					_, _ = store.Login(ctx, "alice-token")
				} else {
					_ = store.Logout(ctx)
				}

				session := store.Current()
				if user, ok := domain.SessionUser(session); ok {
					assert.Equal(t, "alice", user.Username)
				}
			}
		}()
	}

	wg.Wait()
}
