package token_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-authshell/internal/repo/token"
)

type repoFactory func(t *testing.T, profile string) token.Repository

func newMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr
}

// withRepositories runs fn against every backend. Repositories created by the
// same factory share storage, so two profiles can be checked for isolation.
func withRepositories(t *testing.T, fn func(t *testing.T, newRepo repoFactory)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()

		cfg := token.SQLiteTokenRepositoryConfig{DatabasePath: filepath.Join(t.TempDir(), "tokens", "authshell.db")}

		fn(t, func(t *testing.T, profile string) token.Repository {
			t.Helper()

			repo, err := token.NewSQLiteTokenRepository(context.Background(), profile, cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = repo.Close() })

			return repo
		})
	})

	t.Run("file", func(t *testing.T) {
		t.Parallel()

		cfg := token.FileTokenRepositoryConfig{Path: filepath.Join(t.TempDir(), "credentials.yaml")}

		fn(t, func(t *testing.T, profile string) token.Repository {
			t.Helper()

			repo, err := token.NewFileTokenRepository(context.Background(), profile, cfg)
			require.NoError(t, err)

			return repo
		})
	})

	t.Run("redis", func(t *testing.T) {
		t.Parallel()

		mr := newMiniredis(t)
		cfg := token.RedisTokenRepositoryConfig{Addr: mr.Addr(), KeyPrefix: "test:token:"}

		fn(t, func(t *testing.T, profile string) token.Repository {
			t.Helper()

			repo, err := token.NewRedisTokenRepository(context.Background(), profile, cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = repo.Close() })

			return repo
		})
	})

	t.Run("memory", func(t *testing.T) {
		t.Parallel()

		repos := map[string]token.Repository{}

		fn(t, func(t *testing.T, profile string) token.Repository {
			t.Helper()

			if repo, ok := repos[profile]; ok {
				return repo
			}

			repo := token.NewMemoryTokenRepository()
			repos[profile] = repo

			return repo
		})
	})
}

func TestRepository_Lifecycle(t *testing.T) {
	t.Parallel()

	withRepositories(t, func(t *testing.T, newRepo repoFactory) {
		ctx := context.Background()
		repo := newRepo(t, "default")

		_, ok, err := repo.LoadToken(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "fresh storage has no token")

		require.NoError(t, repo.StoreToken(ctx, "first"))
		require.NoError(t, repo.StoreToken(ctx, "second"))

		got, ok, err := repo.LoadToken(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", got)

		require.NoError(t, repo.DeleteToken(ctx))
		require.NoError(t, repo.DeleteToken(ctx), "delete is idempotent")

		_, ok, err = repo.LoadToken(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRepository_SurvivesReopen(t *testing.T) {
	t.Parallel()

	withRepositories(t, func(t *testing.T, newRepo repoFactory) {
		ctx := context.Background()

		require.NoError(t, newRepo(t, "default").StoreToken(ctx, "persisted"))

		got, ok, err := newRepo(t, "default").LoadToken(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "persisted", got)
	})
}

func TestRepository_ProfilesAreIsolated(t *testing.T) {
	t.Parallel()

	withRepositories(t, func(t *testing.T, newRepo repoFactory) {
		ctx := context.Background()
		work, home := newRepo(t, "work"), newRepo(t, "home")

		require.NoError(t, work.StoreToken(ctx, "work-token"))

		_, ok, err := home.LoadToken(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, home.StoreToken(ctx, "home-token"))
		require.NoError(t, work.DeleteToken(ctx))

		got, ok, err := home.LoadToken(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "home-token", got)
	})
}

func TestFileTokenRepository_Permissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.yaml")

	repo, err := token.NewFileTokenRepository(context.Background(), "default", token.FileTokenRepositoryConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, repo.StoreToken(context.Background(), "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, repo.DeleteToken(context.Background()))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "last profile removed deletes the file")
}

func TestFileTokenRepository_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [not, a, map"), 0o600))

	repo, err := token.NewFileTokenRepository(context.Background(), "default", token.FileTokenRepositoryConfig{Path: path})
	require.NoError(t, err)

	_, _, err = repo.LoadToken(context.Background())
	require.Error(t, err)
}

func TestRedisTokenRepository_TTL(t *testing.T) {
	t.Parallel()

	mr := newMiniredis(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := token.NewRedisTokenRepositoryWithClient(rdb, "default", token.RedisTokenRepositoryConfig{
		KeyPrefix: "authshell:token:",
		TTL:       time.Minute,
	})

	require.NoError(t, repo.StoreToken(context.Background(), "expiring"))
	assert.Equal(t, time.Minute, mr.TTL("authshell:token:default"))

	mr.FastForward(2 * time.Minute)

	_, ok, err := repo.LoadToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenRepositoryFactory(t *testing.T) {
	t.Parallel()

	repo, err := token.TokenRepositoryFactory(token.RepositoryConfig{Backend: token.BackendMemory})(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &token.MemoryTokenRepository{}, repo)

	_, err = token.TokenRepositoryFactory(token.RepositoryConfig{Backend: "etcd"})(context.Background())
	require.ErrorIs(t, err, token.ErrUnknownBackend)
}
