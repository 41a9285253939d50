package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
)

// RedisTokenRepositoryConfig holds configuration for the Redis token repository.
type RedisTokenRepositoryConfig struct {
	// Addr is the host:port of the Redis server
	Addr string `env:"ADDR" default:"localhost:6379"`

	// Password authenticates against Redis, empty for none
	Password string `env:"PASSWORD" default:""`

	// DB selects the Redis database
	DB int `env:"DB" default:"0"`

	// KeyPrefix namespaces the keys, the profile is appended
	KeyPrefix string `env:"KEY_PREFIX" default:"authshell:token:"`

	// TTL expires stored tokens, 0 keeps them until logout
	TTL time.Duration `env:"TTL" default:"0s"`
}

// RedisTokenRepository implements Repository on a Redis server, one string
// key per profile. It lets several client processes share a session.
type RedisTokenRepository struct {
	rdb *redis.Client
	key string
	ttl time.Duration
	log logging.Logger
}

var _ Repository = (*RedisTokenRepository)(nil)

// NewRedisTokenRepository connects to Redis and checks the connection.
func NewRedisTokenRepository(
	ctx context.Context,
	profile string,
	cfg RedisTokenRepositoryConfig,
) (*RedisTokenRepository, error) {
	//nolint:exhaustruct
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis: %w", err), rdb.Close())
	}

	return NewRedisTokenRepositoryWithClient(rdb, profile, cfg), nil
}

// NewRedisTokenRepositoryWithClient wraps an existing client.
func NewRedisTokenRepositoryWithClient(
	rdb *redis.Client,
	profile string,
	cfg RedisTokenRepositoryConfig,
) *RedisTokenRepository {
	key := cfg.KeyPrefix + profile

	return &RedisTokenRepository{
		rdb: rdb,
		key: key,
		ttl: cfg.TTL,
		log: logging.GetLogger("repo.token.redis_token_repository").With(logging.Group("redis", "key", key)),
	}
}

// LoadToken implements Repository.LoadToken.
func (r *RedisTokenRepository) LoadToken(ctx context.Context) (string, bool, error) {
	token, err := r.rdb.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("get token: %w", err)
	}

	return token, true, nil
}

// StoreToken implements Repository.StoreToken.
func (r *RedisTokenRepository) StoreToken(ctx context.Context, token string) error {
	if err := r.rdb.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("set token: %w", err)
	}

	r.log.DebugContext(ctx, "token stored", "ttl", r.ttl)

	return nil
}

// DeleteToken implements Repository.DeleteToken.
func (r *RedisTokenRepository) DeleteToken(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("del token: %w", err)
	}

	return nil
}

// Close implements Repository.Close.
func (r *RedisTokenRepository) Close() error {
	if err := r.rdb.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}

	return nil
}
