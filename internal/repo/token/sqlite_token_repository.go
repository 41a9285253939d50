package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
)

// ErrReadOnly is returned when the token database cannot be written.
var ErrReadOnly = errors.New("token storage is read-only")

// SQLiteTokenRepositoryConfig holds configuration for the SQLite token repository.
type SQLiteTokenRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/authshell.db"`
}

// SQLiteTokenRepository implements Repository using SQLite as the storage backend.
type SQLiteTokenRepository struct {
	db        *sql.DB
	profile   string
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteTokenRepository)(nil)

// NewSQLiteTokenRepository opens (and if needed creates) the database and
// its schema. Returns an error if database connection or initialization fails.
func NewSQLiteTokenRepository(
	ctx context.Context,
	profile string,
	cfg SQLiteTokenRepositoryConfig,
) (*SQLiteTokenRepository, error) {
	log := logging.GetLogger("repo.token.sqlite_token_repository").With(
		logging.Group("db", "path", cfg.DatabasePath, "profile", profile),
	)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping db: %w", err), db.Close())
	}

	if err := initializeDB(ctx, db); err != nil {
		return nil, errors.Join(fmt.Errorf("initialize db: %w", err), db.Close())
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	log.DebugContext(ctx, "token repository opened")

	return &SQLiteTokenRepository{
		db:        db,
		profile:   profile,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_tokens (
			profile    TEXT    PRIMARY KEY,
			token      TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// LoadToken implements Repository.LoadToken using SQLite.
func (r *SQLiteTokenRepository) LoadToken(ctx context.Context) (string, bool, error) {
	var token string

	err := r.db.QueryRowContext(ctx,
		"SELECT token FROM session_tokens WHERE profile = ?",
		r.profile,
	).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("query token: %w", err)
	}

	return token, true, nil
}

// StoreToken implements Repository.StoreToken using SQLite.
func (r *SQLiteTokenRepository) StoreToken(ctx context.Context, token string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_tokens (profile, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (profile) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`,
		r.profile,
		token,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", classifyWriteError(err))
	}

	return nil
}

// DeleteToken implements Repository.DeleteToken using SQLite.
func (r *SQLiteTokenRepository) DeleteToken(ctx context.Context) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM session_tokens WHERE profile = ?", r.profile); err != nil {
		return fmt.Errorf("delete token: %w", classifyWriteError(err))
	}

	return nil
}

func classifyWriteError(err error) error {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_READONLY {
		return errors.Join(ErrReadOnly, err)
	}

	return err
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteTokenRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
