package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
)

// FileTokenRepositoryConfig holds configuration for the file-based token repository.
type FileTokenRepositoryConfig struct {
	// Path is the YAML credentials file
	Path string `env:"PATH" default:"var/storage/credentials.yaml"`
}

// credentialsFile is the on-disk layout: one entry per profile.
type credentialsFile struct {
	Profiles map[string]storedToken `yaml:"profiles"`
}

type storedToken struct {
	Token     string    `yaml:"token"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// FileTokenRepository implements Repository with a YAML file readable only by
// the owner. Writes go to a temporary file that is renamed over the original.
type FileTokenRepository struct {
	path    string
	profile string
	log     logging.Logger
	m       *sync.Mutex
}

var _ Repository = (*FileTokenRepository)(nil)

// NewFileTokenRepository creates a FileTokenRepository, creating the parent
// directory if needed.
func NewFileTokenRepository(
	ctx context.Context,
	profile string,
	cfg FileTokenRepositoryConfig,
) (*FileTokenRepository, error) {
	log := logging.GetLogger("repo.token.file_token_repository").With(
		logging.Group("file", "path", cfg.Path, "profile", profile),
	)

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	log.DebugContext(ctx, "token repository opened")

	return &FileTokenRepository{
		path:    cfg.Path,
		profile: profile,
		log:     log,
		m:       new(sync.Mutex),
	}, nil
}

// LoadToken implements Repository.LoadToken.
func (r *FileTokenRepository) LoadToken(context.Context) (string, bool, error) {
	r.m.Lock()
	defer r.m.Unlock()

	creds, err := r.read()
	if err != nil {
		return "", false, err
	}

	stored, ok := creds.Profiles[r.profile]
	if !ok || stored.Token == "" {
		return "", false, nil
	}

	return stored.Token, true, nil
}

// StoreToken implements Repository.StoreToken.
func (r *FileTokenRepository) StoreToken(_ context.Context, token string) error {
	r.m.Lock()
	defer r.m.Unlock()

	creds, err := r.read()
	if err != nil {
		return err
	}

	creds.Profiles[r.profile] = storedToken{Token: token, UpdatedAt: time.Now().UTC()}

	return r.write(creds)
}

// DeleteToken implements Repository.DeleteToken.
func (r *FileTokenRepository) DeleteToken(context.Context) error {
	r.m.Lock()
	defer r.m.Unlock()

	creds, err := r.read()
	if err != nil {
		return err
	}

	if _, ok := creds.Profiles[r.profile]; !ok {
		return nil
	}

	delete(creds.Profiles, r.profile)

	if len(creds.Profiles) == 0 {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove credentials file: %w", err)
		}

		return nil
	}

	return r.write(creds)
}

// Close implements Repository.Close.
func (r *FileTokenRepository) Close() error {
	return nil
}

func (r *FileTokenRepository) read() (credentialsFile, error) {
	creds := credentialsFile{Profiles: make(map[string]storedToken)}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return creds, nil
		}

		return creds, fmt.Errorf("read credentials file: %w", err)
	}

	if err := yaml.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("parse credentials file: %w", err)
	}

	if creds.Profiles == nil {
		creds.Profiles = make(map[string]storedToken)
	}

	return creds, nil
}

func (r *FileTokenRepository) write(creds credentialsFile) (err error) {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}

	return nil
}
