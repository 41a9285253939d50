package token

import (
	"context"
	"sync"
)

// MemoryTokenRepository keeps the token in process memory. It backs
// ephemeral runs and tests.
type MemoryTokenRepository struct {
	token string
	ok    bool
	m     sync.Mutex
}

var _ Repository = (*MemoryTokenRepository)(nil)

// NewMemoryTokenRepository creates an empty MemoryTokenRepository.
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return new(MemoryTokenRepository)
}

// LoadToken implements Repository.LoadToken.
func (r *MemoryTokenRepository) LoadToken(context.Context) (string, bool, error) {
	r.m.Lock()
	defer r.m.Unlock()

	return r.token, r.ok, nil
}

// StoreToken implements Repository.StoreToken.
func (r *MemoryTokenRepository) StoreToken(_ context.Context, token string) error {
	r.m.Lock()
	defer r.m.Unlock()

	r.token, r.ok = token, true

	return nil
}

// DeleteToken implements Repository.DeleteToken.
func (r *MemoryTokenRepository) DeleteToken(context.Context) error {
	r.m.Lock()
	defer r.m.Unlock()

	r.token, r.ok = "", false

	return nil
}

// Close implements Repository.Close.
func (r *MemoryTokenRepository) Close() error {
	return nil
}
