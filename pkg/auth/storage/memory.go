package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps secrets for the life of the process.
type MemoryStorage struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{secrets: make(map[string]string)}
}

// Save stores the secret.
func (m *MemoryStorage) Save(_ context.Context, account, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[account] = secret
	return nil
}

// Load returns the secret or ErrNotFound.
func (m *MemoryStorage) Load(_ context.Context, account string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.secrets[account]
	if !ok {
		return "", ErrNotFound
	}
	return s, nil
}

// Delete removes the secret.
func (m *MemoryStorage) Delete(_ context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, account)
	return nil
}
