package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStorage keeps secrets in the OS keyring.
type KeyringStorage struct {
	service string
}

// NewKeyringStorage creates a keyring store for the named service.
func NewKeyringStorage(service string) (*KeyringStorage, error) {
	if service == "" {
		return nil, fmt.Errorf("keyring service is required")
	}
	return &KeyringStorage{service: service}, nil
}

// Save stores the secret in the keyring.
func (k *KeyringStorage) Save(_ context.Context, account, secret string) error {
	if err := keyring.Set(k.service, account, secret); err != nil {
		return fmt.Errorf("failed to store credential in keyring: %w", err)
	}
	return nil
}

// Load retrieves the secret from the keyring.
func (k *KeyringStorage) Load(_ context.Context, account string) (string, error) {
	secret, err := keyring.Get(k.service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve credential from keyring: %w", err)
	}
	return secret, nil
}

// Delete removes the secret from the keyring.
func (k *KeyringStorage) Delete(_ context.Context, account string) error {
	if err := keyring.Delete(k.service, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete credential from keyring: %w", err)
	}
	return nil
}
