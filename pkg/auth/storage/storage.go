// Package storage keeps connection secrets between shell sessions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotFound is returned when no secret is stored for an account.
var ErrNotFound = errors.New("credential not found")

// CredentialStore stores one secret per account.
type CredentialStore interface {
	// Save stores secret for account, replacing any previous value.
	Save(ctx context.Context, account, secret string) error
	// Load returns the secret stored for account or ErrNotFound.
	Load(ctx context.Context, account string) (string, error)
	// Delete removes the secret for account. Deleting a missing secret succeeds.
	Delete(ctx context.Context, account string) error
}

// Account returns the store key of a user on a server, e.g.
// "Administrator@localhost:8080". Scheme and path of host are ignored.
func Account(username, host string) string {
	h := host
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		h = u.Host
	}
	return fmt.Sprintf("%s@%s", username, strings.TrimSuffix(h, "/"))
}
