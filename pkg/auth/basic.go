package auth

import (
	"fmt"
	"net/http"
)

// BasicAuth implements HTTP Basic authentication.
type BasicAuth struct {
	username string
	password string
}

// NewBasicAuth creates a Basic authenticator.
func NewBasicAuth(username, password string) (*BasicAuth, error) {
	if username == "" {
		return nil, fmt.Errorf("basic auth: username is required: %w", ErrMissingCredentials)
	}
	return &BasicAuth{username: username, password: password}, nil
}

// Type returns the authentication type.
func (b *BasicAuth) Type() AuthType {
	return AuthTypeBasic
}

// Username returns the configured user.
func (b *BasicAuth) Username() string {
	return b.username
}

// Wrap returns a client sending the Authorization header on every request.
func (b *BasicAuth) Wrap(base *http.Client) *http.Client {
	return clone(base, &basicTransport{
		username: b.username,
		password: b.password,
		next:     transport(base),
	})
}

type basicTransport struct {
	username string
	password string
	next     http.RoundTripper
}

func (t *basicTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.username, t.password)
	return t.next.RoundTrip(r)
}
