// Package auth provides the authenticators used to talk to a Nuxeo server.
//
// An Authenticator decorates the shell's base *http.Client so that every
// request carries the credentials of the session. Basic authentication and
// bearer tokens are supported; passwords can be kept in the OS keyring
// through the storage subpackage.
package auth

import (
	"errors"
	"net/http"
)

// AuthType identifies an authentication scheme.
type AuthType string

const (
	// AuthTypeBasic is HTTP Basic authentication.
	AuthTypeBasic AuthType = "basic"
	// AuthTypeToken is bearer token authentication.
	AuthTypeToken AuthType = "token"
)

// ErrMissingCredentials is returned when an authenticator lacks its secret.
var ErrMissingCredentials = errors.New("missing credentials")

// Authenticator attaches credentials to outgoing requests.
type Authenticator interface {
	// Type returns the authentication scheme.
	Type() AuthType
	// Username returns the identity the credentials claim, or "" if unknown.
	Username() string
	// Wrap returns a client that authenticates every request sent through it.
	// The base client is not modified.
	Wrap(base *http.Client) *http.Client
}

// transport returns the round tripper of c, defaulting to http.DefaultTransport.
func transport(c *http.Client) http.RoundTripper {
	if c == nil || c.Transport == nil {
		return http.DefaultTransport
	}
	return c.Transport
}

// clone returns a shallow copy of c with rt as its transport.
func clone(c *http.Client, rt http.RoundTripper) *http.Client {
	if c == nil {
		return &http.Client{Transport: rt}
	}
	cp := *c
	cp.Transport = rt
	return &cp
}
