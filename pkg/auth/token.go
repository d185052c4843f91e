package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenAuth authenticates with a bearer token.
//
// Opaque tokens are accepted; when the token is a JWT its username claim is
// used as the expected identity.
type TokenAuth struct {
	token    string
	username string
}

// NewTokenAuth creates a bearer token authenticator.
func NewTokenAuth(token string) (*TokenAuth, error) {
	if token == "" {
		return nil, fmt.Errorf("token auth: token is required: %w", ErrMissingCredentials)
	}
	t := &TokenAuth{token: token}
	if name, err := ExtractUsername(token); err == nil {
		t.username = name
	}
	return t, nil
}

// Type returns the authentication type.
func (t *TokenAuth) Type() AuthType {
	return AuthTypeToken
}

// Username returns the token's user claim, or "" for opaque tokens.
func (t *TokenAuth) Username() string {
	return t.username
}

// Wrap returns an oauth2 client that sends the token as a bearer credential.
func (t *TokenAuth) Wrap(base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: t.token,
		TokenType:   "Bearer",
	}))
	c.Timeout = base.Timeout
	c.CheckRedirect = base.CheckRedirect
	c.Jar = base.Jar
	return c
}
