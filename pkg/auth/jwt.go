package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims holds the claims nxshell reads from a bearer token.
type JWTClaims struct {
	Subject           string
	PreferredUsername string
	Username          string
	ExpiresAt         time.Time
	Issuer            string
}

// ParseJWT decodes a token without verifying it. Only malformed tokens fail;
// expired tokens and bad signatures are left for the server to reject.
func ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("failed to extract claims from token")
	}

	out := &JWTClaims{}
	out.Subject, _ = claims["sub"].(string)
	out.PreferredUsername, _ = claims["preferred_username"].(string)
	out.Username, _ = claims["username"].(string)
	out.Issuer, _ = claims["iss"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// Expired reports whether the token carries an expiry in the past.
func (c *JWTClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ExtractUsername returns the user a token was issued to. It tries
// preferred_username, then username, then sub.
func ExtractUsername(tokenString string) (string, error) {
	claims, err := ParseJWT(tokenString)
	if err != nil {
		return "", err
	}
	switch {
	case claims.PreferredUsername != "":
		return claims.PreferredUsername, nil
	case claims.Username != "":
		return claims.Username, nil
	case claims.Subject != "":
		return claims.Subject, nil
	}
	return "", fmt.Errorf("no username found in token claims")
}
