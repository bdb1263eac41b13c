package core

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is the opaque bearer credential returned by the verifier after
// a successful co-signed submission. Its expiry is enforced by the verifier;
// the local introspection below is advisory only and never a substitute for
// the verifier's own validation.
type AccessToken string

// TokenClaims is the subset of JWT claims this kit reads from an access token.
type TokenClaims struct {
	Subject   string    // the authenticated subject account
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ErrTokenUnparsable is returned when an access token is not a well-formed JWT
var ErrTokenUnparsable = errors.New("access token is not a parsable JWT")

// Claims parses the token without verifying its signature and returns the
// registered claims. Signature verification belongs to the verifier that
// issued the token; the origin only needs the claims for display and logging
// decisions.
func (t AccessToken) Claims() (TokenClaims, error) {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(string(t), &claims); err != nil {
		return TokenClaims{}, ErrTokenUnparsable
	}

	out := TokenClaims{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Expired reports whether the token's exp claim is in the past. Tokens
// without an exp claim or that fail to parse are treated as expired.
func (t AccessToken) Expired(now time.Time) bool {
	claims, err := t.Claims()
	if err != nil || claims.ExpiresAt.IsZero() {
		return true
	}
	return now.After(claims.ExpiresAt)
}
