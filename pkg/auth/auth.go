// Package auth authenticates API callers and carries their roles in the
// request context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
)

var (
	// ErrNoCredentials is returned when the request carries no credentials the
	// authenticator understands.
	ErrNoCredentials = errors.New("no credentials")

	// ErrInvalidCredentials is returned when credentials were supplied but
	// could not be verified.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is an authenticated caller.
type Principal struct {
	Name  string
	Roles []string
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the principal stored in ctx, or nil.
func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// Authenticator verifies the credentials of a request.
type Authenticator interface {
	// Authenticate returns the caller, ErrNoCredentials when the request has
	// nothing for this authenticator, or an error wrapping
	// ErrInvalidCredentials.
	Authenticate(r *http.Request) (*Principal, error)
}

// Chain tries each authenticator in turn and returns the first principal
// found. Several authenticators may accept the same header (bearer tokens), so
// a rejection only stands when no later authenticator accepts the request.
type Chain []Authenticator

func (c Chain) Authenticate(r *http.Request) (*Principal, error) {
	var rejected error
	for _, a := range c {
		p, err := a.Authenticate(r)
		switch {
		case err == nil:
			return p, nil
		case errors.Is(err, ErrNoCredentials):
			continue
		case rejected == nil:
			rejected = err
		}
	}
	if rejected != nil {
		return nil, rejected
	}
	return nil, ErrNoCredentials
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}
