package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
)

// User is a locally configured account.
type User struct {
	Password string
	Roles    []string
}

// BasicAuthenticator checks HTTP basic credentials against configured users.
type BasicAuthenticator struct {
	users map[string]User
}

// NewBasicAuthenticator returns a BasicAuthenticator for users keyed by name.
func NewBasicAuthenticator(users map[string]User) *BasicAuthenticator {
	return &BasicAuthenticator{users: users}
}

func (a *BasicAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	name, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrNoCredentials
	}

	u, found := a.users[name]
	if !found || subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return nil, fmt.Errorf("%w: unknown user or wrong password", ErrInvalidCredentials)
	}

	return &Principal{Name: name, Roles: u.Roles}, nil
}
