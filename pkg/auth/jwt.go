package auth

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims read by JWTAuthenticator. Roles travel in the
// "groups" claim.
type Claims struct {
	Groups            []string `json:"groups,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWTAuthenticator returns a JWTAuthenticator. When issuer is not empty the
// "iss" claim must match it.
func NewJWTAuthenticator(secret []byte, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret, issuer: issuer}
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, ErrNoCredentials
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	return &Principal{Name: principalName(claims.PreferredUsername, claims.Subject), Roles: claims.Groups}, nil
}

// SignToken issues an HMAC token for subject holding roles. It is used by
// operators and tests to mint tokens accepted by JWTAuthenticator.
func (a *JWTAuthenticator) SignToken(subject string, roles []string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	if claims.Issuer == "" {
		claims.Issuer = a.issuer
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Groups: roles, RegisteredClaims: claims})
	return tok.SignedString(a.secret)
}

func principalName(preferred, subject string) string {
	if preferred != "" {
		return preferred
	}
	return subject
}
