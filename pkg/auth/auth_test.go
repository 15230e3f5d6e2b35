package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodDelete, "/fruits/1", nil)
}

func TestBasicAuthenticator(t *testing.T) {
	a := NewBasicAuthenticator(map[string]User{
		"alice": {Password: "alice123", Roles: []string{"admin", "user"}},
		"bob":   {Password: "bob123", Roles: []string{"guest"}},
	})

	t.Run("valid credentials", func(t *testing.T) {
		r := newRequest()
		r.SetBasicAuth("alice", "alice123")

		p, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "alice", p.Name)
		assert.True(t, p.HasRole("user"))
	})

	t.Run("wrong password", func(t *testing.T) {
		r := newRequest()
		r.SetBasicAuth("alice", "nope")

		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		r := newRequest()
		r.SetBasicAuth("mallory", "alice123")

		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := a.Authenticate(newRequest())
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestJWTAuthenticator(t *testing.T) {
	a := NewJWTAuthenticator([]byte("test-secret"), "fruitstand")

	t.Run("valid token", func(t *testing.T) {
		token, err := a.SignToken("alice", []string{"user"}, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		require.NoError(t, err)

		r := newRequest()
		r.Header.Set("Authorization", "Bearer "+token)

		p, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "alice", p.Name)
		assert.Equal(t, []string{"user"}, p.Roles)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := a.SignToken("alice", []string{"user"}, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		})
		require.NoError(t, err)

		r := newRequest()
		r.Header.Set("Authorization", "Bearer "+token)

		_, err = a.Authenticate(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTAuthenticator([]byte("other-secret"), "fruitstand")
		token, err := other.SignToken("alice", []string{"user"}, jwt.RegisteredClaims{})
		require.NoError(t, err)

		r := newRequest()
		r.Header.Set("Authorization", "Bearer "+token)

		_, err = a.Authenticate(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTAuthenticator([]byte("test-secret"), "someone-else")
		token, err := other.SignToken("alice", []string{"user"}, jwt.RegisteredClaims{})
		require.NoError(t, err)

		r := newRequest()
		r.Header.Set("Authorization", "Bearer "+token)

		_, err = a.Authenticate(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("basic credentials are ignored", func(t *testing.T) {
		r := newRequest()
		r.SetBasicAuth("alice", "alice123")

		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestOIDCAuthenticator(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	const issuer = "https://sso.example.com/realms/fruits"
	verifier := oidc.NewVerifier(issuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}},
		&oidc.Config{ClientID: "fruitstand"})
	a := NewOIDCAuthenticatorWithVerifier(verifier)

	sign := func(t *testing.T, claims jwt.MapClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	t.Run("realm roles", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{
			"iss":                issuer,
			"aud":                "fruitstand",
			"sub":                "b6f1",
			"preferred_username": "alice",
			"exp":                time.Now().Add(time.Hour).Unix(),
			"iat":                time.Now().Unix(),
			"realm_access":       map[string]any{"roles": []string{"user"}},
		})

		r := newRequest()
		r.Header.Set("Authorization", "Bearer "+token)

		p, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "alice", p.Name)
		assert.True(t, p.HasRole("user"))
	})

	t.Run("wrong audience", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{
			"iss": issuer,
			"aud": "someone-else",
			"sub": "b6f1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		r := newRequest()
		r.Header.Set("Authorization", "Bearer "+token)

		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestChain(t *testing.T) {
	basic := NewBasicAuthenticator(map[string]User{"alice": {Password: "alice123", Roles: []string{"user"}}})
	hmac := NewJWTAuthenticator([]byte("secret"), "")
	chain := Chain{basic, hmac}

	t.Run("basic", func(t *testing.T) {
		r := newRequest()
		r.SetBasicAuth("alice", "alice123")
		p, err := chain.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "alice", p.Name)
	})

	t.Run("bearer", func(t *testing.T) {
		token, err := hmac.SignToken("carol", []string{"user"}, jwt.RegisteredClaims{})
		require.NoError(t, err)
		r := newRequest()
		r.Header.Set("Authorization", "Bearer "+token)

		p, err := chain.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "carol", p.Name)
	})

	t.Run("nothing", func(t *testing.T) {
		_, err := chain.Authenticate(newRequest())
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("rejected bearer", func(t *testing.T) {
		r := newRequest()
		r.Header.Set("Authorization", "Bearer garbage")
		_, err := chain.Authenticate(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPrincipalContext(t *testing.T) {
	assert.Nil(t, GetPrincipal(context.Background()))

	ctx := WithPrincipal(context.Background(), &Principal{Name: "alice", Roles: []string{"user"}})
	p := GetPrincipal(ctx)
	require.NotNil(t, p)
	assert.True(t, p.HasRole("user"))
	assert.False(t, p.HasRole("admin"))

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.HasRole("user"))
}
