package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAuthenticator verifies bearer ID tokens issued by an OpenID Connect
// provider. Roles are read from the "groups" claim, or from Keycloak's
// "realm_access.roles" when "groups" is absent.
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator discovers the provider at issuerURL and verifies tokens
// issued for clientID. Discovery needs the provider to be reachable.
func NewOIDCAuthenticator(ctx context.Context, issuerURL, clientID string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("error discovering OIDC provider %q: %w", issuerURL, err)
	}
	return NewOIDCAuthenticatorWithVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// NewOIDCAuthenticatorWithVerifier returns an OIDCAuthenticator using v.
func NewOIDCAuthenticatorWithVerifier(v *oidc.IDTokenVerifier) *OIDCAuthenticator {
	return &OIDCAuthenticator{verifier: v}
}

type oidcClaims struct {
	PreferredUsername string   `json:"preferred_username"`
	Groups            []string `json:"groups"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func (a *OIDCAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, ErrNoCredentials
	}

	idToken, err := a.verifier.Verify(r.Context(), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	var c oidcClaims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("%w: error decoding claims: %w", ErrInvalidCredentials, err)
	}

	roles := c.Groups
	if len(roles) == 0 {
		roles = c.RealmAccess.Roles
	}
	return &Principal{Name: principalName(c.PreferredUsername, idToken.Subject), Roles: roles}, nil
}
