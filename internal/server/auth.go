package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/imprint-ph/imprint-annotator/internal/config"
	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

// Authenticator resolves a request to a verified contributor username.
// Credential verification lives entirely behind this interface; the service
// never sees passwords.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// TokenAuthenticator authenticates bearer tokens against the config token
// table. It is the reference implementation; deployments with an identity
// provider swap in their own Authenticator.
type TokenAuthenticator struct {
	byToken map[string]string
}

var _ Authenticator = (*TokenAuthenticator)(nil)

func NewTokenAuthenticator(auth map[string]*config.ConfigAuth) *TokenAuthenticator {
	byToken := make(map[string]string, len(auth))
	for username, a := range auth {
		if a != nil && a.Token != "" {
			byToken[a.Token] = username
		}
	}
	return &TokenAuthenticator{byToken: byToken}
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("missing bearer token: %w", domain.ErrUnauthorized)
	}
	username, ok := a.byToken[strings.TrimSpace(token)]
	if !ok {
		return "", fmt.Errorf("unrecognized token: %w", domain.ErrUnauthorized)
	}
	return username, nil
}
