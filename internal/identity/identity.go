// Package identity wraps the identity-provider boundary: who the current
// principal is and how to mint a bearer credential for upstream calls.
package identity

import (
	"context"
	"fmt"
	"strings"

	"contentgen/internal/domain"
)

// Principal is the opaque authenticated-principal handle issued by the
// identity provider. Absence of a Principal means the caller is anonymous.
type Principal struct {
	ID          string
	DisplayName string
}

// TokenSource mints a bearer credential. Minting may suspend while the
// provider issues a fresh token; failures must be surfaced, never retried
// silently, so the caller can fall back to the anonymous flow or abort.
type TokenSource interface {
	BearerToken(ctx context.Context) (string, error)
}

// Caller is a snapshot of who is making a request: a principal plus the
// token source that can authenticate it. The zero value is the anonymous
// caller.
type Caller struct {
	Principal *Principal
	Tokens    TokenSource
}

// Anonymous is the caller with no principal.
var Anonymous = Caller{}

func (c Caller) Authenticated() bool {
	return c.Principal != nil
}

// BearerToken mints a credential for the caller. Anonymous callers have no
// credential by definition.
func (c Caller) BearerToken(ctx context.Context) (string, error) {
	if !c.Authenticated() || c.Tokens == nil {
		return "", domain.ErrNoCredential
	}
	token, err := c.Tokens.BearerToken(ctx)
	if err != nil {
		return "", fmt.Errorf("mint bearer token: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return "", domain.ErrNoCredential
	}
	return token, nil
}

// StaticTokenSource returns a TokenSource that always yields the given
// token, e.g. a credential already presented by the client.
func StaticTokenSource(token string) TokenSource {
	return staticTokenSource(token)
}

type staticTokenSource string

func (s staticTokenSource) BearerToken(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", domain.ErrNoCredential
	}
	return string(s), nil
}
