package oidc

import (
	"context"
	"fmt"

	"github.com/cineverse/cineverse/backend/go-services/pkg/middleware"
	"github.com/coreos/go-oidc/v3/oidc"
)

// Verifier wraps the provider's OIDC discovery document and token verifier.
// The identity provider's frontend API is a standard OIDC issuer, so session
// tokens presented by the browser can be verified against its JWKS.
type Verifier struct {
	ctx      context.Context
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a verifier for the given issuer (the provider frontend
// API origin). Session tokens carry no audience claim, hence the skipped
// client-id check.
func NewVerifier(ctx context.Context, issuer string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return &Verifier{ctx: ctx, provider: provider, verifier: verifier}, nil
}

// Verify verifies the provided raw session token and returns a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
