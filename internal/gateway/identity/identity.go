// Package identity verifies identity-provider assertions and yields the
// stable subject the gateway keys accounts on.
package identity

import (
	"context"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
)

// Assertion is what a client presents at login: either a raw ID token, or
// an authorization code with its PKCE verifier.
type Assertion struct {
	IDToken      string
	Code         string
	CodeVerifier string
}

// Verifier turns an assertion into a verified subject.
//
// Errors are classified as domain.ErrInvalidInput (nothing usable was
// presented), domain.ErrUnauthenticated (the assertion was rejected), or
// domain.ErrUpstreamUnavailable (the provider could not be reached).
type Verifier interface {
	Verify(ctx context.Context, a Assertion) (domain.VerifiedSubject, error)
}

// VerifierFunc adapts a function to a Verifier.
type VerifierFunc func(ctx context.Context, a Assertion) (domain.VerifiedSubject, error)

func (f VerifierFunc) Verify(ctx context.Context, a Assertion) (domain.VerifiedSubject, error) {
	return f(ctx, a)
}
