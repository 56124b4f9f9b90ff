package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
)

// storeErr classifies a store failure. Unreachable stores surface as
// domain.ErrUpstreamUnavailable; anything else is returned with context.
func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// forbidden is the single answer for a tenant or membership the caller
// cannot use, whether or not it exists.
func forbidden(op string) error {
	return fmt.Errorf("%s: %w", op, domain.ErrForbidden)
}
