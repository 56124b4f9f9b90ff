package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

var ErrNoSigningKey = errors.New("no signing key available")

// TokenService mints and verifies session tokens. Signing is CPU only and
// never touches the store.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// IssueScoped mints a token bound to m's tenant. The caller must have read m
// as ACTIVE within the current request.
func (s *TokenService) IssueScoped(acct domain.Account, m domain.Membership, sessionID string) (domain.SessionToken, error) {
	if m.Status != domain.MembershipActive || m.AccountID != acct.ID {
		return domain.SessionToken{}, fmt.Errorf("issue scoped token: %w", domain.ErrForbidden)
	}
	return s.issue(acct, m.TenantID, m.Role, sessionID)
}

// IssueUnscoped mints a token that establishes identity only.
func (s *TokenService) IssueUnscoped(acct domain.Account, sessionID string) (domain.SessionToken, error) {
	return s.issue(acct, "", "", sessionID)
}

func (s *TokenService) issue(acct domain.Account, tenantID string, role domain.Role, sessionID string) (domain.SessionToken, error) {
	signer := s.KeyManager.GetSigner()
	if signer == nil {
		return domain.SessionToken{}, ErrNoSigningKey
	}

	claims := jwtx.NewSessionClaims(jwtx.SessionParams{
		AccountID:  acct.ID,
		SessionID:  sessionID,
		TenantID:   tenantID,
		Role:       string(role),
		Email:      acct.Email,
		Name:       acct.DisplayName,
		IdPSubject: acct.Subject,
		Issuer:     s.Issuer,
		Audience:   s.Audience,
		TTL:        s.TTL,
		Now:        time.Now(),
	})

	raw, err := signer.Sign(claims)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	return domain.SessionToken{
		Token:     raw,
		SessionID: sessionID,
		AccountID: acct.ID,
		TenantID:  tenantID,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks a session token and returns its claims. Every failure is
// reported as domain.ErrUnauthenticated.
func (s *TokenService) Verify(raw string) (jwtx.Claims, error) {
	if raw == "" {
		return jwtx.Claims{}, fmt.Errorf("verify session token: %w", domain.ErrUnauthenticated)
	}
	claims, err := s.KeyManager.Verifier.Verify(raw)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("verify session token: %w: %v", domain.ErrUnauthenticated, err)
	}
	return claims, nil
}

// AccountFromClaims rebuilds the identity fields carried by a session token.
func AccountFromClaims(c jwtx.Claims) domain.Account {
	return domain.Account{
		ID:          c.Subject,
		Subject:     c.IdPSubject,
		Email:       c.Email,
		DisplayName: c.Name,
	}
}
