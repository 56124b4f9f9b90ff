package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/pkg/idx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
	"github.com/aussiebroadwan/tenantgate/pkg/slogx"
)

const MaxTenantNameLength = 100

var tracer = otel.Tracer("github.com/aussiebroadwan/tenantgate/internal/gateway/service")

// SessionService is the tenant resolution engine. It decides, for a
// verified subject, whether a session can be scoped straight away, must wait
// for the client to pick a tenant, or needs a first tenant provisioned.
type SessionService struct {
	Store  store.Store
	Tokens *TokenService

	// DefaultTenantName names auto-provisioned tenants. Defaults to
	// "<display name>'s workspace".
	DefaultTenantName func(domain.Account) string
}

// Resolve runs the resolution table for subj. The account is created on
// first sight. Provisioning happens in the same transaction that read the
// empty membership list, with the account row locked, so concurrent first
// logins create exactly one tenant.
func (s *SessionService) Resolve(ctx context.Context, subj domain.VerifiedSubject) (domain.Outcome, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Resolve")
	defer span.End()
	log := slogx.FromContext(ctx)

	subj.Subject = strings.TrimSpace(subj.Subject)
	if subj.Subject == "" {
		return nil, fmt.Errorf("resolve: %w: subject is required", domain.ErrInvalidInput)
	}

	var (
		acct        domain.Account
		kind        domain.ResolutionKind
		active      []domain.TenantMembership
		invited     []domain.TenantMembership
		tenant      domain.Tenant
		scope       domain.Membership
		provisioned bool
	)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		acct, _, err = tx.Accounts().EnsureAccount(ctx, domain.Account{
			ID:          idx.New().String(),
			Subject:     subj.Subject,
			Email:       subj.Email,
			DisplayName: subj.DisplayName,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return storeErr("ensure account", err)
		}
		if err := tx.Accounts().LockAccount(ctx, acct.ID); err != nil {
			return storeErr("lock account", err)
		}

		ms, err := tx.Memberships().ListMembershipsByAccount(ctx, acct.ID)
		if err != nil {
			return storeErr("list memberships", err)
		}
		active, invited = domain.PartitionMemberships(ms)
		kind = domain.Decide(len(active), len(invited))

		switch kind {
		case domain.ResolveProvision:
			tenant, scope, err = s.provision(ctx, tx, acct, s.tenantName(acct))
			if err != nil {
				return err
			}
			provisioned = true
		case domain.ResolveSingle:
			scope = active[0].Membership
			tenant, err = tx.Tenants().GetTenant(ctx, scope.TenantID)
			if err != nil {
				return storeErr("get tenant", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		log.Error("resolve failed", slog.String("subject", subj.Subject), slog.Any("error", err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("tenantgate.resolution", kind.String()),
		attribute.Int("tenantgate.active", len(active)),
		attribute.Int("tenantgate.invited", len(invited)),
	)
	log.Info("session resolved",
		slog.String("account_id", acct.ID),
		slog.String("resolution", kind.String()),
		slog.Int("active", len(active)),
		slog.Int("invited", len(invited)),
	)

	sessionID := idx.New().String()
	if kind == domain.ResolveSelect {
		tok, err := s.Tokens.IssueUnscoped(acct, sessionID)
		if err != nil {
			return nil, err
		}
		return domain.SelectionRequired{Token: tok, Active: active, Invited: invited}, nil
	}

	tok, err := s.Tokens.IssueScoped(acct, scope, sessionID)
	if err != nil {
		return nil, err
	}
	return domain.ScopedSession{Token: tok, Tenant: tenant, Provisioned: provisioned}, nil
}

// provision creates a tenant with acct as its admin. Both rows are written
// through tx, so a failed grant takes the tenant with it on rollback.
func (s *SessionService) provision(ctx context.Context, tx store.Tx, acct domain.Account, name string) (domain.Tenant, domain.Membership, error) {
	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:        idx.New().String(),
		Name:      name,
		CreatedAt: now,
	}
	if err := tx.Tenants().CreateTenant(ctx, tenant); err != nil {
		return domain.Tenant{}, domain.Membership{}, storeErr("create tenant", err)
	}

	m := domain.Membership{
		ID:        idx.New().String(),
		AccountID: acct.ID,
		TenantID:  tenant.ID,
		Role:      domain.RoleAdmin,
		Status:    domain.MembershipActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Memberships().CreateMembership(ctx, m); err != nil {
		return domain.Tenant{}, domain.Membership{}, storeErr("grant admin membership", err)
	}
	return tenant, m, nil
}

func (s *SessionService) tenantName(acct domain.Account) string {
	if s.DefaultTenantName != nil {
		return s.DefaultTenantName(acct)
	}
	owner := acct.DisplayName
	if owner == "" {
		owner, _, _ = strings.Cut(acct.Email, "@")
	}
	if owner == "" {
		return "My workspace"
	}
	return owner + "'s workspace"
}

// SelectTenant scopes a session for the account behind subj. Unknown
// accounts, unknown tenants and non-ACTIVE memberships all fail with
// domain.ErrForbidden.
func (s *SessionService) SelectTenant(ctx context.Context, subj domain.VerifiedSubject, tenantID string) (domain.ScopedSession, error) {
	acct, err := store.Read(ctx, func(ctx context.Context) (domain.Account, error) {
		return s.Store.Accounts().GetAccountBySubject(ctx, subj.Subject)
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.ScopedSession{}, forbidden("select tenant")
	}
	if err != nil {
		return domain.ScopedSession{}, storeErr("select tenant", err)
	}
	return s.scope(ctx, acct.ID, tenantID, idx.New().String())
}

// SelectTenantForSession scopes an existing session, keeping its session id.
// Used when the client holds an unscoped token rather than a fresh assertion.
func (s *SessionService) SelectTenantForSession(ctx context.Context, current jwtx.Claims, tenantID string) (domain.ScopedSession, error) {
	if current.Subject == "" {
		return domain.ScopedSession{}, fmt.Errorf("select tenant: %w", domain.ErrUnauthenticated)
	}
	return s.scope(ctx, current.Subject, tenantID, current.SID)
}

// SwitchTenant moves an already scoped session to tenantID. The previous
// token stops being carried once the new one replaces it in transport.
func (s *SessionService) SwitchTenant(ctx context.Context, current jwtx.Claims, tenantID string) (domain.ScopedSession, error) {
	if !current.Scoped() {
		return domain.ScopedSession{}, fmt.Errorf("switch tenant: %w: a scoped session is required", domain.ErrUnauthenticated)
	}
	return s.scope(ctx, current.Subject, tenantID, current.SID)
}

// scope mints a token from a membership read inside a transaction, so the
// token never reflects a membership older than a committed change.
func (s *SessionService) scope(ctx context.Context, accountID, tenantID, sessionID string) (domain.ScopedSession, error) {
	ctx, span := tracer.Start(ctx, "SessionService.scope")
	defer span.End()
	log := slogx.FromContext(ctx)

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return domain.ScopedSession{}, fmt.Errorf("select tenant: %w: tenant_id is required", domain.ErrInvalidInput)
	}

	type read struct {
		acct   domain.Account
		m      domain.Membership
		tenant domain.Tenant
	}

	r, err := store.Read(ctx, func(ctx context.Context) (read, error) {
		var r read
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			var err error
			if r.acct, err = tx.Accounts().GetAccountByID(ctx, accountID); err != nil {
				return err
			}
			tm, err := tx.Memberships().GetMembershipForTenant(ctx, accountID, tenantID)
			if err != nil {
				return err
			}
			r.m = tm.Membership
			if r.m.Status != domain.MembershipActive {
				return nil
			}
			r.tenant, err = tx.Tenants().GetTenant(ctx, tenantID)
			return err
		})
		return r, err
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Warn("tenant selection denied", slog.String("account_id", accountID), slog.String("tenant_id", tenantID))
		return domain.ScopedSession{}, forbidden("select tenant")
	case err != nil:
		span.RecordError(err)
		return domain.ScopedSession{}, storeErr("select tenant", err)
	case r.m.Status != domain.MembershipActive:
		log.Warn("tenant selection denied",
			slog.String("account_id", accountID),
			slog.String("tenant_id", tenantID),
			slog.String("status", string(r.m.Status)),
		)
		return domain.ScopedSession{}, forbidden("select tenant")
	}

	if sessionID == "" {
		sessionID = idx.New().String()
	}
	tok, err := s.Tokens.IssueScoped(r.acct, r.m, sessionID)
	if err != nil {
		return domain.ScopedSession{}, err
	}
	span.SetAttributes(attribute.String("tenantgate.tenant_id", tenantID))
	return domain.ScopedSession{Token: tok, Tenant: r.tenant}, nil
}

// Candidates lists the tenants an account can select and its pending invites.
type Candidates struct {
	Active  []domain.TenantMembership
	Invited []domain.TenantMembership
}

// ListCandidates returns the account's ACTIVE and INVITED memberships.
func (s *SessionService) ListCandidates(ctx context.Context, accountID string) (Candidates, error) {
	ms, err := store.Read(ctx, func(ctx context.Context) ([]domain.TenantMembership, error) {
		return s.Store.Memberships().ListMembershipsByAccount(ctx, accountID)
	})
	if err != nil {
		return Candidates{}, storeErr("list candidates", err)
	}
	active, invited := domain.PartitionMemberships(ms)
	return Candidates{Active: active, Invited: invited}, nil
}

// CreateTenant creates a tenant with the caller as admin and scopes the
// session to it.
func (s *SessionService) CreateTenant(ctx context.Context, current jwtx.Claims, name string) (domain.ScopedSession, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxTenantNameLength {
		return domain.ScopedSession{}, fmt.Errorf("create tenant: %w: name must be 1 to %d characters", domain.ErrInvalidInput, MaxTenantNameLength)
	}

	var (
		acct   domain.Account
		tenant domain.Tenant
		m      domain.Membership
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if acct, err = tx.Accounts().GetAccountByID(ctx, current.Subject); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("create tenant: %w", domain.ErrUnauthenticated)
			}
			return storeErr("create tenant", err)
		}
		tenant, m, err = s.provision(ctx, tx, acct, name)
		return err
	})
	if err != nil {
		return domain.ScopedSession{}, err
	}

	slogx.FromContext(ctx).Info("tenant created",
		slog.String("tenant_id", tenant.ID),
		slog.String("account_id", acct.ID),
	)

	sessionID := current.SID
	if sessionID == "" {
		sessionID = idx.New().String()
	}
	tok, err := s.Tokens.IssueScoped(acct, m, sessionID)
	if err != nil {
		return domain.ScopedSession{}, err
	}
	return domain.ScopedSession{Token: tok, Tenant: tenant, Provisioned: true}, nil
}

// ExitDecision re-runs the membership enumeration and reports whether
// leaving the current tenant should end the session.
func (s *SessionService) ExitDecision(ctx context.Context, accountID string) (bool, error) {
	c, err := s.ListCandidates(ctx, accountID)
	if err != nil {
		return false, err
	}
	return domain.ShouldDestroySession(len(c.Active), len(c.Invited)), nil
}

// Unscope returns an identity-only token for the current session.
func (s *SessionService) Unscope(current jwtx.Claims) (domain.SessionToken, error) {
	return s.Tokens.IssueUnscoped(AccountFromClaims(current), current.SID)
}
