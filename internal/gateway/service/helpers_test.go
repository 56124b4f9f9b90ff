package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantgate/pkg/idx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

const (
	testIssuer   = "https://gateway.test"
	testAudience = "tenantgate"
)

type harness struct {
	store    *sqlite.Store
	tokens   *TokenService
	sessions *SessionService
	invites  *InviteService
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestKeyManager(t *testing.T) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    testIssuer,
		Audience:  testAudience,
	})
	require.NoError(t, err)
	return km
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newTestStore(t)
	tokens := &TokenService{
		KeyManager: newTestKeyManager(t),
		Issuer:     testIssuer,
		Audience:   testAudience,
		TTL:        15 * time.Minute,
	}
	return &harness{
		store:    st,
		tokens:   tokens,
		sessions: &SessionService{Store: st, Tokens: tokens},
		invites:  &InviteService{Store: st},
	}
}

func subject(name string) domain.VerifiedSubject {
	return domain.VerifiedSubject{
		Subject:     "https://idp.test|" + name,
		Email:       name + "@example.com",
		DisplayName: name,
	}
}

func (h *harness) account(t *testing.T, subj domain.VerifiedSubject) domain.Account {
	t.Helper()
	a, _, err := h.store.Accounts().EnsureAccount(context.Background(), domain.Account{
		ID:          idx.New().String(),
		Subject:     subj.Subject,
		Email:       subj.Email,
		DisplayName: subj.DisplayName,
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	return a
}

func (h *harness) tenant(t *testing.T, name string) domain.Tenant {
	t.Helper()
	tn := domain.Tenant{ID: idx.New().String(), Name: name, CreatedAt: time.Now()}
	require.NoError(t, h.store.Tenants().CreateTenant(context.Background(), tn))
	return tn
}

func (h *harness) membership(t *testing.T, acct domain.Account, tn domain.Tenant, role domain.Role, status domain.MembershipStatus) domain.Membership {
	t.Helper()
	now := time.Now()
	m := domain.Membership{
		ID:        idx.New().String(),
		AccountID: acct.ID,
		TenantID:  tn.ID,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, h.store.Memberships().CreateMembership(context.Background(), m))
	return m
}

func (h *harness) claims(t *testing.T, tok domain.SessionToken) jwtx.Claims {
	t.Helper()
	c, err := h.tokens.Verify(tok.Token)
	require.NoError(t, err)
	return c
}

// failingGrantStore fails every membership insert made inside a transaction.
type failingGrantStore struct {
	store.Store
}

func (s failingGrantStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(failingGrantTx{innerTx: tx})
	})
}

// innerTx names the embedded store.Tx so the field does not shadow the
// promoted Tx method.
type innerTx = store.Tx

type failingGrantTx struct {
	innerTx
}

func (tx failingGrantTx) Memberships() store.Memberships {
	return failingMemberships{Memberships: tx.innerTx.Memberships()}
}

type failingMemberships struct {
	store.Memberships
}

var errGrantFailed = errors.New("grant failed")

func (failingMemberships) CreateMembership(context.Context, domain.Membership) error {
	return errGrantFailed
}
