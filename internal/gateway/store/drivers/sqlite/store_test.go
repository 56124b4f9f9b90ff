package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantgate/pkg/idx"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAccount(t *testing.T, s store.Store, subject, email string) domain.Account {
	t.Helper()
	a, created, err := s.Accounts().EnsureAccount(context.Background(), domain.Account{
		ID:        idx.New().String(),
		Subject:   subject,
		Email:     email,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.True(t, created)
	return a
}

func seedTenant(t *testing.T, s store.Store, name string) domain.Tenant {
	t.Helper()
	tn := domain.Tenant{ID: idx.New().String(), Name: name, CreatedAt: time.Now()}
	require.NoError(t, s.Tenants().CreateTenant(context.Background(), tn))
	return tn
}

func seedMembership(t *testing.T, s store.Store, a domain.Account, tn domain.Tenant, status domain.MembershipStatus) domain.Membership {
	t.Helper()
	now := time.Now()
	m := domain.Membership{
		ID:        idx.New().String(),
		AccountID: a.ID,
		TenantID:  tn.ID,
		Role:      domain.RoleMember,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Memberships().CreateMembership(context.Background(), m))
	return m
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	first := seedAccount(t, s, "idp|alice", "alice@example.com")

	again, created, err := s.Accounts().EnsureAccount(ctx, domain.Account{
		ID:          idx.New().String(),
		Subject:     "idp|alice",
		Email:       "alice@new.example.com",
		DisplayName: "Alice",
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, "alice@new.example.com", again.Email)
	require.Equal(t, "Alice", again.DisplayName)

	byEmail, err := s.Accounts().GetAccountByEmail(ctx, "ALICE@new.example.com")
	require.NoError(t, err)
	require.Equal(t, first.ID, byEmail.ID)

	_, err = s.Accounts().GetAccountByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Accounts().LockAccount(ctx, "missing"), store.ErrNotFound)
}

func TestMembershipsUniquePerTenant(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	a := seedAccount(t, s, "idp|bob", "bob@example.com")
	tn := seedTenant(t, s, "acme")
	seedMembership(t, s, a, tn, domain.MembershipInvited)

	err := s.Memberships().CreateMembership(ctx, domain.Membership{
		ID:        idx.New().String(),
		AccountID: a.ID,
		TenantID:  tn.ID,
		Role:      domain.RoleAdmin,
		Status:    domain.MembershipActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestListMembershipsByAccount(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	a := seedAccount(t, s, "idp|carol", "carol@example.com")
	other := seedAccount(t, s, "idp|dave", "dave@example.com")
	t1 := seedTenant(t, s, "one")
	t2 := seedTenant(t, s, "two")

	seedMembership(t, s, a, t1, domain.MembershipActive)
	seedMembership(t, s, a, t2, domain.MembershipInvited)
	seedMembership(t, s, other, t1, domain.MembershipActive)

	ms, err := s.Memberships().ListMembershipsByAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	require.Equal(t, "one", ms[0].TenantName)
	require.Equal(t, domain.MembershipActive, ms[0].Status)
	require.Equal(t, "two", ms[1].TenantName)
	require.Equal(t, domain.MembershipInvited, ms[1].Status)

	got, err := s.Memberships().GetMembershipForTenant(ctx, a.ID, t2.ID)
	require.NoError(t, err)
	require.Equal(t, "two", got.TenantName)

	_, err = s.Memberships().GetMembershipForTenant(ctx, other.ID, t2.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateMembershipStatusIsCompareAndSwap(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	a := seedAccount(t, s, "idp|erin", "erin@example.com")
	tn := seedTenant(t, s, "acme")
	m := seedMembership(t, s, a, tn, domain.MembershipInvited)

	updated, err := s.Memberships().UpdateMembershipStatus(ctx, m.ID, domain.MembershipInvited, domain.MembershipActive)
	require.NoError(t, err)
	require.Equal(t, domain.MembershipActive, updated.Status)

	// Second attempt with the same expectation loses
	_, err = s.Memberships().UpdateMembershipStatus(ctx, m.ID, domain.MembershipInvited, domain.MembershipRejected)
	require.ErrorIs(t, err, store.ErrStatusMismatch)

	_, err = s.Memberships().UpdateMembershipStatus(ctx, "missing", domain.MembershipInvited, domain.MembershipActive)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Memberships().GetMembership(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MembershipActive, got.Status)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	tn := domain.Tenant{ID: idx.New().String(), Name: "doomed", CreatedAt: time.Now()}
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Tenants().CreateTenant(ctx, tn))
		// Foreign key failure on a membership for an unknown account
		return tx.Memberships().CreateMembership(ctx, domain.Membership{
			ID:        idx.New().String(),
			AccountID: "nobody",
			TenantID:  tn.ID,
			Role:      domain.RoleAdmin,
			Status:    domain.MembershipActive,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
	})
	require.Error(t, err)

	n, err := s.Tenants().CountTenants(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = s.Tenants().GetTenant(ctx, tn.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSigningKeys(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	keys := s.SigningKeys()
	require.NoError(t, keys.CreateSigningKey(ctx, domain.SigningKey{
		ID: idx.New().String(), Kid: "k1", Algorithm: "EdDSA", PrivateKeySealed: []byte{1},
		CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, keys.CreateSigningKey(ctx, domain.SigningKey{
		ID: idx.New().String(), Kid: "k2", Algorithm: "EdDSA", PrivateKeySealed: []byte{2},
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, keys.CreateSigningKey(ctx, domain.SigningKey{
		ID: idx.New().String(), Kid: "old", Algorithm: "EdDSA", PrivateKeySealed: []byte{3},
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	active, err := keys.ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "k2", active[0].Kid)

	require.NoError(t, keys.RetireSigningKey(ctx, "k1"))
	k1, err := keys.GetSigningKeyByKid(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, k1.RetiredAt)

	active, err = keys.ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, keys.DeleteExpiredSigningKeys(ctx))
	all, err := keys.ListAllSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
