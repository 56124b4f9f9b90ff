package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
)

func TestResolve_AutoProvisionsFirstTenant(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.sessions.Resolve(ctx, subject("s1"))
	require.NoError(t, err)

	scoped, ok := out.(domain.ScopedSession)
	require.True(t, ok, "expected a scoped session, got %T", out)
	require.True(t, scoped.Provisioned)
	require.Equal(t, "s1's workspace", scoped.Tenant.Name)
	require.Equal(t, scoped.Tenant.ID, scoped.Token.TenantID)
	require.Equal(t, domain.RoleAdmin, scoped.Token.Role)

	ms, err := h.store.Memberships().ListMembershipsByAccount(ctx, scoped.Token.AccountID)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	require.Equal(t, domain.MembershipActive, ms[0].Status)
	require.Equal(t, domain.RoleAdmin, ms[0].Role)

	claims := h.claims(t, scoped.Token)
	require.Equal(t, scoped.Tenant.ID, claims.TenantID)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "https://idp.test|s1", claims.IdPSubject)

	// Re-resolving lands in the same tenant without creating another.
	again, err := h.sessions.Resolve(ctx, subject("s1"))
	require.NoError(t, err)
	scoped2, ok := again.(domain.ScopedSession)
	require.True(t, ok)
	require.False(t, scoped2.Provisioned)
	require.Equal(t, scoped.Tenant.ID, scoped2.Tenant.ID)
	require.Equal(t, scoped.Token.AccountID, scoped2.Token.AccountID)

	n, err := h.store.Tenants().CountTenants(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestResolve_SingleActiveMembership(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	acct := h.account(t, subject("solo"))
	tn := h.tenant(t, "Acme")
	h.membership(t, acct, tn, domain.RoleMember, domain.MembershipActive)

	// A rejected invite elsewhere does not make the choice ambiguous.
	other := h.tenant(t, "Other")
	h.membership(t, acct, other, domain.RoleMember, domain.MembershipRejected)

	out, err := h.sessions.Resolve(context.Background(), subject("solo"))
	require.NoError(t, err)

	scoped, ok := out.(domain.ScopedSession)
	require.True(t, ok, "expected a scoped session, got %T", out)
	require.False(t, scoped.Provisioned)
	require.Equal(t, tn.ID, scoped.Tenant.ID)
	require.Equal(t, "Acme", scoped.Tenant.Name)
	require.Equal(t, domain.RoleMember, scoped.Token.Role)
}

func TestResolve_SelectionRequired(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		statuses []domain.MembershipStatus
	}{
		{"two active", []domain.MembershipStatus{domain.MembershipActive, domain.MembershipActive}},
		{"active then invited", []domain.MembershipStatus{domain.MembershipActive, domain.MembershipInvited}},
		{"invited then active", []domain.MembershipStatus{domain.MembershipInvited, domain.MembershipActive}},
		{"invited only", []domain.MembershipStatus{domain.MembershipInvited}},
		{"three active and a rejection", []domain.MembershipStatus{
			domain.MembershipRejected, domain.MembershipActive, domain.MembershipActive, domain.MembershipActive,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			acct := h.account(t, subject("multi"))
			for _, st := range tc.statuses {
				h.membership(t, acct, h.tenant(t, "T"), domain.RoleMember, st)
			}

			out, err := h.sessions.Resolve(context.Background(), subject("multi"))
			require.NoError(t, err)

			sel, ok := out.(domain.SelectionRequired)
			require.True(t, ok, "expected selection, got %T", out)
			require.False(t, sel.Token.Scoped())
			require.Empty(t, h.claims(t, sel.Token).TenantID)

			n, err := h.store.Tenants().CountTenants(context.Background())
			require.NoError(t, err)
			require.Equal(t, len(tc.statuses), n, "no tenant is provisioned")
		})
	}
}

func TestResolve_RequiresSubject(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.sessions.Resolve(context.Background(), domain.VerifiedSubject{Subject: "  "})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResolve_ConcurrentFirstLoginsProvisionOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	const n = 8
	var wg sync.WaitGroup
	tenants := make(chan string, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.sessions.Resolve(context.Background(), subject("racer"))
			if err != nil {
				return
			}
			if s, ok := out.(domain.ScopedSession); ok {
				tenants <- s.Tenant.ID
			}
		}()
	}
	wg.Wait()
	close(tenants)

	seen := map[string]struct{}{}
	for id := range tenants {
		seen[id] = struct{}{}
	}
	require.Len(t, seen, 1)

	count, err := h.store.Tenants().CountTenants(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestResolve_ProvisionRollsBackOnGrantFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	svc := &SessionService{Store: failingGrantStore{Store: h.store}, Tokens: h.tokens}
	ctx := context.Background()

	_, err := svc.Resolve(ctx, subject("unlucky"))
	require.ErrorIs(t, err, errGrantFailed)

	n, err := h.store.Tenants().CountTenants(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "tenant insert must be rolled back")

	// The healthy path still works afterwards.
	out, err := h.sessions.Resolve(ctx, subject("unlucky"))
	require.NoError(t, err)
	require.IsType(t, domain.ScopedSession{}, out)
}

// Scenario B: two active tenants, explicit selection, then a switch.
func TestSelectThenSwitch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	acct := h.account(t, subject("s1"))
	t1 := h.tenant(t, "T1")
	t2 := h.tenant(t, "T2")
	h.membership(t, acct, t1, domain.RoleAdmin, domain.MembershipActive)
	h.membership(t, acct, t2, domain.RoleMember, domain.MembershipActive)

	out, err := h.sessions.Resolve(ctx, subject("s1"))
	require.NoError(t, err)
	require.IsType(t, domain.SelectionRequired{}, out)

	sel, err := h.sessions.SelectTenant(ctx, subject("s1"), t2.ID)
	require.NoError(t, err)
	require.Equal(t, t2.ID, sel.Token.TenantID)
	require.Equal(t, domain.RoleMember, sel.Token.Role)
	c2 := h.claims(t, sel.Token)
	require.Equal(t, t2.ID, c2.TenantID)

	sw, err := h.sessions.SwitchTenant(ctx, c2, t1.ID)
	require.NoError(t, err)
	require.Equal(t, t1.ID, sw.Token.TenantID)
	require.Equal(t, domain.RoleAdmin, sw.Token.Role)
	require.Equal(t, sel.Token.SessionID, sw.Token.SessionID, "switch keeps the session id")
	require.NotEqual(t, sel.Token.Token, sw.Token.Token)
}

func TestSelectTenantForSession_KeepsSessionID(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	acct := h.account(t, subject("s1"))
	t1 := h.tenant(t, "T1")
	t2 := h.tenant(t, "T2")
	h.membership(t, acct, t1, domain.RoleMember, domain.MembershipActive)
	h.membership(t, acct, t2, domain.RoleMember, domain.MembershipActive)

	out, err := h.sessions.Resolve(ctx, subject("s1"))
	require.NoError(t, err)
	sel := out.(domain.SelectionRequired)
	require.Len(t, sel.Active, 2)

	scoped, err := h.sessions.SelectTenantForSession(ctx, h.claims(t, sel.Token), t1.ID)
	require.NoError(t, err)
	require.Equal(t, sel.Token.SessionID, scoped.Token.SessionID)
	require.Equal(t, t1.ID, scoped.Tenant.ID)
}

func TestSelectTenant_Forbidden(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	acct := h.account(t, subject("s1"))
	invited := h.tenant(t, "Invited")
	rejected := h.tenant(t, "Rejected")
	foreign := h.tenant(t, "Foreign")
	h.membership(t, acct, invited, domain.RoleMember, domain.MembershipInvited)
	h.membership(t, acct, rejected, domain.RoleMember, domain.MembershipRejected)

	cases := map[string]struct {
		subj     domain.VerifiedSubject
		tenantID string
	}{
		"unknown tenant":  {subject("s1"), "01J00000000000000000000000"},
		"not a member":    {subject("s1"), foreign.ID},
		"invited only":    {subject("s1"), invited.ID},
		"rejected":        {subject("s1"), rejected.ID},
		"unknown subject": {subject("nobody"), foreign.ID},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.sessions.SelectTenant(ctx, tc.subj, tc.tenantID)
			require.ErrorIs(t, err, domain.ErrForbidden)
		})
	}

	_, err := h.sessions.SelectTenant(ctx, subject("s1"), "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSwitchTenant_RequiresScopedSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	acct := h.account(t, subject("s1"))
	t1 := h.tenant(t, "T1")
	t2 := h.tenant(t, "T2")
	h.membership(t, acct, t1, domain.RoleMember, domain.MembershipActive)
	h.membership(t, acct, t2, domain.RoleMember, domain.MembershipActive)

	out, err := h.sessions.Resolve(ctx, subject("s1"))
	require.NoError(t, err)
	unscoped := h.claims(t, out.(domain.SelectionRequired).Token)

	_, err = h.sessions.SwitchTenant(ctx, unscoped, t1.ID)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	sel, err := h.sessions.SelectTenant(ctx, subject("s1"), t1.ID)
	require.NoError(t, err)
	_, err = h.sessions.SwitchTenant(ctx, h.claims(t, sel.Token), h.tenant(t, "T3").ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateTenant(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.sessions.Resolve(ctx, subject("founder"))
	require.NoError(t, err)
	first := out.(domain.ScopedSession)
	current := h.claims(t, first.Token)

	created, err := h.sessions.CreateTenant(ctx, current, "  Second Co  ")
	require.NoError(t, err)
	require.Equal(t, "Second Co", created.Tenant.Name)
	require.Equal(t, created.Tenant.ID, created.Token.TenantID)
	require.Equal(t, domain.RoleAdmin, created.Token.Role)
	require.Equal(t, first.Token.SessionID, created.Token.SessionID)

	c, err := h.sessions.ListCandidates(ctx, current.Subject)
	require.NoError(t, err)
	require.Len(t, c.Active, 2)
	require.Empty(t, c.Invited)

	_, err = h.sessions.CreateTenant(ctx, current, "   ")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExitDecision(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	acct := h.account(t, subject("leaver"))
	t1 := h.tenant(t, "T1")
	h.membership(t, acct, t1, domain.RoleMember, domain.MembershipActive)

	destroy, err := h.sessions.ExitDecision(ctx, acct.ID)
	require.NoError(t, err)
	require.True(t, destroy, "one active and no invites ends the session")

	t2 := h.tenant(t, "T2")
	h.membership(t, acct, t2, domain.RoleMember, domain.MembershipInvited)

	destroy, err = h.sessions.ExitDecision(ctx, acct.ID)
	require.NoError(t, err)
	require.False(t, destroy, "a pending invite sends the client back to selection")
}

func TestUnscope(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := h.sessions.Resolve(context.Background(), subject("s1"))
	require.NoError(t, err)
	scoped := out.(domain.ScopedSession)
	current := h.claims(t, scoped.Token)

	tok, err := h.sessions.Unscope(current)
	require.NoError(t, err)
	require.False(t, tok.Scoped())

	c := h.claims(t, tok)
	require.Empty(t, c.TenantID)
	require.Equal(t, current.Subject, c.Subject)
	require.Equal(t, current.SID, c.SID)
}
