package gateway_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
)

// TestFirstLoginProvisionsTenant verifies that a new account gets a tenant
// of its own on first login, and that logging in again reuses it.
func TestFirstLoginProvisionsTenant(t *testing.T) {
	idp := startFakeIdP(t)
	baseURL := setupGateway(t, idp, nil)

	client, first := login(t, baseURL, idp, "alice")
	require.False(t, first.SelectionRequired)
	require.True(t, first.Provisioned)
	require.Equal(t, "admin", first.Role)
	require.NotNil(t, first.Tenant)

	info, err := client.Session(t.Context())
	require.NoError(t, err)
	require.True(t, info.Scoped)
	require.Equal(t, first.TenantID, info.TenantID)
	require.Equal(t, "alice@example.com", info.Email)

	_, second := login(t, baseURL, idp, "alice")
	require.False(t, second.Provisioned)
	require.Equal(t, first.TenantID, second.TenantID)
	require.Equal(t, first.AccountID, second.AccountID)
}

// TestInviteAcceptSwitchAndLogout runs the multi-tenant flow: an admin
// invites another account, which accepts, switches into the new tenant, and
// on logout drops back to tenant selection.
func TestInviteAcceptSwitchAndLogout(t *testing.T) {
	idp := startFakeIdP(t)
	baseURL := setupGateway(t, idp, nil)

	alice, aliceSess := login(t, baseURL, idp, "alice")
	bob, bobSess := login(t, baseURL, idp, "bob")

	invite, err := alice.IssueInvite(t.Context(), aliceSess.TenantID, gatewaysdk.IssueInviteRequest{
		Email: "bob@example.com",
		Role:  "member",
	})
	require.NoError(t, err)
	require.Equal(t, "INVITED", invite.Status)

	// bob cannot scope into a tenant he has only been invited to
	_, err = bob.Switch(t.Context(), aliceSess.TenantID)
	assertStatus(t, err, http.StatusForbidden)

	candidates, err := bob.ListTenants(t.Context())
	require.NoError(t, err)
	require.Len(t, candidates.Active, 1)
	require.Len(t, candidates.Invited, 1)
	require.Equal(t, invite.ID, candidates.Invited[0].ID)

	accepted, err := bob.RespondToInvite(t.Context(), invite.ID, gatewaysdk.DecisionAccept)
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", accepted.Status)

	switched, err := bob.Switch(t.Context(), aliceSess.TenantID)
	require.NoError(t, err)
	require.Equal(t, aliceSess.TenantID, switched.TenantID)
	require.Equal(t, "member", switched.Role)
	require.Equal(t, bobSess.SessionID, switched.SessionID, "switching keeps the session id")

	// members cannot invite
	_, err = bob.IssueInvite(t.Context(), aliceSess.TenantID, gatewaysdk.IssueInviteRequest{Email: "alice@example.com"})
	assertStatus(t, err, http.StatusForbidden)

	out, err := bob.Logout(t.Context(), false)
	require.NoError(t, err)
	require.Equal(t, gatewaysdk.LogoutReselect, out.Action)
	require.NotNil(t, out.Session)
	require.True(t, out.Session.SelectionRequired)

	info, err := bob.Session(t.Context())
	require.NoError(t, err)
	require.False(t, info.Scoped)

	out, err = bob.Logout(t.Context(), false)
	require.NoError(t, err)
	require.Equal(t, gatewaysdk.LogoutDestroyed, out.Action)

	_, err = bob.Session(t.Context())
	assertStatus(t, err, http.StatusUnauthorized)
}

// TestRejectedInviteIsIndistinguishable verifies that selecting a tenant
// whose invite was rejected fails exactly like selecting one that does not
// exist.
func TestRejectedInviteIsIndistinguishable(t *testing.T) {
	idp := startFakeIdP(t)
	baseURL := setupGateway(t, idp, nil)

	alice, aliceSess := login(t, baseURL, idp, "alice")
	bob, _ := login(t, baseURL, idp, "bob")

	invite, err := alice.IssueInvite(t.Context(), aliceSess.TenantID, gatewaysdk.IssueInviteRequest{Email: "bob@example.com"})
	require.NoError(t, err)

	_, err = bob.RespondToInvite(t.Context(), invite.ID, gatewaysdk.DecisionReject)
	require.NoError(t, err)

	_, rejectedErr := bob.Switch(t.Context(), aliceSess.TenantID)
	_, unknownErr := bob.Switch(t.Context(), "01J00000000000000000000000")

	var rejected, unknown *gatewaysdk.APIError
	require.ErrorAs(t, rejectedErr, &rejected)
	require.ErrorAs(t, unknownErr, &unknown)
	require.Equal(t, http.StatusForbidden, rejected.StatusCode)
	require.Equal(t, unknown.StatusCode, rejected.StatusCode)
	require.Equal(t, unknown.Code, rejected.Code)
	require.Equal(t, unknown.Description, rejected.Description)

	_, err = bob.RespondToInvite(t.Context(), invite.ID, gatewaysdk.DecisionAccept)
	assertStatus(t, err, http.StatusConflict)
}

// TestLoginRateLimit verifies the strict login limit with the default
// profile.
func TestLoginRateLimit(t *testing.T) {
	idp := startFakeIdP(t)
	baseURL := setupGateway(t, idp, map[string]string{
		"GATEWAY_RATELIMIT_STRICT_REQUESTS": "3",
		"GATEWAY_RATELIMIT_STRICT_BURST":    "3",
	})

	client := gatewaysdk.NewClient(baseURL)

	var limited bool
	for range 10 {
		_, err := client.Login(t.Context(), gatewaysdk.LoginRequest{IDToken: "not-a-token"})
		require.Error(t, err)
		if gatewaysdk.IsStatus(err, http.StatusTooManyRequests) {
			limited = true
			break
		}
		assertStatus(t, err, http.StatusUnauthorized)
	}
	require.True(t, limited, "login should be rate limited")
}
