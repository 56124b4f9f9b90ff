package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
)

// TestHealthEndpoints verifies liveness, readiness and the published JWKS on
// a freshly started gateway.
func TestHealthEndpoints(t *testing.T) {
	idp := startFakeIdP(t)
	baseURL := setupGateway(t, idp, nil)

	client := gatewaysdk.NewClient(baseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)

	ready, err := client.GetReadiness(t.Context())
	assertHealthy(t, ready, err)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)

	jwks, err := client.GetJWKS(t.Context())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 2, "default configuration publishes two signing keys")
	for _, key := range jwks.Keys {
		require.Equal(t, "EdDSA", key.Alg)
		require.NotEmpty(t, key.Kid)
	}
}
