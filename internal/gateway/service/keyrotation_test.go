package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/pkg/cryptox"
	"github.com/aussiebroadwan/tenantgate/pkg/idx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKeyRotation_Ephemeral(t *testing.T) {
	t.Parallel()
	km := newTestKeyManager(t)
	tokens := &TokenService{KeyManager: km, Issuer: testIssuer, Audience: testAudience}
	acct := domain.Account{ID: "acct-1"}

	// Sign with every current key so each retired key is exercised.
	var issued []string
	for range 8 {
		tok, err := tokens.IssueUnscoped(acct, "s")
		require.NoError(t, err)
		issued = append(issued, tok.Token)
	}
	before := km.Signers()

	svc := &KeyRotationService{KeyManager: km, Logger: quietLogger(), Keep: 2, GracePeriod: time.Hour}
	key, err := svc.RotateKey(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, key.Kid)
	require.Equal(t, 2, km.NumSigners())
	require.Len(t, km.KeySet.PublicJWKS().Keys, 3)

	for _, raw := range issued {
		_, err := tokens.Verify(raw)
		require.NoError(t, err, "tokens from retired keys verify during the grace period")
	}

	// After the grace period the retired key is forgotten.
	require.NoError(t, svc.Tick(context.Background(), time.Now().Add(2*time.Hour)))
	require.Len(t, km.KeySet.PublicJWKS().Keys, 2)

	_, _, err = km.KeySet.Lookup(before[0].KID())
	require.ErrorIs(t, err, jwtx.ErrNoKey)
}

func TestKeyRotation_Persistent(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	sealer, err := cryptox.NewRandomSealer("signing-keys")
	require.NoError(t, err)

	km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
		KeyManagerOptions: jwtx.KeyManagerOptions{
			Algorithm: jwtx.AlgorithmES256,
			Issuer:    testIssuer,
			Audience:  testAudience,
		},
		Store:  store.NewKeyStoreAdapter(st),
		Sealer: sealer,
		NewID:  func() string { return idx.New().String() },
	})
	require.NoError(t, err)
	require.Equal(t, 2, km.NumSigners())

	tokens := &TokenService{KeyManager: km, Issuer: testIssuer, Audience: testAudience}
	old, err := tokens.IssueUnscoped(domain.Account{ID: "acct-1"}, "s")
	require.NoError(t, err)

	svc := &KeyRotationService{Store: st, KeyManager: km, Sealer: sealer, Logger: quietLogger(), Keep: 2}
	key, err := svc.RotateKey(ctx)
	require.NoError(t, err)

	active, err := st.SigningKeys().ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, key.Kid, active[0].Kid)

	all, err := st.SigningKeys().ListAllSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	require.Equal(t, 2, km.NumSigners())
	_, err = tokens.Verify(old.Token)
	require.NoError(t, err, "retired keys keep verifying")

	// A second manager loading the same store sees the same keys.
	peer, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
		KeyManagerOptions: jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256, Issuer: testIssuer, Audience: testAudience},
		Store:             store.NewKeyStoreAdapter(st),
		Sealer:            sealer,
		NewID:             func() string { return idx.New().String() },
	})
	require.NoError(t, err)
	_, err = peer.Verifier.Verify(old.Token)
	require.NoError(t, err)
}

func TestKeyRotation_PersistentTickRotatesWhenDue(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	sealer, err := cryptox.NewRandomSealer("signing-keys")
	require.NoError(t, err)
	km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
		KeyManagerOptions: jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: testIssuer},
		Store:             store.NewKeyStoreAdapter(st),
		Sealer:            sealer,
		NewID:             func() string { return idx.New().String() },
	})
	require.NoError(t, err)

	svc := &KeyRotationService{Store: st, KeyManager: km, Sealer: sealer, Logger: quietLogger(), RotateAfter: time.Hour}

	// Not due yet: nothing new is written.
	require.NoError(t, svc.Tick(ctx, time.Now()))
	all, err := st.SigningKeys().ListAllSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Due: one key is added and the oldest retired.
	require.NoError(t, svc.Tick(ctx, time.Now().Add(2*time.Hour)))
	all, err = st.SigningKeys().ListAllSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	active, err := st.SigningKeys().ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
}

func TestKeyRotation_StartStop(t *testing.T) {
	t.Parallel()
	svc := &KeyRotationService{KeyManager: newTestKeyManager(t), Logger: quietLogger(), Interval: 10 * time.Millisecond}
	svc.Start()
	time.Sleep(30 * time.Millisecond)
	svc.Stop()
	require.Equal(t, 2, svc.KeyManager.NumSigners())
}
