package cryptox_test

import (
	"bytes"
	"testing"

	"github.com/aussiebroadwan/tenantgate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var testSecret = bytes.Repeat([]byte("k"), cryptox.MinSecretSize)

func TestSealerRoundTrip(t *testing.T) {
	s, err := cryptox.NewSealer(testSecret, "session-cookie")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("hello"), []byte("aad"))
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "hello")

	plain, err := s.Open(sealed, []byte("aad"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(plain))

	// Nonces are random so sealing twice differs
	again, err := s.Seal([]byte("hello"), []byte("aad"))
	require.NoError(t, err)
	require.NotEqual(t, sealed, again)
}

func TestSealerRejectsTampering(t *testing.T) {
	s, err := cryptox.NewSealer(testSecret, "session-cookie")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("hello"), nil)
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed, nil)
	require.ErrorIs(t, err, cryptox.ErrOpen)

	_, err = s.Open([]byte("short"), nil)
	require.ErrorIs(t, err, cryptox.ErrOpen)
}

func TestSealerPurposeSeparation(t *testing.T) {
	cookie, err := cryptox.NewSealer(testSecret, "session-cookie")
	require.NoError(t, err)
	keys, err := cryptox.NewSealer(testSecret, "signing-keys")
	require.NoError(t, err)

	sealed, err := cookie.SealString("token", "name")
	require.NoError(t, err)

	_, err = keys.OpenString(sealed, "name")
	require.ErrorIs(t, err, cryptox.ErrOpen)

	_, err = cookie.OpenString(sealed, "other-name")
	require.ErrorIs(t, err, cryptox.ErrOpen)

	plain, err := cookie.OpenString(sealed, "name")
	require.NoError(t, err)
	require.Equal(t, "token", plain)
}

func TestNewSealerShortSecret(t *testing.T) {
	_, err := cryptox.NewSealer([]byte("short"), "x")
	require.ErrorIs(t, err, cryptox.ErrShortSecret)
}
