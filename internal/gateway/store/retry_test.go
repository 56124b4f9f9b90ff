package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
)

func TestRead(t *testing.T) {
	t.Parallel()

	t.Run("retries unavailable", func(t *testing.T) {
		t.Parallel()
		calls := 0
		v, err := store.Read(context.Background(), func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, store.ErrUnavailable
			}
			return 42, nil
		})
		require.NoError(t, err)
		require.Equal(t, 42, v)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := store.Read(context.Background(), func(context.Context) (int, error) {
			calls++
			return 0, store.ErrUnavailable
		})
		require.ErrorIs(t, err, store.ErrUnavailable)
		require.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := store.Read(context.Background(), func(context.Context) (int, error) {
			calls++
			return 0, store.ErrNotFound
		})
		require.True(t, errors.Is(err, store.ErrNotFound))
		require.Equal(t, 1, calls)
	})
}
