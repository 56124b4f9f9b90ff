package store

import (
	"context"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

// KeyStoreAdapter exposes a Store's signing keys as a jwtx.KeyStore.
type KeyStoreAdapter struct {
	store Store
}

func NewKeyStoreAdapter(store Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{store: store}
}

func (a *KeyStoreAdapter) ListAllSigningKeys(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.store.SigningKeys().ListAllSigningKeys(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]jwtx.SigningKeyRecord, len(keys))
	for i, k := range keys {
		records[i] = SigningKeyRecord(k)
	}
	return records, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, r jwtx.SigningKeyRecord) error {
	return a.store.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
		ID:               r.ID,
		Kid:              r.Kid,
		Algorithm:        r.Algorithm,
		PrivateKeySealed: r.PrivateKeySealed,
		CreatedAt:        r.CreatedAt,
		RetiredAt:        r.RetiredAt,
		ExpiresAt:        r.ExpiresAt,
	})
}

// SigningKeyRecord converts a stored key to its jwtx form.
func SigningKeyRecord(k domain.SigningKey) jwtx.SigningKeyRecord {
	return jwtx.SigningKeyRecord{
		ID:               k.ID,
		Kid:              k.Kid,
		Algorithm:        k.Algorithm,
		PrivateKeySealed: k.PrivateKeySealed,
		CreatedAt:        k.CreatedAt,
		RetiredAt:        k.RetiredAt,
		ExpiresAt:        k.ExpiresAt,
	}
}
