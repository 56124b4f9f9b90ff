package jwtx

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SigningKeyRecord is a signing key as persisted by a KeyStore. The private
// key PEM is sealed with the kid as associated data.
type SigningKeyRecord struct {
	ID               string
	Kid              string
	Algorithm        string
	PrivateKeySealed []byte
	CreatedAt        time.Time
	RetiredAt        *time.Time
	ExpiresAt        time.Time
}

// Active reports whether the record may still sign at now.
func (r SigningKeyRecord) Active(now time.Time) bool {
	return r.RetiredAt == nil && now.Before(r.ExpiresAt)
}

// KeyStore is the persistence a KeyManager needs. Implemented outside this
// package so jwtx stays free of storage concerns.
type KeyStore interface {
	// ListAllSigningKeys returns every stored key, newest first.
	ListAllSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)

	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// KeySealer seals private key material at rest.
type KeySealer interface {
	Seal(plaintext, aad []byte) ([]byte, error)
	Open(sealed, aad []byte) ([]byte, error)
}

// PersistentKeyManagerOptions configures a store-backed KeyManager.
type PersistentKeyManagerOptions struct {
	KeyManagerOptions

	Store  KeyStore
	Sealer KeySealer

	// Lifetime bounds how long a key may stay active before it expires
	// outright. The rotation worker normally retires keys well before this.
	Lifetime time.Duration

	// NewID returns record ids.
	NewID func() string
}

// NewPersistentKeyManager loads keys from the store and tops the active set
// up to NumKeys, persisting any key it generates. Tokens survive restarts
// and replicas sharing a store share keys.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil || opts.Sealer == nil {
		return nil, errors.New("jwtx: Store and Sealer are required for persistent key manager")
	}
	if opts.NewID == nil {
		return nil, errors.New("jwtx: NewID is required for persistent key manager")
	}
	if err := opts.normalise(); err != nil {
		return nil, err
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 90 * 24 * time.Hour
	}

	km := newKeyManager(opts.KeyManagerOptions)

	records, err := opts.Store.ListAllSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load signing keys: %w", err)
	}

	now := time.Now().UTC()
	active := 0
	for _, r := range records {
		if r.Active(now) {
			active++
		}
	}

	for ; active < opts.NumKeys; active++ {
		rec, err := NewSigningKeyRecord(opts.Algorithm, opts.Sealer, opts.NewID(), now, opts.Lifetime)
		if err != nil {
			return nil, err
		}
		if err := opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: store new key: %w", err)
		}
		records = append(records, rec)
	}

	if err := km.LoadRecords(records, opts.Sealer, now); err != nil {
		return nil, err
	}
	return km, nil
}

// NewSigningKeyRecord generates a key pair and returns it sealed for storage.
func NewSigningKeyRecord(alg string, sealer KeySealer, id string, now time.Time, lifetime time.Duration) (SigningKeyRecord, error) {
	pemData, signer, err := GenerateSigner(alg)
	if err != nil {
		return SigningKeyRecord{}, err
	}

	sealed, err := sealer.Seal(pemData, []byte(signer.KID()))
	if err != nil {
		return SigningKeyRecord{}, fmt.Errorf("jwtx: seal key: %w", err)
	}

	return SigningKeyRecord{
		ID:               id,
		Kid:              signer.KID(),
		Algorithm:        alg,
		PrivateKeySealed: sealed,
		CreatedAt:        now,
		ExpiresAt:        now.Add(lifetime),
	}, nil
}

// LoadRecords replaces the manager's keys with records. Expired records are
// skipped, retired ones verify only, the rest sign. Used at startup and by
// the rotation worker to pick up keys written by other replicas.
func (km *KeyManager) LoadRecords(records []SigningKeyRecord, sealer KeySealer, now time.Time) error {
	jwks := JWKS{Keys: make([]JWK, 0, len(records))}
	var signers []Signer

	for _, r := range records {
		if !now.Before(r.ExpiresAt) {
			continue
		}

		pemData, err := sealer.Open(r.PrivateKeySealed, []byte(r.Kid))
		if err != nil {
			return fmt.Errorf("jwtx: open key %s: %w", r.Kid, err)
		}

		signer, err := NewSigner(r.Algorithm, r.Kid, pemData)
		if err != nil {
			return fmt.Errorf("jwtx: load key %s: %w", r.Kid, err)
		}

		jwks.Keys = append(jwks.Keys, signer.PublicJWK())
		if r.RetiredAt == nil {
			signers = append(signers, signer)
		}
	}

	if len(signers) == 0 {
		return errors.New("jwtx: no active signing keys")
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	if err := km.KeySet.ResetFromJWKS(jwks); err != nil {
		return err
	}
	km.signers = signers
	return nil
}
