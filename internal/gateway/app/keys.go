package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/pkg/cryptox"
	"github.com/aussiebroadwan/tenantgate/pkg/idx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

// Sealer purposes. Output sealed for one purpose cannot be opened as another.
const (
	sealPurposeTransport   = "tenantgate session transport v1"
	sealPurposeSigningKeys = "tenantgate signing keys v1"
)

// Sealers holds the sealers derived from the master secret.
type Sealers struct {
	Transport   *cryptox.Sealer
	SigningKeys *cryptox.Sealer
}

// InitSealers derives the transport and signing key sealers from the master
// secret. Without one, random sealers are used and every session cookie
// becomes unreadable when the process restarts.
func InitSealers(cfg Config, logger *slog.Logger) (Sealers, error) {
	if cfg.MasterSecret == "" {
		logger.Warn("no master secret configured, session cookies will not survive a restart")
		t, err := cryptox.NewRandomSealer(sealPurposeTransport)
		if err != nil {
			return Sealers{}, err
		}
		k, err := cryptox.NewRandomSealer(sealPurposeSigningKeys)
		if err != nil {
			return Sealers{}, err
		}
		return Sealers{Transport: t, SigningKeys: k}, nil
	}

	secret, err := cfg.masterSecret()
	if err != nil {
		return Sealers{}, err
	}
	t, err := cryptox.NewSealer(secret, sealPurposeTransport)
	if err != nil {
		return Sealers{}, err
	}
	k, err := cryptox.NewSealer(secret, sealPurposeSigningKeys)
	if err != nil {
		return Sealers{}, err
	}
	return Sealers{Transport: t, SigningKeys: k}, nil
}

// InitSigningKeys creates the KeyManager for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": keys are generated on startup and held only in memory.
//     Every session token becomes invalid when the gateway restarts.
//   - "persistent": keys are sealed and stored in the database. Tokens
//     survive restarts and replicas sharing the database share keys.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, sealer jwtx.KeySealer, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		NumKeys:   cfg.NumKeys,
	}

	switch cfg.KeyStorageMode {
	case KeyStoragePersistent:
		logger.Info("initializing persistent key manager",
			"algorithm", cfg.Algorithm,
			"num_keys", cfg.NumKeys,
			"lifetime", cfg.KeyLifetime,
		)

		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			KeyManagerOptions: opts,
			Store:             store.NewKeyStoreAdapter(db),
			Sealer:            sealer,
			Lifetime:          cfg.KeyLifetime,
			NewID:             func() string { return idx.New().String() },
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
		)
		return km, nil

	default:
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing keys",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
		)
		logger.Warn("ephemeral keys: sessions issued before this start are no longer valid")
		return km, nil
	}
}
