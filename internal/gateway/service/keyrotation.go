package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/pkg/idx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

// KeyRotationService rotates session signing keys in the background.
//
// In ephemeral mode (Store == nil) keys live in the KeyManager only.
// Retired keys keep verifying for GracePeriod and are then forgotten.
//
// In persistent mode keys are sealed into the store. Each tick purges
// expired keys, rotates when the newest active key is older than
// RotateAfter, and reloads the KeyManager from the store so replicas pick up
// each other's keys.
type KeyRotationService struct {
	Store      store.Store // nil for ephemeral mode
	KeyManager *jwtx.KeyManager
	Sealer     jwtx.KeySealer // required in persistent mode
	Logger     *slog.Logger

	Interval    time.Duration // how often to check, default 1h
	RotateAfter time.Duration // age of newest key before rotating, default 7 days
	GracePeriod time.Duration // retired keys verify this long, default 24h
	Lifetime    time.Duration // hard expiry of a persisted key, default 90 days
	Keep        int           // active signing keys to keep, default 2

	mu          sync.Mutex
	lastRotated time.Time
	retired     map[string]time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func (s *KeyRotationService) defaults() {
	if s.Interval <= 0 {
		s.Interval = time.Hour
	}
	if s.RotateAfter <= 0 {
		s.RotateAfter = 7 * 24 * time.Hour
	}
	if s.GracePeriod <= 0 {
		s.GracePeriod = 24 * time.Hour
	}
	if s.Lifetime <= 0 {
		s.Lifetime = 90 * 24 * time.Hour
	}
	if s.Keep <= 0 {
		s.Keep = 2
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *KeyRotationService) Start() {
	s.defaults()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Lock()
	if s.lastRotated.IsZero() {
		s.lastRotated = time.Now()
	}
	s.mu.Unlock()

	go s.run()
	s.Logger.Info("key rotation started", "interval", s.Interval, "rotate_after", s.RotateAfter)
}

// Stop blocks until an in-progress tick has finished.
func (s *KeyRotationService) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("key rotation stopped")
}

func (s *KeyRotationService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Tick(context.Background(), time.Now()); err != nil {
				s.Logger.Error("key rotation tick failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Tick performs one maintenance pass as of now.
func (s *KeyRotationService) Tick(ctx context.Context, now time.Time) error {
	s.defaults()
	if s.Store == nil {
		return s.tickEphemeral(now)
	}
	return s.tickPersistent(ctx, now.UTC())
}

func (s *KeyRotationService) tickEphemeral(now time.Time) error {
	s.mu.Lock()
	due := now.Sub(s.lastRotated) >= s.RotateAfter
	s.mu.Unlock()

	if due {
		if _, err := s.RotateKey(context.Background()); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for kid, at := range s.retired {
		if now.Sub(at) < s.GracePeriod {
			continue
		}
		if err := s.KeyManager.Forget(kid); err != nil {
			return err
		}
		delete(s.retired, kid)
		s.Logger.Info("signing key forgotten", "kid", kid)
	}
	return nil
}

func (s *KeyRotationService) tickPersistent(ctx context.Context, now time.Time) error {
	if err := s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx); err != nil {
		return fmt.Errorf("purge expired signing keys: %w", err)
	}

	active, err := s.Store.SigningKeys().ListActiveSigningKeys(ctx)
	if err != nil {
		return fmt.Errorf("list active signing keys: %w", err)
	}
	if len(active) == 0 || now.Sub(active[0].CreatedAt) >= s.RotateAfter {
		if _, err := s.RotateKey(ctx); err != nil {
			return err
		}
		return nil
	}
	return s.reload(ctx, now)
}

// RotateKey adds a new signing key and retires the oldest active keys beyond
// Keep. Retired keys stay in the verification set for GracePeriod.
func (s *KeyRotationService) RotateKey(ctx context.Context) (domain.SigningKey, error) {
	s.defaults()
	if s.KeyManager == nil {
		return domain.SigningKey{}, fmt.Errorf("KeyManager is required")
	}
	now := time.Now().UTC()
	alg := s.KeyManager.Algorithm()

	if s.Store == nil {
		return s.rotateEphemeral(alg, now)
	}
	if s.Sealer == nil {
		return domain.SigningKey{}, fmt.Errorf("Sealer is required in persistent mode")
	}

	rec, err := jwtx.NewSigningKeyRecord(alg, s.Sealer, idx.New().String(), now, s.Lifetime)
	if err != nil {
		return domain.SigningKey{}, fmt.Errorf("generate signing key: %w", err)
	}
	key := domain.SigningKey{
		ID:               rec.ID,
		Kid:              rec.Kid,
		Algorithm:        rec.Algorithm,
		PrivateKeySealed: rec.PrivateKeySealed,
		CreatedAt:        rec.CreatedAt,
		ExpiresAt:        rec.ExpiresAt,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.SigningKeys().CreateSigningKey(ctx, key); err != nil {
			return fmt.Errorf("store signing key: %w", err)
		}
		active, err := tx.SigningKeys().ListActiveSigningKeys(ctx)
		if err != nil {
			return fmt.Errorf("list active signing keys: %w", err)
		}
		// newest first; everything past Keep is retired
		for i := s.Keep; i < len(active); i++ {
			if err := tx.SigningKeys().RetireSigningKey(ctx, active[i].Kid); err != nil {
				return fmt.Errorf("retire signing key %s: %w", active[i].Kid, err)
			}
			s.Logger.Info("signing key retired", "kid", active[i].Kid)
		}
		return nil
	})
	if err != nil {
		return domain.SigningKey{}, err
	}

	s.Logger.Info("signing key rotated", "kid", key.Kid, "algorithm", alg)
	return key, s.reload(ctx, now)
}

func (s *KeyRotationService) rotateEphemeral(alg string, now time.Time) (domain.SigningKey, error) {
	_, signer, err := jwtx.GenerateSigner(alg)
	if err != nil {
		return domain.SigningKey{}, fmt.Errorf("generate signing key: %w", err)
	}
	if err := s.KeyManager.AddSigner(signer); err != nil {
		return domain.SigningKey{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired == nil {
		s.retired = make(map[string]time.Time)
	}

	// Signers are in insertion order, oldest first.
	signers := s.KeyManager.Signers()
	for i := 0; i < len(signers)-s.Keep; i++ {
		kid := signers[i].KID()
		if err := s.KeyManager.RetireSignerByKid(kid); err != nil {
			return domain.SigningKey{}, fmt.Errorf("retire signing key %s: %w", kid, err)
		}
		s.retired[kid] = now
		s.Logger.Info("signing key retired", "kid", kid)
	}
	s.lastRotated = now

	s.Logger.Info("signing key rotated", "kid", signer.KID(), "algorithm", alg)
	return domain.SigningKey{Kid: signer.KID(), Algorithm: alg, CreatedAt: now}, nil
}

// reload replaces the KeyManager's keys with the store's view. Keys retired
// longer than GracePeriod ago no longer verify.
func (s *KeyRotationService) reload(ctx context.Context, now time.Time) error {
	keys, err := s.Store.SigningKeys().ListAllSigningKeys(ctx)
	if err != nil {
		return fmt.Errorf("list signing keys: %w", err)
	}

	records := make([]jwtx.SigningKeyRecord, 0, len(keys))
	for _, k := range keys {
		if k.RetiredAt != nil && now.Sub(*k.RetiredAt) >= s.GracePeriod {
			continue
		}
		records = append(records, store.SigningKeyRecord(k))
	}
	return s.KeyManager.LoadRecords(records, s.Sealer, now)
}
