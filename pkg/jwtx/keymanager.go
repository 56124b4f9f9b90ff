package jwtx

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aussiebroadwan/tenantgate/pkg/cryptox"
)

var (
	ErrLastSigner    = errors.New("jwtx: cannot retire the last signing key")
	ErrUnknownSigner = errors.New("jwtx: signer not found")
)

// KeyManager owns the active signing keys and the KeySet used for
// verification. Retired keys leave the signer list but stay in the KeySet
// until Forget is called.
type KeyManager struct {
	KeySet   *KeySet
	Verifier *Verifier

	algorithm string

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures a KeyManager.
type KeyManagerOptions struct {
	// Algorithm for new keys: "EdDSA" or "ES256".
	Algorithm string

	// Issuer and Audience are enforced on verification.
	Issuer   string
	Audience string

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration

	// NumKeys is the number of concurrently active signing keys (1..10, default 2).
	NumKeys int
}

func (o *KeyManagerOptions) normalise() error {
	if o.Issuer == "" {
		return errors.New("jwtx: Issuer is required")
	}
	if o.Algorithm != AlgorithmEdDSA && o.Algorithm != AlgorithmES256 {
		return fmt.Errorf("jwtx: unsupported algorithm %q (supported: EdDSA, ES256)", o.Algorithm)
	}
	if o.NumKeys <= 0 {
		o.NumKeys = 2
	}
	if o.NumKeys > 10 {
		o.NumKeys = 10
	}
	return nil
}

func newKeyManager(opts KeyManagerOptions) *KeyManager {
	keys := NewKeySet()
	return &KeyManager{
		KeySet:    keys,
		Verifier:  NewVerifier(keys, opts.Issuer, opts.Audience, opts.Leeway),
		algorithm: opts.Algorithm,
	}
}

// NewEphemeralKeyManager generates NumKeys signing keys in memory. Every
// issued token becomes unverifiable when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if err := opts.normalise(); err != nil {
		return nil, err
	}

	km := newKeyManager(opts)
	for i := 0; i < opts.NumKeys; i++ {
		_, signer, err := GenerateSigner(opts.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate signer %d: %w", i+1, err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}
	return km, nil
}

// GenerateSigner creates a fresh key pair under a random kid and returns the
// PEM private key alongside the signer.
func GenerateSigner(alg string) ([]byte, Signer, error) {
	kid, err := NewKeyID()
	if err != nil {
		return nil, nil, err
	}

	var pemData []byte
	switch alg {
	case AlgorithmEdDSA:
		pemData, err = cryptox.GenerateEd25519Key()
	case AlgorithmES256:
		pemData, err = cryptox.GenerateES256Key()
	default:
		return nil, nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
	if err != nil {
		return nil, nil, err
	}

	signer, err := NewSigner(alg, kid, pemData)
	if err != nil {
		return nil, nil, err
	}
	return pemData, signer, nil
}

// NewKeyID returns a random key identifier of the form "tg-{token}".
func NewKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: generate key id: %w", err)
	}
	return "tg-" + token, nil
}

// Algorithm returns the algorithm used for new keys.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady returns true once a signer is available.
func (km *KeyManager) IsReady() bool {
	return km.NumSigners() > 0
}

// GetSigner returns one of the active signers, chosen at random.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// Signers returns a copy of the active signing keys.
func (km *KeyManager) Signers() []Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	out := make([]Signer, len(km.signers))
	copy(out, km.signers)
	return out
}

// AddSigner makes signer active for signing and verification.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return errors.New("jwtx: signer cannot be nil")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("jwtx: add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, signer)
	return nil
}

// RetireSignerByKid stops signing with kid. The key keeps verifying.
func (km *KeyManager) RetireSignerByKid(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	idx := -1
	for i, s := range km.signers {
		if s.KID() == kid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownSigner
	}
	if len(km.signers) == 1 {
		return ErrLastSigner
	}

	km.signers = append(km.signers[:idx:idx], km.signers[idx+1:]...)
	return nil
}

// Forget removes kid from verification. Active signers cannot be forgotten.
func (km *KeyManager) Forget(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	for _, s := range km.signers {
		if s.KID() == kid {
			return fmt.Errorf("jwtx: %s is still signing", kid)
		}
	}
	km.KeySet.Remove(kid)
	return nil
}
