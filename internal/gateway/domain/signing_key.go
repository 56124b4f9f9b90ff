package domain

import "time"

// SigningKey is a persisted session signing key. The private key PEM is
// sealed before it reaches the store.
type SigningKey struct {
	ID               string
	Kid              string
	Algorithm        string // EdDSA or ES256
	PrivateKeySealed []byte
	CreatedAt        time.Time
	RetiredAt        *time.Time // nil while the key still signs
	ExpiresAt        time.Time
}

// IsActive returns true if the key is not retired and not expired.
func (k *SigningKey) IsActive(now time.Time) bool {
	return k.RetiredAt == nil && now.Before(k.ExpiresAt)
}

// IsExpired returns true if the key has passed its expiration time.
func (k *SigningKey) IsExpired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}
