package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MinSecretSize is the shortest master secret NewSealer accepts.
const MinSecretSize = 32

var (
	ErrShortSecret = errors.New("cryptox: master secret too short")
	ErrOpen        = errors.New("cryptox: message authentication failed")
)

// Sealer provides authenticated encryption under a key derived from a
// master secret and a purpose label. Sealers built from the same secret with
// different purposes cannot open each other's output.
//
// Output layout: [24-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an XChaCha20-Poly1305 key from secret using HKDF-SHA256
// with purpose as the info parameter.
func NewSealer(secret []byte, purpose string) (*Sealer, error) {
	if len(secret) < MinSecretSize {
		return nil, ErrShortSecret
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("cryptox: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: init aead: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// NewRandomSealer returns a Sealer under a fresh random secret. Anything it
// seals is unreadable once the process exits.
func NewRandomSealer(purpose string) (*Sealer, error) {
	secret := make([]byte, MinSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("cryptox: read random: %w", err)
	}
	return NewSealer(secret, purpose)
}

// Seal encrypts plaintext, binding it to aad.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptox: read nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal. Any tampering, wrong key, or wrong aad yields ErrOpen.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, ErrOpen
	}
	plaintext, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

// SealString seals plaintext and returns it as unpadded base64url, suitable
// for cookie values.
func (s *Sealer) SealString(plaintext, aad string) (string, error) {
	sealed, err := s.Seal([]byte(plaintext), []byte(aad))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString.
func (s *Sealer) OpenString(sealed, aad string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrOpen
	}
	plaintext, err := s.Open(raw, []byte(aad))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
