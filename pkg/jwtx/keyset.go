package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/base64"
	"errors"
	"math/big"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

type publicKey struct {
	key any // ed25519.PublicKey | *ecdsa.PublicKey
	jwk JWK
}

// KeySet holds the public verification keys, including retired keys still
// inside their grace period. Safe for concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]publicKey
	kids []string // insertion order for stable JWKS output
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]publicKey)}
}

// AddSigner registers a Signer's public JWK.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK parses j and adds it. Re-adding a kid replaces the key.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := parseJWKToKey(j)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[j.Kid]; !ok {
		k.kids = append(k.kids, j.Kid)
	}
	k.keys[j.Kid] = publicKey{key: key, jwk: j}
	return nil
}

// Remove drops kid. Tokens signed with it stop verifying.
func (k *KeySet) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[kid]; !ok {
		return
	}
	delete(k.keys, kid)
	for i, id := range k.kids {
		if id == kid {
			k.kids = append(k.kids[:i:i], k.kids[i+1:]...)
			break
		}
	}
}

// Lookup returns the public key and its declared algorithm.
func (k *KeySet) Lookup(kid string) (any, string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pk, ok := k.keys[kid]
	if !ok {
		return nil, "", ErrNoKey
	}
	return pk.key, pk.jwk.Alg, nil
}

// PublicJWKS returns a snapshot for HTTP serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := JWKS{Keys: make([]JWK, 0, len(k.kids))}
	for _, kid := range k.kids {
		out.Keys = append(out.Keys, k.keys[kid].jwk)
	}
	return out
}

// IsReady returns true if at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}

// ResetFromJWKS replaces every key at once.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	keys := make(map[string]publicKey, len(jwks.Keys))
	kids := make([]string, 0, len(jwks.Keys))
	for _, j := range jwks.Keys {
		key, err := parseJWKToKey(j)
		if err != nil {
			return err
		}
		if _, dup := keys[j.Kid]; !dup {
			kids = append(kids, j.Kid)
		}
		keys[j.Kid] = publicKey{key: key, jwk: j}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = keys
	k.kids = kids
	return nil
}

func parseJWKToKey(j JWK) (any, error) {
	switch j.Kty {
	case "OKP":
		if j.Crv != "Ed25519" {
			return nil, errors.New("jwtx: unsupported OKP curve " + j.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(j.X)
		if err != nil {
			return nil, err
		}
		if len(xb) != ed25519.PublicKeySize {
			return nil, errors.New("jwtx: invalid Ed25519 public key size")
		}
		return ed25519.PublicKey(xb), nil

	case "EC":
		if j.Crv != "P-256" {
			return nil, errors.New("jwtx: unsupported EC curve " + j.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(j.X)
		if err != nil {
			return nil, err
		}
		yb, err := base64.RawURLEncoding.DecodeString(j.Y)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(xb),
			Y:     new(big.Int).SetBytes(yb),
		}, nil

	default:
		return nil, errors.New("jwtx: unsupported kty " + j.Kty)
	}
}
