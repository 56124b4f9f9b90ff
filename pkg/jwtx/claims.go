package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a session token when none is configured.
const DefaultSessionTTL = time.Hour

// Claims are the session token claims. Subject is the local account id and
// TenantID is empty on an unscoped token. Downstream services filter by tid.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID, stable across tenant switches within one login
	SID string `json:"sid,omitempty"`

	TenantID string `json:"tid,omitempty"`
	Role     string `json:"role,omitempty"`

	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	IdPSubject string `json:"idp_sub,omitempty"`
}

// SessionParams is the input to NewSessionClaims.
type SessionParams struct {
	AccountID  string
	SessionID  string
	TenantID   string
	Role       string
	Email      string
	Name       string
	IdPSubject string

	Issuer   string
	Audience string
	TTL      time.Duration
	Now      time.Time
}

// NewSessionClaims builds a complete claim set with a fresh jti.
func NewSessionClaims(p SessionParams) Claims {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	var aud jwt.ClaimStrings
	if p.Audience != "" {
		aud = jwt.ClaimStrings{p.Audience}
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.AccountID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(p.Now),
			NotBefore: jwt.NewNumericDate(p.Now),
			ExpiresAt: jwt.NewNumericDate(p.Now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:        p.SessionID,
		TenantID:   p.TenantID,
		Role:       p.Role,
		Email:      p.Email,
		Name:       p.Name,
		IdPSubject: p.IdPSubject,
	}
}

// Scoped reports whether the claims bind the session to a tenant.
func (c Claims) Scoped() bool {
	return c.TenantID != ""
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
