// Package transport carries the session token between client and gateway as
// a single sealed cookie.
package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNoRecord = errors.New("transport: no session record")
	ErrTampered = errors.New("transport: session record rejected")
)

// Sealer encrypts the token so the client holds an opaque value. The cookie
// name is bound as associated data.
type Sealer interface {
	SealString(plaintext, aad string) (string, error)
	OpenString(sealed, aad string) (string, error)
}

// Config is fixed at construction.
type Config struct {
	Name     string
	Domain   string
	Path     string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// DefaultConfig is used by tests and local development.
func DefaultConfig() Config {
	return Config{
		Name:     "tg_session",
		Path:     "/",
		MaxAge:   time.Hour,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Transport reads and writes the session record.
type Transport struct {
	cfg    Config
	sealer Sealer
}

func New(cfg Config, sealer Sealer) (*Transport, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("transport: cookie name is required")
	}
	if sealer == nil {
		return nil, fmt.Errorf("transport: sealer is required")
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	return &Transport{cfg: cfg, sealer: sealer}, nil
}

// Config returns a copy of the settings in use.
func (t *Transport) Config() Config { return t.cfg }

// Replace overwrites the session record with token. Any Set-Cookie for the
// same name already queued on w is dropped, so a response never carries
// both an old and a new value.
func (t *Transport) Replace(w http.ResponseWriter, token string, expiresAt time.Time) error {
	sealed, err := t.sealer.SealString(token, t.cfg.Name)
	if err != nil {
		return fmt.Errorf("transport: seal: %w", err)
	}

	maxAge := t.cfg.MaxAge
	if !expiresAt.IsZero() {
		if until := time.Until(expiresAt); until < maxAge {
			maxAge = until
		}
	}
	if maxAge < time.Second {
		maxAge = time.Second
	}

	t.set(w, &http.Cookie{
		Name:     t.cfg.Name,
		Value:    sealed,
		Domain:   t.cfg.Domain,
		Path:     t.cfg.Path,
		MaxAge:   int(maxAge / time.Second),
		Secure:   t.cfg.Secure,
		HttpOnly: true,
		SameSite: t.cfg.SameSite,
	})
	return nil
}

// Clear removes the session record from the client.
func (t *Transport) Clear(w http.ResponseWriter) {
	t.set(w, &http.Cookie{
		Name:     t.cfg.Name,
		Value:    "",
		Domain:   t.cfg.Domain,
		Path:     t.cfg.Path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   t.cfg.Secure,
		HttpOnly: true,
		SameSite: t.cfg.SameSite,
	})
}

// Read returns the token held in the session record.
func (t *Transport) Read(r *http.Request) (string, error) {
	c, err := r.Cookie(t.cfg.Name)
	if err != nil || c.Value == "" {
		return "", ErrNoRecord
	}
	token, err := t.sealer.OpenString(c.Value, t.cfg.Name)
	if err != nil {
		return "", ErrTampered
	}
	return token, nil
}

func (t *Transport) set(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	kept := h.Values("Set-Cookie")[:0:0]
	for _, v := range h.Values("Set-Cookie") {
		if prev, err := http.ParseSetCookie(v); err == nil && prev.Name == t.cfg.Name {
			continue
		}
		kept = append(kept, v)
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	h.Add("Set-Cookie", c.String())
}
