package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
)

// OIDCConfig describes the upstream OpenID Connect provider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// SigningAlgs accepted on ID tokens. Defaults to RS256 and ES256.
	SigningAlgs []string

	// Timeout bounds every call to the provider.
	Timeout time.Duration
}

// OIDC verifies ID tokens with go-oidc and redeems authorization codes with
// x/oauth2.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
	client   *http.Client
	watch    *transportWatch
}

// NewOIDC discovers the provider's metadata and signing keys.
func NewOIDC(ctx context.Context, cfg OIDCConfig) (*OIDC, error) {
	o := newOIDC(cfg)

	// The provider keeps this context for background key refreshes
	pctx := oidc.ClientContext(context.WithoutCancel(ctx), o.client)
	provider, err := oidc.NewProvider(pctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("identity: discover %s: %w", cfg.Issuer, err)
	}

	o.verifier = provider.Verifier(o.verifierConfig(cfg))
	o.oauth.Endpoint = provider.Endpoint()
	return o, nil
}

// NewOIDCWithKeySet builds a verifier without discovery, checking ID tokens
// against keys and redeeming codes at endpoint.
func NewOIDCWithKeySet(cfg OIDCConfig, keys oidc.KeySet, endpoint oauth2.Endpoint) *OIDC {
	o := newOIDC(cfg)
	o.verifier = oidc.NewVerifier(cfg.Issuer, keys, o.verifierConfig(cfg))
	o.oauth.Endpoint = endpoint
	return o
}

func newOIDC(cfg OIDCConfig) *OIDC {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	watch := &transportWatch{base: http.DefaultTransport}
	return &OIDC{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		client: &http.Client{Transport: watch, Timeout: timeout},
		watch:  watch,
	}
}

func (o *OIDC) verifierConfig(cfg OIDCConfig) *oidc.Config {
	algs := cfg.SigningAlgs
	if len(algs) == 0 {
		algs = []string{oidc.RS256, oidc.ES256}
	}
	return &oidc.Config{ClientID: cfg.ClientID, SupportedSigningAlgs: algs}
}

// Verify implements Verifier.
func (o *OIDC) Verify(ctx context.Context, a Assertion) (domain.VerifiedSubject, error) {
	started := time.Now()
	ctx = oidc.ClientContext(ctx, o.client)

	raw := a.IDToken
	switch {
	case raw != "":
	case a.Code != "":
		if a.CodeVerifier == "" {
			return domain.VerifiedSubject{}, fmt.Errorf("%w: code_verifier is required with code", domain.ErrInvalidInput)
		}

		tok, err := o.oauth.Exchange(ctx, a.Code, oauth2.VerifierOption(a.CodeVerifier))
		if err != nil {
			return domain.VerifiedSubject{}, o.classify(err, started)
		}

		idt, ok := tok.Extra("id_token").(string)
		if !ok || idt == "" {
			return domain.VerifiedSubject{}, fmt.Errorf("%w: no id_token in token response", domain.ErrUnauthenticated)
		}
		raw = idt
	default:
		return domain.VerifiedSubject{}, fmt.Errorf("%w: id_token or code is required", domain.ErrInvalidInput)
	}

	idToken, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return domain.VerifiedSubject{}, o.classify(err, started)
	}

	var claims struct {
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return domain.VerifiedSubject{}, fmt.Errorf("%w: decode claims: %v", domain.ErrUnauthenticated, err)
	}
	if idToken.Subject == "" {
		return domain.VerifiedSubject{}, fmt.Errorf("%w: id_token has no subject", domain.ErrUnauthenticated)
	}

	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}
	return domain.VerifiedSubject{
		Subject:     idToken.Issuer + "|" + idToken.Subject,
		Email:       claims.Email,
		DisplayName: name,
	}, nil
}

// classify separates provider outages from rejected assertions. go-oidc
// flattens transport errors into strings, so a failed round trip observed
// during this call is also treated as an outage.
func (o *OIDC) classify(err error, started time.Time) error {
	var (
		retrieve *oauth2.RetrieveError
		netErr   net.Error
	)
	switch {
	case errors.As(err, &retrieve):
		if retrieve.Response != nil && retrieve.Response.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	case errors.As(err, &netErr), errors.Is(err, context.DeadlineExceeded), o.watch.failedSince(started):
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
}

// transportWatch records when a request to the provider last failed at the
// transport level or with a 5xx.
type transportWatch struct {
	base        http.RoundTripper
	lastFailure atomic.Int64
}

func (w *transportWatch) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := w.base.RoundTrip(r)
	if err != nil || resp.StatusCode >= 500 {
		w.lastFailure.Store(time.Now().UnixNano())
	}
	return resp, err
}

func (w *transportWatch) failedSince(t time.Time) bool {
	return w.lastFailure.Load() >= t.UnixNano()
}
