package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/identity"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/service"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/transport"
	"github.com/aussiebroadwan/tenantgate/pkg/cryptox"
	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

const (
	testIssuer   = "https://gateway.test"
	testAudience = "tenantgate"
	cookieName   = "tg_session"

	// id tokens the fake identity provider treats specially
	tokenIdPDown = "idp-down"
	tokenForged  = "forged"
)

// fakeIdentity accepts any id token (or code) as the name of the user it
// asserts.
func fakeIdentity() identity.Verifier {
	return identity.VerifierFunc(func(_ context.Context, a identity.Assertion) (domain.VerifiedSubject, error) {
		name := a.IDToken
		if name == "" {
			name = a.Code
		}
		switch name {
		case tokenIdPDown:
			return domain.VerifiedSubject{}, fmt.Errorf("fake idp: %w", domain.ErrUpstreamUnavailable)
		case tokenForged:
			return domain.VerifiedSubject{}, fmt.Errorf("fake idp: %w", domain.ErrUnauthenticated)
		}
		return domain.VerifiedSubject{
			Subject:     "https://idp.test|" + name,
			Email:       name + "@example.com",
			DisplayName: name,
		}, nil
	})
}

type testEnv struct {
	server *httptest.Server
	router *Router
	store  *sqlite.Store
	tokens *service.TokenService
}

func newTestEnv(t *testing.T, configure ...func(*Router)) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    testIssuer,
		Audience:  testAudience,
	})
	require.NoError(t, err)

	sealer, err := cryptox.NewRandomSealer("session-transport")
	require.NoError(t, err)
	tr, err := transport.New(transport.Config{
		Name:     cookieName,
		Path:     "/",
		MaxAge:   time.Hour,
		SameSite: http.SameSiteLaxMode,
	}, sealer)
	require.NoError(t, err)

	tokens := &service.TokenService{
		KeyManager: km,
		Issuer:     testIssuer,
		Audience:   testAudience,
		TTL:        15 * time.Minute,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(km.KeySet, tr, "test", st, logger)
	r.Identity = fakeIdentity()
	r.TokenService = tokens
	r.SessionService = &service.SessionService{Store: st, Tokens: tokens}
	r.InviteService = &service.InviteService{Store: st}
	for _, fn := range configure {
		fn(r)
	}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, router: r, store: st, tokens: tokens}
}

// recorder keeps the headers of the last response a client received.
type recorder struct {
	mu   sync.Mutex
	last http.Header
}

func (rec *recorder) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(r)
	if err == nil {
		rec.mu.Lock()
		rec.last = resp.Header.Clone()
		rec.mu.Unlock()
	}
	return resp, err
}

// sessionCookies returns the Set-Cookie values for the session record on the
// last response.
func (rec *recorder) sessionCookies() []*http.Cookie {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []*http.Cookie
	for _, c := range (&http.Response{Header: rec.last}).Cookies() {
		if c.Name == cookieName {
			out = append(out, c)
		}
	}
	return out
}

func (e *testEnv) client(t *testing.T) (*gatewaysdk.Client, *recorder) {
	t.Helper()
	c := gatewaysdk.NewClient(e.server.URL)
	rec := &recorder{}
	c.HTTPClient.Transport = rec
	return c, rec
}

// login returns a client holding a session for name.
func (e *testEnv) login(t *testing.T, name string) (*gatewaysdk.Client, *gatewaysdk.SessionResponse) {
	t.Helper()
	c, _ := e.client(t)
	sess, err := c.Login(context.Background(), gatewaysdk.LoginRequest{IDToken: name})
	require.NoError(t, err)
	return c, sess
}

func requireStatus(t *testing.T, err error, status int) *gatewaysdk.APIError {
	t.Helper()
	var apiErr *gatewaysdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Error())
	return apiErr
}

func postRaw(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
