package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

type headerSource string

func (h headerSource) Read(r *http.Request) (string, error) {
	if v := r.Header.Get(string(h)); v != "" {
		return v, nil
	}
	return "", errors.New("none")
}

func newKeys(t *testing.T) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "https://gateway.test",
	})
	require.NoError(t, err)
	return km
}

func sign(t *testing.T, km *jwtx.KeyManager, tenantID, role string) string {
	t.Helper()
	raw, err := km.GetSigner().Sign(jwtx.NewSessionClaims(jwtx.SessionParams{
		AccountID: "acct-1",
		SessionID: "sess-1",
		TenantID:  tenantID,
		Role:      role,
		Issuer:    "https://gateway.test",
		TTL:       time.Minute,
		Now:       time.Now(),
	}))
	require.NoError(t, err)
	return raw
}

func echoClaims() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := httpx.ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(httpx.AccountIDFromContext(r.Context()) + "/" + c.TenantID))
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mw("a"), nil, mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b"}, order)
}

func TestAuthn(t *testing.T) {
	km := newKeys(t)
	h := httpx.Chain(echoClaims(), httpx.Authn(km.Verifier, headerSource("X-Session")))

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, km, "t1", "admin"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "acct-1/t1", rec.Body.String())
	})

	t.Run("session record wins over bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Session", sign(t, km, "t2", "member"))
		req.Header.Set("Authorization", "Bearer "+sign(t, km, "t1", "admin"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "acct-1/t2", rec.Body.String())
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("foreign key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, newKeys(t), "t1", "admin"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthz(t *testing.T) {
	km := newKeys(t)

	serve := func(h http.Handler, path, token string) int {
		mux := http.NewServeMux()
		mux.Handle("GET /tenants/{id}", h)
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec.Code
	}

	scoped := httpx.Chain(okHandler, httpx.Authn(km.Verifier, nil), httpx.RequireScoped())
	require.Equal(t, http.StatusOK, serve(scoped, "/tenants/t1", sign(t, km, "t1", "member")))
	require.Equal(t, http.StatusUnauthorized, serve(scoped, "/tenants/t1", sign(t, km, "", "")))

	admin := httpx.Chain(okHandler, httpx.Authn(km.Verifier, nil), httpx.RequireRole("admin"))
	require.Equal(t, http.StatusOK, serve(admin, "/tenants/t1", sign(t, km, "t1", "admin")))
	require.Equal(t, http.StatusForbidden, serve(admin, "/tenants/t1", sign(t, km, "t1", "member")))

	own := httpx.Chain(okHandler, httpx.Authn(km.Verifier, nil), httpx.RequireTenantPath("id"))
	require.Equal(t, http.StatusOK, serve(own, "/tenants/t1", sign(t, km, "t1", "member")))
	require.Equal(t, http.StatusForbidden, serve(own, "/tenants/t2", sign(t, km, "t1", "member")))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, httpx.BearerToken(req))

	req.Header.Set("Authorization", "bearer abc")
	require.Equal(t, "abc", httpx.BearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	require.Empty(t, httpx.BearerToken(req))
}
