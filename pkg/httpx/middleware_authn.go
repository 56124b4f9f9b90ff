package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
	"github.com/aussiebroadwan/tenantgate/pkg/slogx"
)

// TokenVerifier validates a raw session token.
type TokenVerifier interface {
	Verify(raw string) (jwtx.Claims, error)
}

// TokenSource extracts a raw token from the request, for example a session
// cookie. It returns an error when the request carries none.
type TokenSource interface {
	Read(r *http.Request) (string, error)
}

// Authn authenticates the request from the session record in src when
// present, falling back to an Authorization: Bearer header. Either kind of
// session, scoped or unscoped, is accepted; use RequireScoped to narrow.
func Authn(v TokenVerifier, src TokenSource) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := ""
			if src != nil {
				if tok, err := src.Read(r); err == nil {
					raw = tok
				}
			}
			if raw == "" {
				raw = BearerToken(r)
			}
			if raw == "" {
				WriteBearerError(w, "missing session")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("session verify failed", "err", err)
				WriteBearerError(w, "session verification failed")
				return
			}

			ctx = contextWithSession(ctx, claims)
			ctx = slogx.WithAttrs(ctx, "account_id", claims.Subject, "tenant_id", claims.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token from an Authorization: Bearer header, or "".
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// WriteBearerError writes an RFC 6750 invalid_token response.
func WriteBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthenticated", desc)
}
