package httpx

import (
	"net/http"
	"slices"
)

// RequireScoped admits only sessions bound to a tenant. Unscoped sessions
// get 401: they prove identity but carry no tenant authority.
func RequireScoped() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFromContext(r.Context())
			if !ok || !c.Scoped() {
				WriteBearerError(w, "a tenant-scoped session is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits scoped sessions whose role is one of roles.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFromContext(r.Context())
			if !ok || !c.Scoped() || !slices.Contains(roles, c.Role) {
				WriteError(w, http.StatusForbidden, "forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenantPath admits requests whose path value param names the tenant
// the session is scoped to. Any other tenant id is answered exactly like an
// unknown one.
func RequireTenantPath(param string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFromContext(r.Context())
			if !ok || !c.Scoped() || r.PathValue(param) != c.TenantID {
				WriteError(w, http.StatusForbidden, "forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
