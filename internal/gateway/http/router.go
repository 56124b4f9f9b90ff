package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/tenantgate/api/gateway" // Swagger docs
	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/identity"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/service"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/transport"
	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
	"github.com/aussiebroadwan/tenantgate/pkg/slogx"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

// RateLimits are the rate limit profiles applied per route group.
type RateLimits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultRateLimits returns the built-in profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
		Public:   httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	transport    *transport.Transport
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// Limiters builds one limiter per route. Defaults to in-memory limiters.
	Limiters   httpx.LimiterFactory
	RateLimits RateLimits

	Identity       identity.Verifier
	TokenService   *service.TokenService
	SessionService *service.SessionService
	InviteService  *service.InviteService
}

func NewRouter(
	keys *jwtx.KeySet,
	tr *transport.Transport,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		transport:    tr,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limiters:     httpx.MemoryLimiterFactory,
		RateLimits:   DefaultRateLimits(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerTenants()
	r.registerInvites()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Tenantgate API
//	@version		0.1.0
//	@description	Multi-tenant session gateway. Exchanges identity provider assertions for tenant-scoped session tokens.
//	@description
//	@description				Session tokens are JWTs signed with EdDSA or ES256 and can be verified using the JWKS endpoint.
//	@description				Downstream services filter data by the token's tid claim.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/tenantgate
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}". Browsers use the session cookie instead.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) limitByIP(name string, cfg httpx.RateLimitConfig) httpx.Middleware {
	return httpx.RateLimit(r.Limiters(name, cfg), cfg, httpx.IPKeyExtractor)
}

// limitByAccount must come after authn in a chain.
func (r *Router) limitByAccount(name string, cfg httpx.RateLimitConfig) httpx.Middleware {
	return httpx.RateLimit(r.Limiters(name, cfg), cfg, httpx.AccountKeyExtractor)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.Authn(r.TokenService, r.transport)
}

func (r *Router) sessionHandler() *SessionHandler {
	return &SessionHandler{
		Identity:       r.Identity,
		Tokens:         r.TokenService,
		SessionService: r.SessionService,
		Transport:      r.transport,
	}
}

func (r *Router) registerSession() {
	h := r.sessionHandler()

	// POST /login - strict rate limit by IP (every call reaches the identity provider)
	r.Mux.Handle("POST /v1/session/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.limitByIP("login", r.RateLimits.Strict),
		),
	)

	// POST /select - strict rate limit by IP, the caller may not hold a session yet
	r.Mux.Handle("POST /v1/session/select",
		httpx.Chain(http.HandlerFunc(h.HandleSelect),
			r.limitByIP("select", r.RateLimits.Strict),
		),
	)

	r.Mux.Handle("POST /v1/session/switch",
		httpx.Chain(http.HandlerFunc(h.HandleSwitch),
			r.authn(),
			httpx.RequireScoped(),
			r.limitByAccount("switch", r.RateLimits.Moderate),
		),
	)

	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.authn(),
			r.limitByAccount("session", r.RateLimits.Lenient),
		),
	)

	r.Mux.Handle("POST /v1/session/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authn(),
			r.limitByAccount("logout", r.RateLimits.Lenient),
		),
	)
}

func (r *Router) registerTenants() {
	h := &TenantsHandler{
		SessionService: r.SessionService,
		InviteService:  r.InviteService,
		Transport:      r.transport,
	}

	r.Mux.Handle("GET /v1/tenants",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn(),
			r.limitByAccount("tenants_list", r.RateLimits.Lenient),
		),
	)

	r.Mux.Handle("POST /v1/tenants",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.authn(),
			r.limitByAccount("tenants_create", r.RateLimits.Moderate),
		),
	)

	// POST /tenants/{id}/invites - admins of the tenant the session is scoped to
	r.Mux.Handle("POST /v1/tenants/{id}/invites",
		httpx.Chain(http.HandlerFunc(h.HandleInvite),
			r.authn(),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RequireTenantPath("id"),
			r.limitByAccount("invites_issue", r.RateLimits.Moderate),
		),
	)
}

func (r *Router) registerInvites() {
	h := &InvitesHandler{InviteService: r.InviteService}

	// Any session may answer its own invitations, scoped or not.
	r.Mux.Handle("POST /v1/invites/{id}/respond",
		httpx.Chain(http.HandlerFunc(h.HandleRespond),
			r.authn(),
			r.limitByAccount("invites_respond", r.RateLimits.Moderate),
		),
	)
}

func (r *Router) registerSystem() {
	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			r.limitByIP("jwks", r.RateLimits.Public),
		),
	)

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			r.limitByIP("livez", r.RateLimits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			r.limitByIP("readyz", r.RateLimits.Lenient),
		),
	)
}
