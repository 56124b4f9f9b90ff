package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	httpapi "github.com/aussiebroadwan/tenantgate/internal/gateway/http"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/transport"
	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"
)

type Config struct {
	Issuer     string        `env:"GATEWAY_ISSUER" envDefault:"tenantgate"`   // iss claim on session tokens
	Audience   string        `env:"GATEWAY_AUDIENCE" envDefault:"tenantgate"` // aud claim on session tokens
	SessionTTL time.Duration `env:"GATEWAY_SESSION_TTL" envDefault:"1h"`

	Algorithm           string        `env:"GATEWAY_ALGORITHM" envDefault:"EdDSA"` // EdDSA or ES256
	NumKeys             int           `env:"GATEWAY_NUM_KEYS" envDefault:"2"`
	KeyStorageMode      string        `env:"GATEWAY_KEY_STORAGE_MODE" envDefault:"ephemeral"` // ephemeral or persistent
	KeyRotationInterval time.Duration `env:"GATEWAY_KEY_ROTATION_INTERVAL" envDefault:"1h"`
	KeyRotateAfter      time.Duration `env:"GATEWAY_KEY_ROTATE_AFTER" envDefault:"168h"`
	KeyGracePeriod      time.Duration `env:"GATEWAY_KEY_GRACE_PERIOD" envDefault:"24h"`
	KeyLifetime         time.Duration `env:"GATEWAY_KEY_LIFETIME" envDefault:"2160h"`

	// MasterSecret (base64) derives the cookie and signing key sealers.
	// Required in persistent mode and whenever several replicas share cookies.
	MasterSecret string `env:"GATEWAY_MASTER_SECRET"`

	DatabaseURL  string `env:"GATEWAY_DATABASE_URL"` // postgres:// DSN; empty selects SQLite
	DatabaseFile string `env:"GATEWAY_DATABASE_FILE" envDefault:"tenantgate.db"`
	RedisURL     string `env:"GATEWAY_REDIS_URL"` // shared rate limits when set

	OIDCIssuer       string        `env:"GATEWAY_OIDC_ISSUER"`
	OIDCClientID     string        `env:"GATEWAY_OIDC_CLIENT_ID"`
	OIDCClientSecret string        `env:"GATEWAY_OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string        `env:"GATEWAY_OIDC_REDIRECT_URL"`
	OIDCScopes       []string      `env:"GATEWAY_OIDC_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
	OIDCTimeout      time.Duration `env:"GATEWAY_OIDC_TIMEOUT" envDefault:"10s"`

	CookieName     string `env:"GATEWAY_COOKIE_NAME" envDefault:"tg_session"`
	CookieDomain   string `env:"GATEWAY_COOKIE_DOMAIN"`
	CookiePath     string `env:"GATEWAY_COOKIE_PATH" envDefault:"/"`
	CookieSecure   bool   `env:"GATEWAY_COOKIE_SECURE" envDefault:"true"`
	CookieSameSite string `env:"GATEWAY_COOKIE_SAMESITE" envDefault:"lax"` // lax, strict or none

	// Rate limit profiles start from the built-in values; each field can be
	// overridden, e.g. GATEWAY_RATELIMIT_STRICT_REQUESTS=5.
	StrictLimit   httpx.RateLimitConfig `envPrefix:"GATEWAY_RATELIMIT_STRICT_"`
	ModerateLimit httpx.RateLimitConfig `envPrefix:"GATEWAY_RATELIMIT_MODERATE_"`
	LenientLimit  httpx.RateLimitConfig `envPrefix:"GATEWAY_RATELIMIT_LENIENT_"`
	PublicLimit   httpx.RateLimitConfig `envPrefix:"GATEWAY_RATELIMIT_PUBLIC_"`

	OTelEndpoint string `env:"GATEWAY_OTEL_ENDPOINT"` // tracing is off when empty

	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig reads the configuration from the environment, after loading a
// .env file from the working directory when one exists.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		StrictLimit:   httpx.StrictLimit,
		ModerateLimit: httpx.ModerateLimit,
		LenientLimit:  httpx.LenientLimit,
		PublicLimit:   httpx.PublicLimit,
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Issuer == "" {
		errs = append(errs, errors.New("GATEWAY_ISSUER must not be empty"))
	}
	if c.Algorithm != jwtx.AlgorithmEdDSA && c.Algorithm != jwtx.AlgorithmES256 {
		errs = append(errs, fmt.Errorf("GATEWAY_ALGORITHM %q is not supported (EdDSA, ES256)", c.Algorithm))
	}
	switch c.KeyStorageMode {
	case KeyStorageEphemeral:
	case KeyStoragePersistent:
		if c.MasterSecret == "" {
			errs = append(errs, errors.New("GATEWAY_MASTER_SECRET is required in persistent key mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("GATEWAY_KEY_STORAGE_MODE %q is not supported (ephemeral, persistent)", c.KeyStorageMode))
	}
	if c.MasterSecret != "" {
		if _, err := c.masterSecret(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.OIDCIssuer == "" {
		errs = append(errs, errors.New("GATEWAY_OIDC_ISSUER is required"))
	}
	if c.OIDCClientID == "" {
		errs = append(errs, errors.New("GATEWAY_OIDC_CLIENT_ID is required"))
	}
	if _, err := parseSameSite(c.CookieSameSite); err != nil {
		errs = append(errs, err)
	}
	for name, rl := range map[string]httpx.RateLimitConfig{
		"STRICT":   c.StrictLimit,
		"MODERATE": c.ModerateLimit,
		"LENIENT":  c.LenientLimit,
		"PUBLIC":   c.PublicLimit,
	} {
		if rl.RequestsPerWindow <= 0 || rl.Window <= 0 || rl.Burst <= 0 {
			errs = append(errs, fmt.Errorf("GATEWAY_RATELIMIT_%s_* must all be positive", name))
		}
	}

	return errors.Join(errs...)
}

func (c Config) masterSecret() ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(c.MasterSecret)
	if err != nil {
		return nil, fmt.Errorf("GATEWAY_MASTER_SECRET must be base64: %w", err)
	}
	if len(secret) < 32 {
		return nil, errors.New("GATEWAY_MASTER_SECRET must decode to at least 32 bytes")
	}
	return secret, nil
}

// TransportConfig builds the session cookie settings.
func (c Config) TransportConfig() transport.Config {
	sameSite, _ := parseSameSite(c.CookieSameSite)
	return transport.Config{
		Name:     c.CookieName,
		Domain:   c.CookieDomain,
		Path:     c.CookiePath,
		MaxAge:   c.SessionTTL,
		Secure:   c.CookieSecure,
		SameSite: sameSite,
	}
}

// RateLimits returns the configured rate limit profiles.
func (c Config) RateLimits() httpapi.RateLimits {
	return httpapi.RateLimits{
		Strict:   c.StrictLimit,
		Moderate: c.ModerateLimit,
		Lenient:  c.LenientLimit,
		Public:   c.PublicLimit,
	}
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("GATEWAY_COOKIE_SAMESITE %q is not supported (lax, strict, none)", s)
	}
}
