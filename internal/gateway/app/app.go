package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpapi "github.com/aussiebroadwan/tenantgate/internal/gateway/http"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/identity"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/service"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store/drivers/postgres"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/transport"
	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
	"github.com/aussiebroadwan/tenantgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "tenantgate"
)

// Application wires the gateway's dependencies together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db            store.Store
	rdb           *redis.Client // nil without GATEWAY_REDIS_URL
	sealers       Sealers
	keyManager    *jwtx.KeyManager
	identity      identity.Verifier
	transport     *transport.Transport
	traceShutdown func(context.Context) error

	// Services
	tokenService       *service.TokenService
	sessionService     *service.SessionService
	inviteService      *service.InviteService
	keyRotationService *service.KeyRotationService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialized. It contacts
// the database, the identity provider and, when configured, Redis.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	shutdown, err := SetupTracing(ctx, cfg.OTelEndpoint, serviceName, BuildVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.traceShutdown = shutdown

	if app.sealers, err = InitSealers(cfg, app.logger); err != nil {
		return nil, fmt.Errorf("failed to initialize sealers: %w", err)
	}

	// Database first, persistent keys live there
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	keyManager, err := InitSigningKeys(ctx, cfg, app.db, app.sealers.SigningKeys, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initIdentity(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initRedis(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.keyRotationService.Start()

	app.logger.Info("gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.keyRotationService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.keyRotationService.Stop()

	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	if err := app.traceShutdown(ctx); err != nil {
		app.logger.Error("error flushing traces", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gateway stopped")
	return nil
}

// initDatabase opens Postgres when GATEWAY_DATABASE_URL is set, SQLite
// otherwise, and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db     store.Store
		err    error
		driver string
	)
	if isPostgresURL(app.cfg.DatabaseURL) {
		driver = "postgres"
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	} else {
		driver = "sqlite"
		db, err = sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", driver)
	return nil
}

func isPostgresURL(u string) bool {
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

func (app *Application) initIdentity(ctx context.Context) error {
	v, err := identity.NewOIDC(ctx, identity.OIDCConfig{
		Issuer:       app.cfg.OIDCIssuer,
		ClientID:     app.cfg.OIDCClientID,
		ClientSecret: app.cfg.OIDCClientSecret,
		RedirectURL:  app.cfg.OIDCRedirectURL,
		Scopes:       app.cfg.OIDCScopes,
		Timeout:      app.cfg.OIDCTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize identity provider: %w", err)
	}
	app.identity = v
	app.logger.Info("identity provider discovered", "issuer", app.cfg.OIDCIssuer)
	return nil
}

// initRedis connects the shared rate limit store when one is configured.
func (app *Application) initRedis(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping: %w", err)
	}

	app.rdb = rdb
	app.logger.Info("redis rate limiter connected", "addr", opts.Addr)
	return nil
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		TTL:        app.cfg.SessionTTL,
	}
	app.sessionService = &service.SessionService{
		Store:  app.db,
		Tokens: app.tokenService,
	}
	app.inviteService = &service.InviteService{Store: app.db}

	app.keyRotationService = &service.KeyRotationService{
		KeyManager:  app.keyManager,
		Logger:      app.logger,
		Interval:    app.cfg.KeyRotationInterval,
		RotateAfter: app.cfg.KeyRotateAfter,
		GracePeriod: app.cfg.KeyGracePeriod,
		Lifetime:    app.cfg.KeyLifetime,
		Keep:        app.cfg.NumKeys,
	}
	if app.cfg.KeyStorageMode == KeyStoragePersistent {
		app.keyRotationService.Store = app.db
		app.keyRotationService.Sealer = app.sealers.SigningKeys
	}
	app.logger.Info("key rotation service enabled", "mode", app.cfg.KeyStorageMode)
}

func (app *Application) initHTTP() error {
	tr, err := transport.New(app.cfg.TransportConfig(), app.sealers.Transport)
	if err != nil {
		return fmt.Errorf("failed to initialize session transport: %w", err)
	}
	app.transport = tr

	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.transport,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.RateLimits = app.cfg.RateLimits()
	if app.rdb != nil {
		router.Limiters = httpx.RedisLimiterFactory(app.rdb)
	}

	router.Identity = app.identity
	router.TokenService = app.tokenService
	router.SessionService = app.sessionService
	router.InviteService = app.inviteService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
