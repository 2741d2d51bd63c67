package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/splitsub/internal/splitsub/http"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/service"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store/drivers/postgres"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store/drivers/sqlite"
	"github.com/aussiebroadwan/splitsub/pkg/cryptox"
	"github.com/aussiebroadwan/splitsub/pkg/jwtx"
	"github.com/aussiebroadwan/splitsub/pkg/ratelimit"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the store, services and HTTP server together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	redis *redis.Client         // nil unless REDIS_ADDR is set
	cache *ratelimit.RedisStore // counters on redis

	tokens           *jwtx.TokenService
	limiter          *ratelimit.Limiter
	authService      *service.AuthService
	userService      *service.UserService
	bootstrapService *service.BootstrapService

	server *http.Server
	router *httpapi.Router
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "splitsub",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := resolveSecrets(&app.cfg, app.logger); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initRateLimit(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeBackends()
		return nil, err
	}
	if err := app.bootstrap(); err != nil {
		app.closeBackends()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the server and blocks until a signal or a server error.
func (app *Application) Run() error {
	app.logger.Info("splitsub starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database_driver", app.cfg.DatabaseDriver,
		"shared_rate_limits", app.redis != nil,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown drains in-flight requests for up to the grace period.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down splitsub...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.closeBackends(); err != nil {
		return err
	}

	app.logger.Info("splitsub stopped")
	return nil
}

func (app *Application) closeBackends() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// resolveSecrets fails in production when a signing secret is missing and
// generates throwaway ones everywhere else.
func resolveSecrets(cfg *Config, logger *slog.Logger) error {
	if cfg.JWTSecret != "" && cfg.JWTRefreshSecret != "" {
		return nil
	}
	if cfg.Production() {
		return ErrMissingSecrets
	}

	for _, secret := range []*string{&cfg.JWTSecret, &cfg.JWTRefreshSecret} {
		if *secret != "" {
			continue
		}
		generated, err := cryptox.GenerateToken(cryptox.TokenSize512)
		if err != nil {
			return err
		}
		*secret = generated
	}

	logger.Warn("JWT secrets not configured, using ephemeral ones; tokens will not survive a restart")
	return nil
}

func (app *Application) initDatabase() error {
	switch app.cfg.DatabaseDriver {
	case "sqlite":
		host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(host)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	case "postgres":
		if app.cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := postgres.NewStore(ctx, app.cfg.DatabaseURL, postgres.PoolConfig{MaxConns: app.cfg.DatabaseMaxConns})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", app.cfg.DatabaseDriver)
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initRateLimit picks Redis as the shared counter store when configured,
// otherwise an in-process one.
func (app *Application) initRateLimit() error {
	policies := ratelimit.PoliciesFromEnv(ratelimit.DefaultPolicies(app.cfg.Production()))

	var st ratelimit.Store
	if app.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		app.redis = client
		app.cache = ratelimit.NewRedisStore(client, "splitsub:ratelimit:")
		st = app.cache
	} else {
		if app.cfg.Production() {
			app.logger.Warn("REDIS_ADDR not set, rate limits are per process")
		}
		st = ratelimit.NewMemoryStore()
	}

	app.limiter = ratelimit.NewLimiter(st, policies)
	return nil
}

func (app *Application) initServices() error {
	tokens, err := jwtx.NewTokenService(jwtx.Options{
		AccessSecret:  []byte(app.cfg.JWTSecret),
		RefreshSecret: []byte(app.cfg.JWTRefreshSecret),
		AccessTTL:     app.cfg.JWTExpiresIn,
		RefreshTTL:    app.cfg.JWTRefreshExpiresIn,
		Issuer:        app.cfg.JWTIssuer,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokens = tokens

	hasher := cryptox.NewHasher(app.cfg.PasswordPepper)
	app.authService, err = service.NewAuthService(app.db, tokens, hasher)
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}
	app.userService = &service.UserService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db, Hasher: hasher}
	return nil
}

func (app *Application) bootstrap() error {
	if app.cfg.BootstrapAdminEmail == "" && app.cfg.BootstrapAdminPassword == "" {
		return nil
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	if _, err := app.bootstrapService.EnsureAdmin(ctx,
		app.cfg.BootstrapAdminEmail,
		app.cfg.BootstrapAdminPassword,
		app.cfg.BootstrapAdminName,
	); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		httpapi.Options{
			BuildVersion:  BuildVersion,
			Production:    app.cfg.Production(),
			TrustProxy:    app.cfg.TrustProxy,
			CORSOrigins:   app.cfg.CORSOrigins,
			LookupTimeout: app.cfg.IdentityLookupTimeout,
		},
		app.db,
		app.tokens,
		app.limiter,
		app.logger,
	)

	router.AuthService = app.authService
	router.UserService = app.userService
	router.Throttle = ratelimit.NewThrottle(ratelimit.DefaultThrottle)
	if app.cache != nil {
		router.Cache = app.cache
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
