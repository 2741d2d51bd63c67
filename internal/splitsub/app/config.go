package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/splitsub/pkg/httpx"
	"github.com/aussiebroadwan/splitsub/pkg/jwtx"
)

var ErrMissingSecrets = errors.New("app: JWT_SECRET and JWT_REFRESH_SECRET are required in production")

type Config struct {
	Env       string // Environment (dev, staging, production) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	DatabaseDriver   string // sqlite or postgres (default: sqlite)
	DatabaseFile     string // SQLite file (default: ./splitsub.db)
	DatabaseURL      string // Postgres DSN, required for the postgres driver
	DatabaseMaxConns int32  // Optional: pgx pool size

	RedisAddr     string // Optional: shared rate limit counters when set
	RedisPassword string
	RedisDB       int

	JWTSecret           string
	JWTRefreshSecret    string
	JWTExpiresIn        time.Duration // default 24h
	JWTRefreshExpiresIn time.Duration // default 7d
	JWTIssuer           string

	PasswordPepper string

	CORSOrigins           []string
	TrustProxy            bool
	IdentityLookupTimeout time.Duration
	ShutdownGracePeriod   time.Duration

	BootstrapAdminEmail    string // Optional: seeds a SUPERADMIN on startup
	BootstrapAdminPassword string
	BootstrapAdminName     string
}

// LoadConfig reads the environment, after loading .env when one exists.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		DatabaseDriver:   strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "sqlite")),
		DatabaseFile:     getEnvOrDefault("DATABASE_FILE", "splitsub.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseMaxConns: int32(getEnvIntOrDefault("DATABASE_MAX_CONNS", 0)),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:    os.Getenv("JWT_REFRESH_SECRET"),
		JWTExpiresIn:        getEnvDurationOrDefault("JWT_EXPIRES_IN", jwtx.DefaultAccessTokenTTL),
		JWTRefreshExpiresIn: getEnvDurationOrDefault("JWT_REFRESH_EXPIRES_IN", jwtx.DefaultRefreshTokenTTL),
		JWTIssuer:           getEnvOrDefault("JWT_ISSUER", "splitsub"),

		PasswordPepper: os.Getenv("PASSWORD_PEPPER"),

		CORSOrigins:           splitList(getEnvOrDefault("CORS_ORIGIN", "http://localhost:5173")),
		TrustProxy:            getEnvBoolOrDefault("TRUST_PROXY", false),
		IdentityLookupTimeout: getEnvDurationOrDefault("IDENTITY_LOOKUP_TIMEOUT", httpx.DefaultIdentityLookupTimeout),
		ShutdownGracePeriod:   getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminName:     os.Getenv("BOOTSTRAP_ADMIN_NAME"),
	}
}

// Production reports whether ENV selects production mode.
func (c Config) Production() bool {
	switch strings.ToLower(c.Env) {
	case "production", "prod":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Go durations first ("24h", "15m"), then a day count ("7d")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}

	return defaultValue
}
