// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and database settings are required
// outside of the dev environment; everything else falls back to a default.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	ClientURL  string // origin allowed by CORS (the SPA)
	AppBaseURL string // public base URL used in emailed links
	LogLevel   string // debug | info | warn | error

	DBDriver      string // mysql | sqlite3 | pgx
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	DBPath        string // sqlite file path (sqlite3 driver only)
	DatabaseURL   string // postgres connection URL (pgx driver only)
	DBAutoMigrate bool   // apply the embedded schema at startup

	AccessTokenKey  string        // secret used to sign access JWTs
	RefreshTokenKey string        // secret used to sign refresh JWTs
	AccessTTL       time.Duration // access token lifetime
	RefreshTTL      time.Duration // refresh token lifetime
	ResetTTL        time.Duration // password reset token lifetime
	BcryptCost      int           // bcrypt cost for password hashing
	CookieSecure    bool          // mark auth cookies Secure

	JSONBodyLimit        string // echo BodyLimit for JSON routes, e.g. "16K"
	AvatarBodyLimit      string // echo BodyLimit for multipart avatar routes
	TodosEmptyAsNotFound bool   // list-todos answers 404 on an empty set
	LiveUpdates          bool   // expose the websocket event stream
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() outside of the dev
// environment; in dev a missing secret falls back to a fixed development value.
func Load() Config {
	env := envStr("APP_ENV", "dev")
	dev := env == "dev" || env == "test"

	port := envStr("APP_PORT", "4000")
	cfg := Config{
		Env:       env,
		Port:      port,
		ClientURL: envStr("CLIENT_URL", "http://localhost:5173"),
		// the embedded frontend serves /reset-password from this server
		AppBaseURL: strings.TrimRight(envStr("APP_BASE_URL", "http://localhost:"+port), "/"),
		LogLevel:   envStr("LOG_LEVEL", "info"),

		DBDriver:      strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DBPass:        os.Getenv("DB_PASS"), // database password (empty allowed)
		DBPath:        envStr("DB_PATH", "todo.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBAutoMigrate: envBool("DB_AUTO_MIGRATE", true),

		AccessTTL:    envDur("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:   envDur("REFRESH_TOKEN_TTL", 10*24*time.Hour),
		ResetTTL:     envDur("RESET_TOKEN_TTL", 30*time.Minute),
		BcryptCost:   envInt("BCRYPT_COST", 10),
		CookieSecure: envBool("COOKIE_SECURE", true),

		JSONBodyLimit:        envStr("JSON_BODY_LIMIT", "16K"),
		AvatarBodyLimit:      envStr("AVATAR_BODY_LIMIT", "5M"),
		TodosEmptyAsNotFound: envBool("TODOS_EMPTY_AS_NOT_FOUND", true),
		LiveUpdates:          envBool("LIVE_UPDATES", true),
	}

	secret := must
	if dev {
		secret = func(key string) string { return envStr(key, "dev-"+strings.ToLower(key)) }
	}
	cfg.AccessTokenKey = secret("ACCESS_TOKEN_KEY")
	cfg.RefreshTokenKey = secret("REFRESH_TOKEN_KEY")
	if cfg.AccessTokenKey == cfg.RefreshTokenKey {
		log.Fatalf("ACCESS_TOKEN_KEY and REFRESH_TOKEN_KEY must differ")
	}

	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	case "pgx", "postgres":
		cfg.DBDriver = "pgx"
		cfg.DatabaseURL = must("DATABASE_URL")
	case "sqlite3", "sqlite":
		cfg.DBDriver = "sqlite3"
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	return cfg
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "test" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
