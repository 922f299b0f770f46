package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// App
	Env string // dev / staging / prod

	// HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// External identity provider (token verification)
	IdPIssuer   string
	IdPAudience string
	IdPSecret   string

	// Infrastructure
	DBAddr  string
	DBDebug bool

	// Optional: resolved-profile cache. Empty RedisAddr disables caching.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration

	// Optional: identity event publishing. Empty RabbitURL disables it.
	RabbitURL string

	// Re-key transaction bound. Cascading updates across dependent tables can
	// be slow on large accounts; keep this generous but finite.
	ReKeyTimeout time.Duration
}

// Load reads configuration from the environment. A .env file is honored when
// present (development convenience); real deployments set the variables
// directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}

	// Required: the service cannot resolve identities without the database or
	// without knowing which issuer signed the inbound tokens. Fail fast.
	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}

	cfg.IdPIssuer = os.Getenv("IDP_ISSUER")
	if cfg.IdPIssuer == "" {
		return nil, fmt.Errorf("missing required env var: IDP_ISSUER")
	}
	cfg.IdPSecret = os.Getenv("IDP_SECRET")
	if cfg.IdPSecret == "" {
		return nil, fmt.Errorf("missing required env var: IDP_SECRET")
	}
	cfg.IdPAudience = getEnv("IDP_AUDIENCE", "identity-service")

	cfg.DBDebug = os.Getenv("DB_DEBUG") == "true"

	// Optional backing services; the service degrades without them.
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getInt("REDIS_DB", 0)
	cfg.RabbitURL = os.Getenv("RABBIT_URL")

	cacheTTL, err := getDuration("PROFILE_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.ProfileCacheTTL = cacheTTL

	rekey, err := getDuration("REKEY_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.ReKeyTimeout = rekey

	rt, err := getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPReadTimeout = rt

	wt, err := getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPWriteTimeout = wt

	it, err := getDuration("HTTP_IDLE_TIMEOUT", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.HTTPIdleTimeout = it

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}
