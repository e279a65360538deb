// Package config loads application configuration from environment
// variables. Load covers the settings every binary needs; the optional
// subsystems (rate limiting, Redis, RabbitMQ, MySQL) have their own
// loaders so each binary reads only what it uses.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the core runtime configuration. Each field corresponds to
// an environment variable.
type Config struct {
	Env               string        // application environment (e.g. "dev", "prod")
	Port              string        // HTTP port to listen on
	StoreURL          string        // REST root of the catalog store
	StoreAPIKey       string        // static key sent as apikey and bearer token
	StoreTimeout      time.Duration // per-request store timeout
	JWTSecret         string        // secret used to sign JWTs
	AccessTTLMin      int           // access token time-to-live in minutes
	AdminEmail        string        // login of the catalog administrator
	AdminPasswordHash string        // bcrypt hash of the administrator password
	LogLevel          string        // zap level name
}

// Load reads the core configuration. Every missing or malformed required
// variable is reported in the returned error.
func Load() (Config, error) {
	var errs []error
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}

	cfg := Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		StoreURL:          must("STORE_URL"),
		StoreAPIKey:       must("STORE_API_KEY"),
		JWTSecret:         must("JWT_SECRET"),
		AdminEmail:        must("ADMIN_EMAIL"),
		AdminPasswordHash: must("ADMIN_PASSWORD_HASH"),
		LogLevel:          envStr("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.StoreTimeout, err = parseDur("STORE_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.AccessTTLMin, err = parseInt("ACCESS_TOKEN_TTL_MIN", 60); err != nil {
		errs = append(errs, err)
	} else if cfg.AccessTTLMin < 1 {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive, got %d", cfg.AccessTTLMin))
	}

	return cfg, errors.Join(errs...)
}

// AccessTTL returns the access token lifetime.
func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMin) * time.Minute
}

// parseInt is like envInt but reports malformed values instead of
// silently using the default.
func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def, fmt.Errorf("invalid int for %s: %q", key, s)
	}
	return n, nil
}

func parseDur(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def, fmt.Errorf("invalid duration for %s: %q", key, s)
	}
	return d, nil
}
