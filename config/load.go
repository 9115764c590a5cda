package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// KeyValueSource is a read-only view of the service-discovery store.
type KeyValueSource interface {
	// Get returns the value of key. The boolean is false when the key does not exist.
	Get(ctx context.Context, key string) (string, bool, error)
	Close() error
}

// Keys read from the service-discovery store.
const (
	KeyDatabaseHost     = "database/host"
	KeyDatabasePort     = "database/port"
	KeyDatabaseName     = "database/name"
	KeyDatabaseUser     = "database/username"
	KeyDatabasePassword = "database/password"
)

type loader struct {
	lookupEnv func(string) (string, bool)
	discovery func(ctx context.Context, cfg DiscoveryConfig) (KeyValueSource, error)
}

// Option customizes Load.
type Option func(*loader)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		l.lookupEnv = fn
	}
}

// WithDiscovery replaces the JetStream key/value source.
func WithDiscovery(fn func(ctx context.Context, cfg DiscoveryConfig) (KeyValueSource, error)) Option {
	return func(l *loader) {
		l.discovery = fn
	}
}

// Load resolves the configuration: built-in defaults, then the YAML file at
// path (when not empty), then environment variables, then the service-discovery
// store. Discovery failures are logged and leave the previous values in place.
func Load(ctx context.Context, path string, opts ...Option) (Config, error) {
	l := &loader{
		lookupEnv: os.LookupEnv,
		discovery: OpenJetStreamSource,
	}
	for _, opt := range opts {
		opt(l)
	}

	cfg := Default()

	if path == "" {
		path, _ = l.lookupEnv("TASKS_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := l.applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Discovery.URL != "" {
		if err := l.applyDiscovery(ctx, &cfg); err != nil {
			log.Printf("[config] Service discovery unavailable, using local database settings: %v", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (l *loader) applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"TASKS_HTTP_ADDR":        &cfg.HTTP.Addr,
		"TASKS_DB_DRIVER":        &cfg.Database.Driver,
		"TASKS_DB_PATH":          &cfg.Database.Path,
		"TASKS_DB_HOST":          &cfg.Database.Host,
		"TASKS_DB_NAME":          &cfg.Database.Name,
		"TASKS_DB_USER":          &cfg.Database.User,
		"TASKS_DB_PASSWORD":      &cfg.Database.Password,
		"TASKS_DB_SSLMODE":       &cfg.Database.SSLMode,
		"TASKS_IDENTITY_DB_PATH": &cfg.Identity.DBPath,
		"TASKS_AUTH_COOKIE":      &cfg.Identity.CookieName,
		"JWT_SECRET_KEY":         &cfg.Identity.JWTSecret,
		"JWT_ISSUER":             &cfg.Identity.JWTIssuer,
		"TASKS_REDIS_ADDR":       &cfg.Cache.RedisAddr,
		"TASKS_REDIS_PASSWORD":   &cfg.Cache.RedisPassword,
		"TASKS_DISCOVERY_URL":    &cfg.Discovery.URL,
		"TASKS_DISCOVERY_BUCKET": &cfg.Discovery.Bucket,
	}
	for key, dst := range strs {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TASKS_DB_PORT":          &cfg.Database.Port,
		"TASKS_REDIS_DB":         &cfg.Cache.RedisDB,
		"TASKS_LOGIN_RATE_LIMIT": &cfg.HTTP.LoginRateLimit,
	}
	for key, dst := range ints {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"TASKS_HTTP_REQUEST_TIMEOUT": &cfg.HTTP.RequestTimeout,
		"TASKS_LOGIN_RATE_WINDOW":    &cfg.HTTP.LoginRateWindow,
		"TASKS_CACHE_TTL":            &cfg.Cache.TTL,
		"JWT_ACCESS_TOKEN_TTL":       &cfg.Identity.AccessTokenTTL,
	}
	for key, dst := range durations {
		if v, ok := l.lookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// applyDiscovery overlays the database connection settings with the values
// found in the discovery store. Nothing is applied unless every read succeeds.
func (l *loader) applyDiscovery(ctx context.Context, cfg *Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Discovery.Timeout)
	defer cancel()

	src, err := l.discovery(ctx, cfg.Discovery)
	if err != nil {
		return err
	}
	defer src.Close()

	db := cfg.Database
	strs := map[string]*string{
		KeyDatabaseHost:     &db.Host,
		KeyDatabaseName:     &db.Name,
		KeyDatabaseUser:     &db.User,
		KeyDatabasePassword: &db.Password,
	}
	for key, dst := range strs {
		v, ok, err := src.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		if ok {
			*dst = v
		}
	}

	v, ok, err := src.Get(ctx, KeyDatabasePort)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", KeyDatabasePort, err)
	}
	if ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Join(fmt.Errorf("invalid %s", KeyDatabasePort), err)
		}
		db.Port = port
	}

	cfg.Database = db
	log.Printf("[config] Database settings resolved from service discovery (bucket: %s)", cfg.Discovery.Bucket)
	return nil
}
