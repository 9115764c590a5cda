// Package config resolves the runtime configuration of the task service.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration of every module.
type Config struct {
	// HTTP configures the public API listener.
	HTTP HTTPConfig `yaml:"http"`

	// Database configures the task store.
	Database DatabaseConfig `yaml:"database"`

	// Identity configures the identity service and the session cookie.
	Identity IdentityConfig `yaml:"identity"`

	// Cache configures the optional Redis read cache in front of the task store.
	Cache CacheConfig `yaml:"cache"`

	// Discovery configures the service-discovery key/value store.
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// HTTPConfig holds the HTTP listener settings.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// LoginRateLimit is the number of login and register calls one client IP
	// may make per LoginRateWindow. Throttling needs Redis (cache.redis_addr);
	// zero disables it.
	LoginRateLimit  int           `yaml:"login_rate_limit"`
	LoginRateWindow time.Duration `yaml:"login_rate_window"`
}

// DatabaseConfig holds the task store settings.
type DatabaseConfig struct {
	// Driver is either "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file, used by the sqlite driver.
	Path string `yaml:"path"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// PostgresURL builds the connection string used by the postgres driver.
func (d DatabaseConfig) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.MaxConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(int(d.MaxConns)))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// IdentityConfig holds the identity service settings.
type IdentityConfig struct {
	DBPath         string        `yaml:"db_path"`
	JWTSecret      string        `yaml:"jwt_secret"`
	JWTIssuer      string        `yaml:"jwt_issuer"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`

	// CookieName is the only credential cookie the API recognizes.
	CookieName string `yaml:"cookie_name"`
}

// CacheConfig holds the Redis cache settings. An empty RedisAddr disables the cache.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
}

// Enabled reports whether the cache should be used.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// DiscoveryConfig holds the service-discovery settings. An empty URL disables discovery.
type DiscoveryConfig struct {
	URL     string        `yaml:"url"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":3000",
			RequestTimeout:  10 * time.Second,
			LoginRateLimit:  10,
			LoginRateWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Path:     "tasks.db",
			Host:     "localhost",
			Port:     5432,
			Name:     "tasks",
			User:     "tasks",
			Password: "tasks",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Identity: IdentityConfig{
			DBPath:         "identity.db",
			JWTSecret:      "your-secret-key-change-in-production",
			JWTIssuer:      "task-service",
			AccessTokenTTL: time.Hour,
			CookieName:     "auth_token",
		},
		Cache: CacheConfig{
			Prefix: "tasks:",
			TTL:    5 * time.Minute,
		},
		Discovery: DiscoveryConfig{
			Bucket:  "task-service-config",
			Timeout: 3 * time.Second,
		},
	}
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Identity.CookieName == "" {
		return fmt.Errorf("identity.cookie_name is required")
	}
	if c.Identity.JWTSecret == "" {
		return fmt.Errorf("identity.jwt_secret is required")
	}
	if c.HTTP.LoginRateLimit > 0 && c.HTTP.LoginRateWindow <= 0 {
		return fmt.Errorf("http.login_rate_window must be positive when http.login_rate_limit is set")
	}
	return nil
}
