// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Environment is the application environment (e.g. "development", "production").
	Environment string `mapstructure:"ENVIRONMENT"`
	// ServiceName identifies the process in telemetry (e.g. "iam-authority").
	ServiceName string `mapstructure:"SERVICE_NAME"`

	// Issuer is the iss claim minted into every access token.
	Issuer string `mapstructure:"TOKEN_ISSUER"`
	// AccessTTLRaw is the access token lifetime (e.g. "2h").
	AccessTTLRaw string `mapstructure:"ACCESS_TTL"`
	// RefreshTTLRaw is the refresh token lifetime (e.g. "720h").
	RefreshTTLRaw string `mapstructure:"REFRESH_TTL"`
	// KeyExpiryRaw is the signing key lifetime (e.g. "2160h").
	KeyExpiryRaw string `mapstructure:"KEY_EXPIRY"`

	// PasswordPepper is the process-wide KDF pepper. Required; never logged.
	PasswordPepper string `mapstructure:"PASSWORD_PEPPER"`
	// KDFIterations is the Argon2id pass count.
	KDFIterations uint32 `mapstructure:"KDF_ITERATIONS"`
	// KDFMemoryKiB is the Argon2id memory cost in KiB.
	KDFMemoryKiB uint32 `mapstructure:"KDF_MEMORY_KIB"`
	// KDFParallelism is the Argon2id lane count.
	KDFParallelism uint8 `mapstructure:"KDF_PARALLELISM"`
	// KDFSaltLength is the per-user salt length in bytes.
	KDFSaltLength uint32 `mapstructure:"KDF_SALT_LENGTH"`
	// KDFHashLength is the derived hash length in bytes.
	KDFHashLength uint32 `mapstructure:"KDF_HASH_LENGTH"`

	// CookieDomain is the Domain attribute for auth cookies; empty means host-only.
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`
	// CookieSameSiteNone selects SameSite=None (requires Secure); default is Lax.
	CookieSameSiteNone bool `mapstructure:"COOKIE_SAME_SITE_NONE"`

	// RedisAddr is the revocation store address (host:port).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional revocation store password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the revocation store database number.
	RedisDB int `mapstructure:"REDIS_DB"`
	// RevocationTimeoutRaw bounds every revocation lookup (e.g. "200ms").
	RevocationTimeoutRaw string `mapstructure:"REVOCATION_TIMEOUT"`
	// RevocationFailMode is "open" or "closed"; read-path behavior when the store is down.
	RevocationFailMode string `mapstructure:"REVOCATION_FAIL_MODE"`

	// GatewayPublicPaths is a comma-separated list of ant-glob patterns admitted without credentials.
	GatewayPublicPaths string `mapstructure:"GATEWAY_PUBLIC_PATHS"`

	// JWKSURL is where validators fetch the published key set.
	JWKSURL string `mapstructure:"JWKS_URL"`
	// JWKSRefreshIntervalRaw is the key set poll interval (e.g. "5m").
	JWKSRefreshIntervalRaw string `mapstructure:"JWKS_REFRESH_INTERVAL"`
	// JWKSMaxStaleRaw is how long a cached key set stays usable (e.g. "24h").
	JWKSMaxStaleRaw string `mapstructure:"JWKS_MAX_STALE"`

	// OTLPEndpoint enables telemetry export when set (e.g. http://collector:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS for https OTLP endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SERVICE_NAME", "marketplace-iam")
	v.SetDefault("TOKEN_ISSUER", "ecom-identity")
	v.SetDefault("ACCESS_TTL", "2h")
	v.SetDefault("REFRESH_TTL", "720h")
	v.SetDefault("KEY_EXPIRY", "2160h")
	v.SetDefault("PASSWORD_PEPPER", "")
	v.SetDefault("KDF_ITERATIONS", 3)
	v.SetDefault("KDF_MEMORY_KIB", 64*1024)
	v.SetDefault("KDF_PARALLELISM", 2)
	v.SetDefault("KDF_SALT_LENGTH", 32)
	v.SetDefault("KDF_HASH_LENGTH", 32)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SAME_SITE_NONE", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REVOCATION_TIMEOUT", "200ms")
	v.SetDefault("REVOCATION_FAIL_MODE", "closed")
	v.SetDefault("GATEWAY_PUBLIC_PATHS", "/auth/**,/.well-known/jwks.json,/healthz,/metrics")
	v.SetDefault("JWKS_URL", "")
	v.SetDefault("JWKS_REFRESH_INTERVAL", "5m")
	v.SetDefault("JWKS_MAX_STALE", "24h")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.PasswordPepper == "" {
		return nil, errors.New("config: PASSWORD_PEPPER must be set")
	}
	switch cfg.RevocationFailMode {
	case "open", "closed":
	default:
		return nil, errors.New("config: REVOCATION_FAIL_MODE must be open or closed")
	}
	return &cfg, nil
}

// AccessTTL parses ACCESS_TTL as a time.Duration. Returns 2h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return duration(c.AccessTTLRaw, 2*time.Hour)
}

// RefreshTTL parses REFRESH_TTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return duration(c.RefreshTTLRaw, 720*time.Hour)
}

// KeyExpiry parses KEY_EXPIRY as a time.Duration. Returns 2160h if unset or invalid.
func (c *Config) KeyExpiry() time.Duration {
	return duration(c.KeyExpiryRaw, 2160*time.Hour)
}

// RevocationTimeout parses REVOCATION_TIMEOUT. Returns 200ms if unset or invalid.
func (c *Config) RevocationTimeout() time.Duration {
	return duration(c.RevocationTimeoutRaw, 200*time.Millisecond)
}

// JWKSRefreshInterval parses JWKS_REFRESH_INTERVAL. Returns 5m if unset or invalid.
func (c *Config) JWKSRefreshInterval() time.Duration {
	return duration(c.JWKSRefreshIntervalRaw, 5*time.Minute)
}

// JWKSMaxStale parses JWKS_MAX_STALE. Returns 24h if unset or invalid.
func (c *Config) JWKSMaxStale() time.Duration {
	return duration(c.JWKSMaxStaleRaw, 24*time.Hour)
}

func duration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// PublicPaths returns the gateway's public path patterns from the
// comma-separated config value.
func (c *Config) PublicPaths() []string {
	return splitList(c.GatewayPublicPaths)
}

// Upstreams returns the gateway routing table from GATEWAY_UPSTREAM_*
// environment variables, each holding "prefix=url"
// (e.g. GATEWAY_UPSTREAM_PROFILE=/api/v1/profile=http://profile:8083).
func (c *Config) Upstreams() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "GATEWAY_UPSTREAM_") {
			continue
		}
		prefix, target, ok := strings.Cut(value, "=")
		if !ok || prefix == "" || target == "" {
			continue
		}
		out[strings.TrimSpace(prefix)] = strings.TrimSpace(target)
	}
	return out
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
