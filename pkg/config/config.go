package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config is the complete runtime configuration, loaded once at startup from
// environment variables. Variable names are exact, with no process prefix,
// so deployments carry over between vault implementations unchanged.
type Config struct {
	// Secrets. All three are required; the process refuses to start without
	// them.
	MasterEncryptionKey string `envconfig:"MASTER_ENCRYPTION_KEY"`
	HMACSecret          string `envconfig:"HMAC_SECRET"`
	AdminToken          string `envconfig:"ADMIN_TOKEN"`

	// Request verification and quota accounting.
	RateLimitWindowMS int64 `envconfig:"RATE_LIMIT_WINDOW_MS" default:"60000"`
	MaxRequestAgeMS   int64 `envconfig:"MAX_REQUEST_AGE_MS" default:"30000"`
	NonceGuard        bool  `envconfig:"NONCE_GUARD" default:"true"`

	// Logging.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"true"`

	// HTTP server.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Storage backend selection.
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"bolt"`
	DataDir        string `envconfig:"DATA_DIR" default:"./glvault-data"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`

	// Upstream dispatch.
	UpstreamTimeoutMS int64  `envconfig:"UPSTREAM_TIMEOUT_MS" default:"10000"`
	UpstreamKeyParams string `envconfig:"UPSTREAM_KEY_PARAMS"`

	// Audit log.
	AuditIndexLimit      int   `envconfig:"AUDIT_INDEX_LIMIT" default:"10000"`
	AuditSweepIntervalMS int64 `envconfig:"AUDIT_SWEEP_INTERVAL_MS" default:"600000"`

	// Optional per-alias cipher isolation. Changing this flag makes
	// previously written records unreadable, so it is off by default.
	PerAliasKeys bool `envconfig:"PER_ALIAS_KEYS" default:"false"`
}

// Load reads and validates the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and sizes. Errors name the offending
// variable so a misconfigured deployment fails loudly and clearly.
func (c *Config) Validate() error {
	if c.MasterEncryptionKey == "" {
		return fmt.Errorf("MASTER_ENCRYPTION_KEY is required")
	}
	if len(c.MasterEncryptionKey) != 64 {
		return fmt.Errorf("MASTER_ENCRYPTION_KEY must be 64 hex characters, got %d", len(c.MasterEncryptionKey))
	}
	if _, err := hex.DecodeString(c.MasterEncryptionKey); err != nil {
		return fmt.Errorf("MASTER_ENCRYPTION_KEY must be valid hex: %w", err)
	}
	if c.HMACSecret == "" {
		return fmt.Errorf("HMAC_SECRET is required")
	}
	if c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}
	if c.RateLimitWindowMS <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_MS must be positive, got %d", c.RateLimitWindowMS)
	}
	if c.MaxRequestAgeMS <= 0 {
		return fmt.Errorf("MAX_REQUEST_AGE_MS must be positive, got %d", c.MaxRequestAgeMS)
	}
	if c.AuditIndexLimit <= 0 {
		return fmt.Errorf("AUDIT_INDEX_LIMIT must be positive, got %d", c.AuditIndexLimit)
	}
	switch c.StorageBackend {
	case "memory", "bolt", "redis":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, bolt, redis, got %q", c.StorageBackend)
	}
	if _, err := c.KeyParamOverrides(); err != nil {
		return err
	}
	return nil
}

// MasterKey decodes the master encryption key to its raw 32 bytes.
func (c *Config) MasterKey() ([]byte, error) {
	key, err := hex.DecodeString(c.MasterEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("MASTER_ENCRYPTION_KEY must be valid hex: %w", err)
	}
	return key, nil
}

// KeyParamOverrides parses UPSTREAM_KEY_PARAMS ("hostsuffix=param,...") into
// additions to the built-in credential parameter table.
func (c *Config) KeyParamOverrides() (map[string]string, error) {
	overrides := make(map[string]string)
	if c.UpstreamKeyParams == "" {
		return overrides, nil
	}
	for _, pair := range strings.Split(c.UpstreamKeyParams, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("UPSTREAM_KEY_PARAMS entry %q is not host=param", pair)
		}
		overrides[strings.ToLower(parts[0])] = parts[1]
	}
	return overrides, nil
}
