/*
Package config loads and validates the vault's runtime configuration from
environment variables.

Configuration is read exactly once at startup via envconfig; the resulting
Config is immutable and handed to each component. Variable names carry no
process prefix so deployments transfer unchanged between vault
implementations.

# Required Variables

	MASTER_ENCRYPTION_KEY   64 hex characters (32-byte AES-256 key)
	HMAC_SECRET             shared secret for request signatures
	ADMIN_TOKEN             bearer token for administration endpoints

A missing or mis-sized value fails Load with an error naming the variable;
the serve command exits rather than starting a vault that cannot decrypt its
own records.

# Optional Variables

	RATE_LIMIT_WINDOW_MS     quota window, default 60000
	MAX_REQUEST_AGE_MS       signature freshness, default 30000
	NONCE_GUARD              replay set on/off, default true
	LOG_LEVEL / LOG_JSON     zerolog level and format
	LISTEN_ADDR              HTTP bind address, default :8080
	STORAGE_BACKEND          memory | bolt | redis, default bolt
	DATA_DIR                 bolt file directory
	REDIS_ADDR / REDIS_PASSWORD / REDIS_DB
	UPSTREAM_TIMEOUT_MS      dispatch timeout, default 10000
	UPSTREAM_KEY_PARAMS      "hostsuffix=param,..." table additions
	AUDIT_INDEX_LIMIT        per-alias index bound, default 10000
	AUDIT_SWEEP_INTERVAL_MS  orphan sweep period, 0 disables
	PER_ALIAS_KEYS           per-alias cipher isolation, default false

# Usage

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err.Error())
	}
	key, _ := cfg.MasterKey()
*/
package config
