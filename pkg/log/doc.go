/*
Package log provides structured logging for glvault using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Architecture

The vault's logging system provides structured JSON logging with minimal
overhead:

	┌──────────────────── LOGGING SYSTEM ─────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐         │
	│  │            Global Logger                    │         │
	│  │  - Zerolog instance                         │         │
	│  │  - Initialized via log.Init()               │         │
	│  │  - Thread-safe for concurrent use           │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │           Configuration                     │         │
	│  │  - Level: debug/info/warn/error             │         │
	│  │  - Format: JSON or console (human)          │         │
	│  │  - Output: stdout, file, or custom writer   │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │         Component Loggers                   │         │
	│  │  - WithComponent("relay")                   │         │
	│  │  - WithAlias("weather-api")                 │         │
	│  │  - WithBackend("bolt")                      │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │            Log Output                       │         │
	│  │                                              │         │
	│  │  JSON Format:                               │         │
	│  │  {                                           │         │
	│  │    "level": "info",                         │         │
	│  │    "component": "relay",                    │         │
	│  │    "alias": "weather-api",                  │         │
	│  │    "time": "2026-02-11T10:30:00Z",         │         │
	│  │    "message": "request relayed"             │         │
	│  │  }                                           │         │
	│  └────────────────────────────────────────────┘          │
	│                                                           │
	└───────────────────────────────────────────────────────────┘

# Log Levels

Four levels, standard semantics:

  - debug: Per-request detail (verification steps, quota math). Off in
    production unless diagnosing.
  - info: Lifecycle events (server start, key registered, key rotated).
  - warn: Recoverable oddities (audit write retry, sweeper orphan found).
  - error: Failed operations (backend down, upstream unreachable).

# Usage

Initialization (once, at startup):

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Component loggers:

	logger := log.WithComponent("relay")
	logger.Info().
		Str("alias", alias).
		Int("status", status).
		Int64("latency_ms", latency).
		Msg("request relayed")

Helpers for one-off lines:

	log.Info("server started")
	log.Errorf("backend ping failed", err)

# Security

Never log plaintext credentials, ciphertext, HMAC secrets, signatures, or
admin tokens. Log aliases, kinds, and status codes instead. A decrypt failure
logs the alias and the error kind, nothing the record contains. This rule has
no exceptions, including at debug level.

# Integration Points

Every package logs through this wrapper:

  - pkg/api: request lines, shutdown progress
  - pkg/relay: relay outcomes, upstream latency
  - pkg/vault: register/rotate/remove lifecycle
  - pkg/audit: append failures, sweeper activity
  - pkg/storage: backend connect/retry

# See Also

  - pkg/metrics for the numeric counterpart of these events
  - pkg/events for the in-process event stream
*/
package log
