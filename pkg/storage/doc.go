/*
Package storage provides the persistence layer for glvault.

The package exposes one abstract key/value contract (Backend) and three
implementations: an in-process map, a BoltDB file, and a Redis client. The
vault core is written against the contract only; backends are chosen at
startup and never leak implementation detail upward.

# Architecture

	┌─────────────────────── STORAGE LAYER ───────────────────────┐
	│                                                               │
	│  ┌──────────────────────────────────────────────┐           │
	│  │              Backend interface                │           │
	│  │  Get / Set / Delete / Scan / Ping / Close    │           │
	│  │  Opaque string keys, opaque byte values      │           │
	│  │  No transactions, no compare-and-set          │           │
	│  └───────┬───────────────┬───────────────┬──────┘           │
	│          │               │               │                   │
	│  ┌───────▼──────┐ ┌──────▼───────┐ ┌────▼─────────┐        │
	│  │ MemoryBackend│ │ BoltBackend  │ │ RedisBackend │        │
	│  │ RWMutex map  │ │ single "kv"  │ │ go-redis v9  │        │
	│  │ tests, dev   │ │ bucket, file │ │ shared store │        │
	│  └──────────────┘ └──────────────┘ └──────────────┘        │
	│                                                               │
	└───────────────────────────────────────────────────────────────┘

# Key Layout

Every key lives under the glvault: namespace. The layout is a frozen,
bit-exact contract shared with any other implementation reading the same
backend:

	glvault:key:<alias>           CredentialRecord JSON
	glvault:index                 JSON array of registered aliases
	glvault:audit:<alias>:<id>    AuditEntry JSON
	glvault:audit_index:<alias>   JSON array of {id, ts}

Helpers in keys.go build these strings; nothing else in the repo
concatenates key fragments by hand.

# Semantics

All implementations agree on:

  - Get on an absent key returns (nil, false, nil), never an error
  - Set is an unconditional overwrite
  - Delete of an absent key succeeds
  - Scan returns keys only, with no ordering guarantee and no snapshot
    isolation against concurrent writers
  - Values are copied on the way in and out where the implementation would
    otherwise share memory (memory, bolt)

Transport or I/O failures surface as wrapped errors; the vault layer
translates them to BACKEND_FAIL at its boundary.

# Backend Selection

Open(Options) picks the implementation by name:

	backend, err := storage.Open(storage.Options{
		Backend: cfg.StorageBackend, // "memory" | "bolt" | "redis"
		DataDir: cfg.DataDir,
		RedisAddr: cfg.RedisAddr,
	})

Bolt is the default: a single file under DataDir, one bucket, zero external
dependencies. Redis serves multi-process deployments; its constructor pings
with capped exponential backoff so a vault starting alongside its Redis
container does not flap.

# Instrumentation

Instrument(backend) wraps any Backend with per-operation Prometheus
counters (glvault_backend_operations_total, glvault_backend_errors_total).
The server applies it once at startup; tests and tools use raw backends.

# Testing

Backend behavior is specified once in store_test.go and run against the
whole matrix: memory, bolt (temp dir), and redis (miniredis). New
implementations must pass the same suite unchanged.

# See Also

  - pkg/vault for the credential store built on this contract
  - pkg/audit for the append-only log built on this contract
  - cmd/glvault-migrate for copying a keyspace between backends
*/
package storage
