/*
Package metrics defines the vault's Prometheus collectors and the /metrics
handler.

All collectors are package-level and registered in init, so importing the
package is enough to expose them. Names are prefixed glvault_ and labels stay
low-cardinality: method, status code, error kind, backend name, operation.
Aliases are deliberately not a label; per-alias detail lives in the audit
log, not in the metric space.

# Collectors

Relay path:

	glvault_relay_requests_total{method,status}    completed relays
	glvault_relay_rejections_total{kind}           pre-dispatch rejections
	glvault_relay_upstream_latency_seconds         upstream round-trip
	glvault_quota_rejections_total                 quota exhaustions

Key lifecycle:

	glvault_keys_registered                        current alias count
	glvault_key_rotations_total                    rotations

Audit trail:

	glvault_audit_entries_total                    entries written
	glvault_audit_write_failures_total             writes lost after retry
	glvault_audit_swept_total                      orphans removed

Storage:

	glvault_backend_operations_total{backend,op}
	glvault_backend_errors_total{backend,op}

# Collector Loop

Counters are incremented inline by the owning package. The one gauge that
mirrors stored state (glvault_keys_registered) is refreshed two ways: event
subscribers update it on key lifecycle changes, and Collector re-reads the
true count every 15 seconds in case an event was dropped.

	collector := metrics.NewCollector(store.Count)
	collector.Start()
	defer collector.Stop()

# Serving

	mux.Handle("/metrics", metrics.Handler())
*/
package metrics
