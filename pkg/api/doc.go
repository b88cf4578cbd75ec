/*
Package api exposes the vault over HTTP: the relay endpoint for callers,
the bearer-protected admin endpoints, health probes, and metrics.

# Routes

	POST /proxy           relay a signed request          Signature auth
	POST /keys/register   register a credential           Bearer auth
	GET  /keys/list       list key metadata               Bearer auth
	POST /keys/rotate     replace a credential            Bearer auth
	POST /keys/remove     delete a credential             Bearer auth
	GET  /keys/audit      audit stats + entries           Bearer auth
	GET  /health          operational probe               Bearer auth
	GET  /healthz         liveness probe                  none
	GET  /metrics         Prometheus exposition           none

Every response is JSON. Failures carry {"error": "..."}; the rate limit
rejection adds remaining and retry_after_ms, the upstream failure adds
latency_ms.

# Status Codes

	200  relayed (body's status field reflects the upstream's own status)
	201  registered
	400  malformed body, invalid alias, invalid base URL
	401  bad or missing signature, stale timestamp, bad admin token
	404  unknown alias
	405  wrong HTTP method
	409  duplicate registration
	429  quota exhausted
	500  integrity or backend failure, reported generically
	502  upstream unreachable
	503  health probe cannot reach storage

# Lifecycle

NewServer registers the routes; Start serves until its context is
cancelled and then drains connections for up to ten seconds. Request bodies
are capped at 1 MiB on every endpoint. Tests drive the route table directly
through Handler() and httptest.
*/
package api
