/*
Package relay orchestrates a single relayed API call: the state machine
behind POST /proxy.

# State Machine

	VERIFY ──► RATE ──► DECRYPT ──► DISPATCH ──► SANITIZE ──► AUDIT

Any step's failure is terminal and determines both the response and the
audit outcome:

	VERIFY    signature, freshness, nonce     → 401, no audit entry
	RATE      unknown alias                   → 404, no audit entry
	          quota exhausted                 → 429, audited
	DECRYPT   alias removed mid-relay         → 404, audited
	          auth tag mismatch               → 500, audited
	DISPATCH  network error or timeout        → 502, audited
	SANITIZE  never fails                     → 200, audited with the
	                                            upstream's own status

VERIFY failures are attributable only to the signer; auditing them would
fill the log with noise an attacker controls. Everything at or after RATE
is audited best-effort: a failed audit write is logged and counted but
never fails a response the caller is already receiving.

# Credential Injection

The upstream URL is the record's base_url joined with the caller's path,
plus the credential as a query parameter. The parameter name comes from a
host-suffix table:

	openweathermap.org  appid
	newsapi.org         apiKey
	alphavantage.co     apikey
	googleapis.com      key
	(anything else)     api_key

Operators extend the table with UPSTREAM_KEY_PARAMS=suffix=param,...
without code changes.

# Forwarding

Requests go out with a fixed base header set (User-Agent, Accept:
application/json) overlaid by the caller's headers, the JSON body for
non-GET methods, and a bounded timeout. The upstream response body is
parsed as JSON when the Content-Type says so, kept as a string otherwise.
The response returned to the caller carries only status, data, latency and
remaining quota; upstream headers are dropped and the credential appears
nowhere.
*/
package relay
