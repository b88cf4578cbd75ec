package types

import (
	"encoding/json"
	"time"
)

// CredentialRecord is the persisted form of a registered API key. The
// credential itself is present only as AES-256-GCM output; plaintext never
// touches the storage backend. The JSON tags define the on-disk layout shared
// with other vault implementations, so they must not change.
type CredentialRecord struct {
	Alias            string `json:"alias"`
	Ciphertext       string `json:"ciphertext"` // hex
	IV               string `json:"iv"`         // hex
	AuthTag          string `json:"auth_tag"`   // hex
	BaseURL          string `json:"base_url"`
	QuotaLimit       int64  `json:"quota_limit"`
	QuotaUsed        int64  `json:"quota_used"`
	QuotaWindowStart int64  `json:"quota_window_start"` // unix ms
	CreatedAt        int64  `json:"created_at"`         // unix ms
	RotatedAt        int64  `json:"rotated_at,omitempty"`
	Owner            string `json:"owner"`
}

// Metadata returns the record with cryptographic material stripped. This is
// the only projection of a record that may leave the process.
func (r *CredentialRecord) Metadata() KeyMetadata {
	return KeyMetadata{
		Alias:            r.Alias,
		BaseURL:          r.BaseURL,
		QuotaLimit:       r.QuotaLimit,
		QuotaUsed:        r.QuotaUsed,
		QuotaWindowStart: r.QuotaWindowStart,
		CreatedAt:        r.CreatedAt,
		RotatedAt:        r.RotatedAt,
		Owner:            r.Owner,
	}
}

// KeyMetadata is the admin-facing view of a credential record. It carries no
// ciphertext, IV, or auth tag.
type KeyMetadata struct {
	Alias            string `json:"alias"`
	BaseURL          string `json:"base_url"`
	QuotaLimit       int64  `json:"quota_limit"`
	QuotaUsed        int64  `json:"quota_used"`
	QuotaWindowStart int64  `json:"quota_window_start"`
	CreatedAt        int64  `json:"created_at"`
	RotatedAt        int64  `json:"rotated_at,omitempty"`
	Owner            string `json:"owner"`
}

// AuditEntry records one relay attempt that reached quota accounting.
// Entries are append-only and immutable once written.
type AuditEntry struct {
	ID        string `json:"id"`
	Alias     string `json:"alias"`
	Caller    string `json:"caller"`
	Path      string `json:"path"`
	Method    string `json:"method"`
	Status    int    `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Timestamp int64  `json:"timestamp"` // unix ms
	Error     string `json:"error,omitempty"`
}

// AuditIndexEntry is one element of the bounded per-alias audit index.
type AuditIndexEntry struct {
	ID string `json:"id"`
	TS int64  `json:"ts"`
}

// AuditStats summarizes audit activity for one alias over a time window.
type AuditStats struct {
	TotalRequests int64 `json:"total_requests"`
	ErrorCount    int64 `json:"error_count"`
	AvgLatencyMS  int64 `json:"avg_latency_ms"`
	LastAccessed  int64 `json:"last_accessed,omitempty"`
}

// RelayRequest is the JSON body a caller POSTs to /proxy. Body stays raw so
// it can be forwarded upstream byte for byte.
type RelayRequest struct {
	Alias     string            `json:"alias"`
	Path      string            `json:"path"`
	Method    string            `json:"method"`
	Timestamp int64             `json:"timestamp"` // unix ms, covered by the signature
	Nonce     string            `json:"nonce"`
	Body      json.RawMessage   `json:"body,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// RelayResponse is the sanitized result returned to the caller. Upstream
// headers are dropped and the injected credential never appears.
type RelayResponse struct {
	Status         int   `json:"status"`
	Data           any   `json:"data"`
	Cached         bool  `json:"cached"`
	LatencyMS      int64 `json:"latency_ms"`
	RemainingQuota int64 `json:"remaining_quota"`
}

// HealthStatus is the response body of the health endpoint.
type HealthStatus struct {
	Status         string `json:"status"` // "ok" or "degraded"
	Version        string `json:"version"`
	UptimeMS       int64  `json:"uptime_ms"`
	Storage        string `json:"storage"` // "connected" or "disconnected"
	KeysRegistered int    `json:"keys_registered"`
}

// UnixMS converts a time to the unix-millisecond representation used in
// persisted records and signed payloads.
func UnixMS(t time.Time) int64 {
	return t.UnixMilli()
}

// NowMS returns the current time in unix milliseconds.
func NowMS() int64 {
	return time.Now().UnixMilli()
}
