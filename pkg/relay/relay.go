package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/genlayer/glvault/pkg/audit"
	"github.com/genlayer/glvault/pkg/auth"
	"github.com/genlayer/glvault/pkg/events"
	"github.com/genlayer/glvault/pkg/log"
	"github.com/genlayer/glvault/pkg/metrics"
	"github.com/genlayer/glvault/pkg/types"
	"github.com/genlayer/glvault/pkg/vault"
)

const (
	// DefaultUpstreamTimeout bounds one upstream round trip.
	DefaultUpstreamTimeout = 10 * time.Second

	// maxUpstreamBody caps how much of an upstream response is read back.
	maxUpstreamBody = 10 << 20
)

// Handler orchestrates one relayed call end to end: verify the signature,
// charge the quota, decrypt the credential, dispatch upstream, sanitize the
// response, and record the attempt. Handlers are safe for concurrent use.
type Handler struct {
	store      *vault.Store
	auditLog   *audit.Log
	secret     []byte
	maxAgeMS   int64
	nonceGuard *auth.NonceGuard
	httpClient *http.Client
	params     *KeyParamTable
	broker     *events.Broker
	logger     zerolog.Logger
	userAgent  string

	now func() int64
}

// Options configures a Handler.
type Options struct {
	Store    *vault.Store
	AuditLog *audit.Log

	// HMACSecret verifies relay signatures.
	HMACSecret []byte

	// MaxRequestAgeMS is the signature freshness window; 0 means 30000.
	MaxRequestAgeMS int64

	// NonceGuard rejects replayed nonces when non-nil.
	NonceGuard *auth.NonceGuard

	// UpstreamTimeout bounds one dispatch; 0 means DefaultUpstreamTimeout.
	UpstreamTimeout time.Duration

	// KeyParams resolves credential parameter names; nil means defaults
	// only.
	KeyParams *KeyParamTable

	// Broker receives relay lifecycle events; nil disables publishing.
	Broker *events.Broker

	// Version is reported in the upstream User-Agent header.
	Version string
}

// DefaultMaxRequestAgeMS is the signature freshness window when none is
// configured.
const DefaultMaxRequestAgeMS = 30000

// NewHandler creates a relay handler.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if opts.AuditLog == nil {
		return nil, fmt.Errorf("audit log is required")
	}
	if len(opts.HMACSecret) == 0 {
		return nil, fmt.Errorf("HMAC secret is required")
	}

	maxAge := opts.MaxRequestAgeMS
	if maxAge == 0 {
		maxAge = DefaultMaxRequestAgeMS
	}
	timeout := opts.UpstreamTimeout
	if timeout == 0 {
		timeout = DefaultUpstreamTimeout
	}
	params := opts.KeyParams
	if params == nil {
		params = NewKeyParamTable(nil)
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	return &Handler{
		store:      opts.Store,
		auditLog:   opts.AuditLog,
		secret:     opts.HMACSecret,
		maxAgeMS:   maxAge,
		nonceGuard: opts.NonceGuard,
		httpClient: &http.Client{Timeout: timeout},
		params:     params,
		broker:     opts.Broker,
		logger:     log.WithComponent("relay"),
		userAgent:  "glvault/" + version,
		now:        types.NowMS,
	}, nil
}

// WindowMS returns the quota window length, surfaced as retry_after_ms in
// 429 responses.
func (h *Handler) WindowMS() int64 {
	return h.store.WindowMS()
}

// UpstreamError wraps a dispatch failure so the HTTP layer can report how
// long the attempt took before it failed.
type UpstreamError struct {
	LatencyMS int64
	Err       *types.VaultError
}

func (e *UpstreamError) Error() string { return e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// Relay runs the pipeline for one caller request. sigHex is the value of
// the Authorization: Signature header; caller is an opaque identifier for
// the audit trail. A nil error means the upstream was reached and the
// sanitized response is returned, whatever the upstream's own status was.
func (h *Handler) Relay(ctx context.Context, req *types.RelayRequest, sigHex, caller string) (*types.RelayResponse, error) {
	start := time.Now()

	// VERIFY. Failures here are attributable only to the signer and do not
	// produce audit entries.
	if rej := auth.VerifyRelayRequest(req, sigHex, h.secret, h.maxAgeMS, h.now()); rej != nil {
		h.reject(req, caller, rej.Reason)
		return nil, rej.Err()
	}
	if h.nonceGuard != nil && !h.nonceGuard.Remember(req.Alias, req.Nonce) {
		h.reject(req, caller, "Duplicate nonce")
		return nil, types.NewError(types.KindUnauthorized, "Duplicate nonce")
	}

	// RATE. An unknown alias surfaces here as 404 before any quota state
	// exists to audit.
	usage, err := h.store.IncrementUsage(ctx, req.Alias)
	if err != nil {
		if !types.IsKind(err, types.KindNotFound) {
			h.audit(req, caller, http.StatusInternalServerError, start, types.MessageOf(err))
		}
		return nil, err
	}
	if !usage.Allowed {
		metrics.QuotaRejectionsTotal.Inc()
		h.audit(req, caller, http.StatusTooManyRequests, start, "Rate limit exceeded")
		h.reject(req, caller, "Rate limit exceeded")
		return nil, types.NewError(types.KindRateLimited, "Rate limit exceeded")
	}

	// DECRYPT. The alias can vanish between RATE and here when a removal
	// races the relay.
	credential, rec, err := h.store.GetPlaintext(ctx, req.Alias)
	if err != nil {
		if types.IsKind(err, types.KindNotFound) {
			h.audit(req, caller, http.StatusNotFound, start, "Key removed during relay")
		} else {
			h.audit(req, caller, http.StatusInternalServerError, start, types.MessageOf(err))
		}
		return nil, err
	}

	// DISPATCH.
	status, data, err := h.dispatch(ctx, req, rec, credential)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		h.logger.Warn().Str("alias", req.Alias).Str("method", req.Method).Err(err).
			Msg("upstream dispatch failed")
		h.audit(req, caller, http.StatusBadGateway, start, "Upstream request failed")
		h.reject(req, caller, "Upstream request failed")
		return nil, &UpstreamError{
			LatencyMS: latency,
			Err:       types.WrapError(types.KindUpstreamFail, "Upstream request failed", err),
		}
	}

	metrics.RelayRequestsTotal.WithLabelValues(req.Method, fmt.Sprintf("%d", status)).Inc()
	metrics.UpstreamLatency.Observe(float64(latency) / 1000)

	// SANITIZE + AUDIT. Only the sanitized projection leaves the vault;
	// upstream headers and the injected credential stay inside.
	h.audit(req, caller, status, start, "")
	h.publish(events.EventRelayCompleted, req, caller, fmt.Sprintf("%d", status))

	return &types.RelayResponse{
		Status:         status,
		Data:           data,
		Cached:         false,
		LatencyMS:      latency,
		RemainingQuota: usage.Remaining,
	}, nil
}

// dispatch forwards the request upstream with the credential injected and
// returns the upstream status and parsed body.
func (h *Handler) dispatch(ctx context.Context, req *types.RelayRequest, rec *types.CredentialRecord, credential string) (int, any, error) {
	param := h.params.ParamFor(rec.BaseURL)
	upstreamURL := BuildUpstreamURL(rec.BaseURL, req.Path, param, credential)

	var body io.Reader
	if req.Method != http.MethodGet && len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, upstreamURL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build upstream request: %w", err)
	}

	httpReq.Header.Set("User-Agent", h.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	var data any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &data); err != nil {
			// Upstream lied about its content type; pass the body through
			// as a string.
			data = string(raw)
		}
	} else {
		data = string(raw)
	}
	return resp.StatusCode, data, nil
}

// audit records the attempt best-effort. A failed audit write never fails
// the relay; it is logged and counted instead.
func (h *Handler) audit(req *types.RelayRequest, caller string, status int, start time.Time, errMsg string) {
	entry := &types.AuditEntry{
		Alias:     req.Alias,
		Caller:    caller,
		Path:      req.Path,
		Method:    req.Method,
		Status:    status,
		LatencyMS: time.Since(start).Milliseconds(),
		Error:     errMsg,
	}

	// Deliberately detached from the request context: the caller may have
	// gone away, the record still has to land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.auditLog.Append(ctx, entry); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		h.logger.Error().Str("alias", req.Alias).Err(err).Msg("failed to write audit entry")
	}
}

func (h *Handler) reject(req *types.RelayRequest, caller, reason string) {
	metrics.RelayRejectionsTotal.WithLabelValues(reason).Inc()
	h.publish(events.EventRelayRejected, req, caller, reason)
}

func (h *Handler) publish(t events.EventType, req *types.RelayRequest, caller, detail string) {
	if h.broker == nil {
		return
	}
	h.broker.Publish(&events.Event{
		Type:    t,
		Message: string(t),
		Metadata: map[string]string{
			"alias":  req.Alias,
			"caller": caller,
			"method": req.Method,
			"detail": detail,
		},
	})
}
