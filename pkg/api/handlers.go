package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/genlayer/glvault/pkg/audit"
	"github.com/genlayer/glvault/pkg/relay"
	"github.com/genlayer/glvault/pkg/types"
	"github.com/genlayer/glvault/pkg/vault"
)

const signaturePrefix = "Signature "

// extractSignature pulls the hex signature out of an
// "Authorization: Signature <hex>" header.
func extractSignature(header string) (string, bool) {
	if !strings.HasPrefix(header, signaturePrefix) {
		return "", false
	}
	sig := header[len(signaturePrefix):]
	if sig == "" {
		return "", false
	}
	return sig, true
}

// handleProxy implements POST /proxy, the relay endpoint.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	sigHex, ok := extractSignature(r.Header.Get("Authorization"))
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Missing signature")
		return
	}

	caller := r.Header.Get("X-Caller-Id")
	if caller == "" {
		caller = "unknown"
	}

	resp, err := s.relayH.Relay(r.Context(), &req, sigHex, caller)
	if err != nil {
		s.writeRelayError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeRelayError maps a relay pipeline error to its response body. Rate
// limit rejections carry a retry hint; upstream failures carry how long the
// attempt took.
func (s *Server) writeRelayError(w http.ResponseWriter, err error) {
	status := types.HTTPStatusOf(err)
	body := map[string]any{"error": types.MessageOf(err)}

	if types.IsKind(err, types.KindRateLimited) {
		body["remaining"] = 0
		body["retry_after_ms"] = s.relayH.WindowMS()
	}
	var upErr *relay.UpstreamError
	if errors.As(err, &upErr) {
		body["latency_ms"] = upErr.LatencyMS
	}
	s.writeJSON(w, status, body)
}

type registerRequest struct {
	Alias      string `json:"alias"`
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	QuotaLimit int64  `json:"quota_limit,omitempty"`
	Owner      string `json:"owner,omitempty"`
}

// handleRegister implements POST /keys/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	rec, err := s.store.Register(r.Context(), req.Alias, req.APIKey, req.BaseURL, vault.RegisterOpts{
		QuotaLimit: req.QuotaLimit,
		Owner:      req.Owner,
	})
	if err != nil {
		s.writeError(w, types.HTTPStatusOf(err), types.MessageOf(err))
		return
	}
	s.writeJSON(w, http.StatusCreated, rec.Metadata())
}

// handleList implements GET /keys/list.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	keys, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, types.HTTPStatusOf(err), types.MessageOf(err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(keys),
		"keys":  keys,
	})
}

type rotateRequest struct {
	Alias     string `json:"alias"`
	NewAPIKey string `json:"new_api_key"`
}

// handleRotate implements POST /keys/rotate.
func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	rec, err := s.store.Rotate(r.Context(), req.Alias, req.NewAPIKey)
	if err != nil {
		s.writeError(w, types.HTTPStatusOf(err), types.MessageOf(err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"alias":      rec.Alias,
		"rotated_at": rec.RotatedAt,
	})
}

type removeRequest struct {
	Alias string `json:"alias"`
}

// handleRemove implements POST /keys/remove.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	removed, err := s.store.Remove(r.Context(), req.Alias)
	if err != nil {
		s.writeError(w, types.HTTPStatusOf(err), types.MessageOf(err))
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "Unknown alias")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"alias":   req.Alias,
		"removed": true,
	})
}

// handleAudit implements GET /keys/audit?alias=X&since=ms&until=ms&limit=N.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	alias := r.URL.Query().Get("alias")
	if alias == "" {
		s.writeError(w, http.StatusBadRequest, "Missing alias parameter")
		return
	}
	if _, err := s.store.GetRecord(r.Context(), alias); err != nil {
		s.writeError(w, types.HTTPStatusOf(err), types.MessageOf(err))
		return
	}

	since := queryInt64(r, "since")
	until := queryInt64(r, "until")
	limit := int(queryInt64(r, "limit"))

	stats, err := s.auditLog.Stats(r.Context(), alias, since)
	if err != nil {
		s.writeError(w, types.HTTPStatusOf(err), types.MessageOf(err))
		return
	}
	entries, err := s.auditLog.Query(r.Context(), alias, audit.QueryOpts{
		SinceMS: since,
		UntilMS: until,
		Limit:   limit,
	})
	if err != nil {
		s.writeError(w, types.HTTPStatusOf(err), types.MessageOf(err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"alias":   alias,
		"stats":   stats,
		"entries": entries,
	})
}

func queryInt64(r *http.Request, name string) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
