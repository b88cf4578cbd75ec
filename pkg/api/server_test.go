package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genlayer/glvault/pkg/audit"
	"github.com/genlayer/glvault/pkg/auth"
	"github.com/genlayer/glvault/pkg/relay"
	"github.com/genlayer/glvault/pkg/storage"
	"github.com/genlayer/glvault/pkg/types"
	"github.com/genlayer/glvault/pkg/vault"
)

const (
	testAdminToken = "tok3n"
	testHMACSecret = "s"
)

func newTestServer(t *testing.T, backend storage.Backend) (*Server, *vault.Store) {
	t.Helper()

	key := make([]byte, 32)
	copy(key, []byte("api-test-master-key-32-bytes!!"))
	store, err := vault.NewStore(vault.Options{Backend: backend, MasterKey: key})
	require.NoError(t, err)

	auditLog, err := audit.NewLog(audit.Options{Backend: backend})
	require.NoError(t, err)

	relayH, err := relay.NewHandler(relay.Options{
		Store:      store,
		AuditLog:   auditLog,
		HMACSecret: []byte(testHMACSecret),
	})
	require.NoError(t, err)

	s, err := NewServer(Options{
		Store:      store,
		Relay:      relayH,
		AuditLog:   auditLog,
		AdminToken: testAdminToken,
		Version:    "test",
	})
	require.NoError(t, err)
	return s, store
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAdminAuthMatrix(t *testing.T) {
	s, _ := newTestServer(t, storage.NewMemoryBackend())

	registerBody := map[string]any{
		"alias": "weather", "api_key": "K", "base_url": "https://example.com",
	}

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantError  string
	}{
		{"no header", "", http.StatusUnauthorized, "Missing Authorization header"},
		{"basic scheme", "Basic xyz", http.StatusUnauthorized, "Invalid Authorization format"},
		{"wrong token", "Bearer wrong", http.StatusUnauthorized, "Invalid admin token"},
		{"correct", "Bearer " + testAdminToken, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s.Handler(), http.MethodPost, "/keys/register", tt.token, registerBody)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeBody(t, rec)["error"])
			}
		})
	}
}

func TestRegisterValidationAndDuplicate(t *testing.T) {
	s, _ := newTestServer(t, storage.NewMemoryBackend())
	admin := "Bearer " + testAdminToken

	rec := doJSON(t, s.Handler(), http.MethodPost, "/keys/register", admin, map[string]any{
		"alias": "has space", "api_key": "K", "base_url": "https://example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodPost, "/keys/register", admin, map[string]any{
		"alias": "good", "api_key": "K", "base_url": "not-a-url",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	good := map[string]any{"alias": "good", "api_key": "K", "base_url": "https://example.com"}
	rec = doJSON(t, s.Handler(), http.MethodPost, "/keys/register", admin, good)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Response is metadata only, no cryptographic material.
	body := decodeBody(t, rec)
	assert.Equal(t, "good", body["alias"])
	assert.NotContains(t, body, "ciphertext")
	assert.NotContains(t, body, "iv")
	assert.NotContains(t, body, "auth_tag")

	rec = doJSON(t, s.Handler(), http.MethodPost, "/keys/register", admin, good)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListStripsCredentialFields(t *testing.T) {
	s, store := newTestServer(t, storage.NewMemoryBackend())
	_, err := store.Register(context.Background(), "a", "SECRET-A", "https://example.com", vault.RegisterOpts{})
	require.NoError(t, err)
	_, err = store.Register(context.Background(), "b", "SECRET-B", "https://example.org", vault.RegisterOpts{})
	require.NoError(t, err)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/keys/list", "Bearer "+testAdminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	assert.NotContains(t, rec.Body.String(), "ciphertext")
	assert.NotContains(t, rec.Body.String(), "SECRET-A")
	assert.NotContains(t, rec.Body.String(), "SECRET-B")
}

func TestRotateEndpoint(t *testing.T) {
	s, store := newTestServer(t, storage.NewMemoryBackend())
	_, err := store.Register(context.Background(), "r", "OLD", "https://example.com", vault.RegisterOpts{})
	require.NoError(t, err)
	admin := "Bearer " + testAdminToken

	rec := doJSON(t, s.Handler(), http.MethodPost, "/keys/rotate", admin, map[string]any{
		"alias": "ghost", "new_api_key": "NEW",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodPost, "/keys/rotate", admin, map[string]any{
		"alias": "r", "new_api_key": "NEW",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "r", body["alias"])
	assert.NotZero(t, body["rotated_at"])

	plaintext, _, err := store.GetPlaintext(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, "NEW", plaintext)
}

func TestRemoveEndpoint(t *testing.T) {
	s, store := newTestServer(t, storage.NewMemoryBackend())
	_, err := store.Register(context.Background(), "d", "K", "https://example.com", vault.RegisterOpts{})
	require.NoError(t, err)
	admin := "Bearer " + testAdminToken

	rec := doJSON(t, s.Handler(), http.MethodPost, "/keys/remove", admin, map[string]any{"alias": "d"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["removed"])

	rec = doJSON(t, s.Handler(), http.MethodPost, "/keys/remove", admin, map[string]any{"alias": "d"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditEndpoint(t *testing.T) {
	s, store := newTestServer(t, storage.NewMemoryBackend())
	admin := "Bearer " + testAdminToken

	rec := doJSON(t, s.Handler(), http.MethodGet, "/keys/audit", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/keys/audit?alias=ghost", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := store.Register(context.Background(), "w", "K", "https://example.com", vault.RegisterOpts{})
	require.NoError(t, err)
	require.NoError(t, s.auditLog.Append(context.Background(), &types.AuditEntry{
		Alias: "w", Caller: "c", Path: "/p", Method: "GET", Status: 200, LatencyMS: 12,
	}))

	rec = doJSON(t, s.Handler(), http.MethodGet, "/keys/audit?alias=w", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "w", body["alias"])
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["total_requests"])
	entries := body["entries"].([]any)
	assert.Len(t, entries, 1)
}

func TestProxyEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true}`)
	}))
	defer upstream.Close()

	s, store := newTestServer(t, storage.NewMemoryBackend())
	_, err := store.Register(context.Background(), "svc", "K", upstream.URL, vault.RegisterOpts{QuotaLimit: 5})
	require.NoError(t, err)

	relayReq := &types.RelayRequest{
		Alias:     "svc",
		Path:      "/v1",
		Method:    "GET",
		Timestamp: time.Now().UnixMilli(),
		Nonce:     "n1",
	}
	sig := auth.SignRequest(relayReq, []byte(testHMACSecret))

	data, err := json.Marshal(relayReq)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/proxy", bytes.NewReader(data))
	req.Header.Set("Authorization", "Signature "+sig)
	req.Header.Set("X-Caller-Id", "contract-9")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.RelayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int64(4), resp.RemainingQuota)
}

func TestProxyRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, storage.NewMemoryBackend())

	// Wrong method.
	rec := doJSON(t, s.Handler(), http.MethodGet, "/proxy", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/proxy", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Signature deadbeef")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing signature header.
	rec = doJSON(t, s.Handler(), http.MethodPost, "/proxy", "", map[string]any{
		"alias": "a", "path": "/p", "method": "GET",
		"timestamp": time.Now().UnixMilli(), "nonce": "n",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing signature", decodeBody(t, rec)["error"])
}

func TestProxyRateLimitResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer upstream.Close()

	s, store := newTestServer(t, storage.NewMemoryBackend())
	_, err := store.Register(context.Background(), "x", "K", upstream.URL, vault.RegisterOpts{QuotaLimit: 1})
	require.NoError(t, err)

	send := func(nonce string) *httptest.ResponseRecorder {
		relayReq := &types.RelayRequest{
			Alias: "x", Path: "/v1", Method: "GET",
			Timestamp: time.Now().UnixMilli(), Nonce: nonce,
		}
		sig := auth.SignRequest(relayReq, []byte(testHMACSecret))
		data, _ := json.Marshal(relayReq)
		req := httptest.NewRequest(http.MethodPost, "/proxy", bytes.NewReader(data))
		req.Header.Set("Authorization", "Signature "+sig)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("n1").Code)

	rec := send("n2")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["remaining"])
	assert.Equal(t, float64(vault.DefaultWindowMS), body["retry_after_ms"])
}

func TestHealthEndpoints(t *testing.T) {
	s, store := newTestServer(t, storage.NewMemoryBackend())
	_, err := store.Register(context.Background(), "a", "K", "https://example.com", vault.RegisterOpts{})
	require.NoError(t, err)

	// /health requires the bearer token.
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/health", "Bearer "+testAdminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["storage"])
	assert.Equal(t, float64(1), body["keys_registered"])

	// /healthz is open.
	rec = doJSON(t, s.Handler(), http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestHealthDegradedOnBackendFailure(t *testing.T) {
	backend := &flakyBackend{Backend: storage.NewMemoryBackend()}
	s, _ := newTestServer(t, backend)

	backend.fail = true
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", "Bearer "+testAdminToken, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "disconnected", body["storage"])
}

// flakyBackend fails every read when fail is set, for degraded-health tests.
type flakyBackend struct {
	storage.Backend
	fail bool
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.fail {
		return nil, false, errors.New("backend down")
	}
	return f.Backend.Get(ctx, key)
}

func (f *flakyBackend) Name() string { return "flaky" }
