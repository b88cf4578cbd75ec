package relay

import (
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
	"github.com/genlayer/glvault/pkg/storage"
	"github.com/genlayer/glvault/pkg/types"
	"github.com/genlayer/glvault/pkg/vault"
)

var testSecret = []byte("s")

type testRig struct {
	store    *vault.Store
	auditLog *audit.Log
	handler  *Handler
}

func newTestRig(t *testing.T, mutate ...func(*Options)) *testRig {
	t.Helper()

	backend := storage.NewMemoryBackend()

	key := make([]byte, 32)
	copy(key, []byte("relay-test-master-key-32-bytes"))
	store, err := vault.NewStore(vault.Options{Backend: backend, MasterKey: key})
	require.NoError(t, err)

	auditLog, err := audit.NewLog(audit.Options{Backend: backend})
	require.NoError(t, err)

	opts := Options{
		Store:      store,
		AuditLog:   auditLog,
		HMACSecret: testSecret,
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	handler, err := NewHandler(opts)
	require.NoError(t, err)

	return &testRig{store: store, auditLog: auditLog, handler: handler}
}

func signedRequest(alias, method, path string) (*types.RelayRequest, string) {
	req := &types.RelayRequest{
		Alias:     alias,
		Path:      path,
		Method:    method,
		Timestamp: time.Now().UnixMilli(),
		Nonce:     "n-" + path + method,
	}
	return req, auth.SignRequest(req, testSecret)
}

func auditEntries(t *testing.T, rig *testRig, alias string) []*types.AuditEntry {
	t.Helper()
	entries, err := rig.auditLog.Query(context.Background(), alias, audit.QueryOpts{})
	require.NoError(t, err)
	return entries
}

func TestRelayHappyPath(t *testing.T) {
	var gotURL, gotUA, gotAccept string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"temp": 21.5}`)
	}))
	defer upstream.Close()

	rig := newTestRig(t)
	_, err := rig.store.Register(context.Background(), "weather", "APIKEY1", upstream.URL,
		vault.RegisterOpts{QuotaLimit: 5})
	require.NoError(t, err)

	req, sig := signedRequest("weather", "GET", "/data/2.5/weather?q=Tokyo")
	resp, err := rig.handler.Relay(context.Background(), req, sig, "contract-1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int64(4), resp.RemainingQuota)
	assert.False(t, resp.Cached)
	assert.GreaterOrEqual(t, resp.LatencyMS, int64(0))
	assert.Equal(t, map[string]any{"temp": 21.5}, resp.Data)

	assert.Equal(t, "/data/2.5/weather?q=Tokyo&api_key=APIKEY1", gotURL)
	assert.Contains(t, gotUA, "glvault/")
	assert.Equal(t, "application/json", gotAccept)

	entries := auditEntries(t, rig, "weather")
	require.Len(t, entries, 1)
	assert.Equal(t, "GET", entries[0].Method)
	assert.Equal(t, "/data/2.5/weather?q=Tokyo", entries[0].Path)
	assert.Equal(t, http.StatusOK, entries[0].Status)
	assert.Equal(t, "contract-1", entries[0].Caller)
	assert.Empty(t, entries[0].Error)
}

func TestRelayForwardsBodyAndHeaders(t *testing.T) {
	var gotMethod, gotContentType, gotCustom string
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotCustom = r.Header.Get("X-Custom")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	rig := newTestRig(t)
	_, err := rig.store.Register(context.Background(), "svc", "K", upstream.URL, vault.RegisterOpts{})
	require.NoError(t, err)

	req, _ := signedRequest("svc", "POST", "/v1/items")
	req.Body = json.RawMessage(`{"name":"thing"}`)
	req.Headers = map[string]string{"X-Custom": "yes"}
	sig := auth.SignRequest(req, testSecret)

	resp, err := rig.handler.Relay(context.Background(), req, sig, "c")
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "yes", gotCustom)
	assert.JSONEq(t, `{"name":"thing"}`, string(gotBody))
}

func TestRelayNonJSONResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "plain result")
	}))
	defer upstream.Close()

	rig := newTestRig(t)
	_, err := rig.store.Register(context.Background(), "svc", "K", upstream.URL, vault.RegisterOpts{})
	require.NoError(t, err)

	req, sig := signedRequest("svc", "GET", "/v1")
	resp, err := rig.handler.Relay(context.Background(), req, sig, "c")
	require.NoError(t, err)
	assert.Equal(t, "plain result", resp.Data)
}

func TestRelayBadSignatureNoAudit(t *testing.T) {
	rig := newTestRig(t)
	_, err := rig.store.Register(context.Background(), "svc", "K", "https://example.com", vault.RegisterOpts{})
	require.NoError(t, err)

	req, _ := signedRequest("svc", "GET", "/v1")
	_, err = rig.handler.Relay(context.Background(), req, "deadbeef", "c")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindUnauthorized))
	assert.Equal(t, "Invalid signature", types.MessageOf(err))

	assert.Empty(t, auditEntries(t, rig, "svc"))
}

func TestRelayStaleTimestamp(t *testing.T) {
	rig := newTestRig(t)
	_, err := rig.store.Register(context.Background(), "svc", "K", "https://example.com", vault.RegisterOpts{})
	require.NoError(t, err)

	req, _ := signedRequest("svc", "GET", "/v1")
	req.Timestamp = time.Now().UnixMilli() - 31_000
	sig := auth.SignRequest(req, testSecret)

	_, err = rig.handler.Relay(context.Background(), req, sig, "c")
	require.Error(t, err)
	assert.Contains(t, types.MessageOf(err), "expired")

	// No audit entry and no quota charge for a stale request.
	assert.Empty(t, auditEntries(t, rig, "svc"))
	rec, err := rig.store.GetRecord(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.QuotaUsed)
}

func TestRelayUnknownAlias(t *testing.T) {
	rig := newTestRig(t)

	req, sig := signedRequest("ghost", "GET", "/v1")
	_, err := rig.handler.Relay(context.Background(), req, sig, "c")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
	assert.Empty(t, auditEntries(t, rig, "ghost"))
}

func TestRelayQuotaExhaustion(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer upstream.Close()

	rig := newTestRig(t)
	_, err := rig.store.Register(context.Background(), "x", "K", upstream.URL, vault.RegisterOpts{QuotaLimit: 2})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req, sig := signedRequest("x", "GET", "/v1")
		req.Nonce = req.Nonce + string(rune('a'+i))
		sig = auth.SignRequest(req, testSecret)
		resp, err := rig.handler.Relay(context.Background(), req, sig, "c")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
	}

	req, sig := signedRequest("x", "GET", "/v1")
	req.Nonce = "third"
	sig = auth.SignRequest(req, testSecret)
	_, err = rig.handler.Relay(context.Background(), req, sig, "c")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindRateLimited))

	entries := auditEntries(t, rig, "x")
	require.Len(t, entries, 3)
	assert.Equal(t, http.StatusTooManyRequests, entries[0].Status)
	assert.Equal(t, "Rate limit exceeded", entries[0].Error)
}

func TestRelayUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // nothing listens anymore

	rig := newTestRig(t)
	_, err := rig.store.Register(context.Background(), "svc", "K", upstream.URL, vault.RegisterOpts{})
	require.NoError(t, err)

	req, sig := signedRequest("svc", "GET", "/v1")
	_, err = rig.handler.Relay(context.Background(), req, sig, "c")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindUpstreamFail))

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.GreaterOrEqual(t, upErr.LatencyMS, int64(0))

	entries := auditEntries(t, rig, "svc")
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusBadGateway, entries[0].Status)
}

func TestRelayNonceReplay(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer upstream.Close()

	rig := newTestRig(t, func(o *Options) {
		o.NonceGuard = auth.NewNonceGuard(30 * time.Second)
	})
	_, err := rig.store.Register(context.Background(), "svc", "K", upstream.URL, vault.RegisterOpts{})
	require.NoError(t, err)

	req, sig := signedRequest("svc", "GET", "/v1")
	_, err = rig.handler.Relay(context.Background(), req, sig, "c")
	require.NoError(t, err)

	_, err = rig.handler.Relay(context.Background(), req, sig, "c")
	require.Error(t, err)
	assert.Equal(t, "Duplicate nonce", types.MessageOf(err))

	// The replay was rejected at VERIFY: one audit entry, one quota charge.
	assert.Len(t, auditEntries(t, rig, "svc"), 1)
	rec, err := rig.store.GetRecord(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.QuotaUsed)
}

func TestRelayResponseNeverContainsCredential(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream-Secret", "leak")
		io.WriteString(w, `{"ok": true}`)
	}))
	defer upstream.Close()

	rig := newTestRig(t)
	_, err := rig.store.Register(context.Background(), "svc", "SUPERSECRET", upstream.URL, vault.RegisterOpts{})
	require.NoError(t, err)

	req, sig := signedRequest("svc", "GET", "/v1")
	resp, err := rig.handler.Relay(context.Background(), req, sig, "c")
	require.NoError(t, err)

	serialized, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(serialized), "SUPERSECRET")
	assert.NotContains(t, string(serialized), "X-Upstream-Secret")
}

func TestRelayScenarioURLExactness(t *testing.T) {
	// The injected parameter for api.openweathermap.org is appid and the
	// credential rides after the caller's own query string.
	table := NewKeyParamTable(nil)
	param := table.ParamFor("https://api.openweathermap.org")
	url := BuildUpstreamURL("https://api.openweathermap.org", "/data/2.5/weather?q=Tokyo", param, "APIKEY1")
	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather?q=Tokyo&appid=APIKEY1", url)
}
