package vault

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genlayer/glvault/pkg/storage"
	"github.com/genlayer/glvault/pkg/types"
)

func testMasterKey() []byte {
	key := make([]byte, 32)
	copy(key, []byte("vault-test-master-key-32-bytes"))
	return key
}

func newTestStore(t *testing.T, mutate ...func(*Options)) *Store {
	t.Helper()

	opts := Options{
		Backend:   storage.NewMemoryBackend(),
		MasterKey: testMasterKey(),
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	s, err := NewStore(opts)
	require.NoError(t, err)
	return s
}

// TestRegisterDefaults tests field defaults on a minimal registration
func TestRegisterDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Register(ctx, "weather", "APIKEY1", "https://api.openweathermap.org", RegisterOpts{})
	require.NoError(t, err)

	assert.Equal(t, "weather", rec.Alias)
	assert.Equal(t, int64(DefaultQuotaLimit), rec.QuotaLimit)
	assert.Equal(t, int64(0), rec.QuotaUsed)
	assert.Equal(t, DefaultOwner, rec.Owner)
	assert.NotZero(t, rec.CreatedAt)
	assert.Equal(t, rec.CreatedAt, rec.QuotaWindowStart)
	assert.Zero(t, rec.RotatedAt)
	assert.NotEmpty(t, rec.Ciphertext)
	assert.NotEmpty(t, rec.IV)
	assert.NotEmpty(t, rec.AuthTag)
	assert.NotContains(t, rec.Ciphertext, "APIKEY1")

	plaintext, got, err := s.GetPlaintext(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, "APIKEY1", plaintext)
	assert.Equal(t, rec.Alias, got.Alias)
}

// TestRegisterValidation tests alias, URL, and credential validation
func TestRegisterValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		alias      string
		credential string
		baseURL    string
	}{
		{
			name:       "empty alias",
			alias:      "",
			credential: "k",
			baseURL:    "https://example.com",
		},
		{
			name:       "alias too long",
			alias:      strings.Repeat("a", 65),
			credential: "k",
			baseURL:    "https://example.com",
		},
		{
			name:       "alias with space",
			alias:      "my alias",
			credential: "k",
			baseURL:    "https://example.com",
		},
		{
			name:       "alias with punctuation",
			alias:      "alias;drop",
			credential: "k",
			baseURL:    "https://example.com",
		},
		{
			name:       "empty credential",
			alias:      "ok",
			credential: "",
			baseURL:    "https://example.com",
		},
		{
			name:       "empty base url",
			alias:      "ok",
			credential: "k",
			baseURL:    "",
		},
		{
			name:       "relative base url",
			alias:      "ok",
			credential: "k",
			baseURL:    "not-a-url",
		},
		{
			name:       "unsupported scheme",
			alias:      "ok",
			credential: "k",
			baseURL:    "ftp://example.com",
		},
		{
			name:       "scheme without host",
			alias:      "ok",
			credential: "k",
			baseURL:    "http://",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.alias, tt.credential, tt.baseURL, RegisterOpts{})
			require.Error(t, err)
			assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
		})
	}

	// The full permitted charset registers fine.
	_, err := s.Register(ctx, "Az09_-", "k", "https://example.com", RegisterOpts{})
	assert.NoError(t, err)

	// A 64-character alias is the boundary and is accepted.
	_, err = s.Register(ctx, strings.Repeat("a", 64), "k", "https://example.com", RegisterOpts{})
	assert.NoError(t, err)
}

func TestRegisterDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "dup", "k1", "https://example.com", RegisterOpts{})
	require.NoError(t, err)

	_, err = s.Register(ctx, "dup", "k2", "https://example.com", RegisterOpts{})
	require.Error(t, err)
	assert.Equal(t, types.KindAlreadyExists, types.KindOf(err))

	// The original credential is untouched.
	plaintext, _, err := s.GetPlaintext(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "k1", plaintext)
}

func TestRegisterCustomOpts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Register(ctx, "custom", "k", "https://example.com", RegisterOpts{
		QuotaLimit: 5,
		Owner:      "ops",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), rec.QuotaLimit)
	assert.Equal(t, "ops", rec.Owner)

	_, err = s.Register(ctx, "negative", "k", "https://example.com", RegisterOpts{QuotaLimit: -1})
	require.Error(t, err)
	assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
}

func TestUnknownAlias(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRecord(ctx, "ghost")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	_, _, err = s.GetPlaintext(ctx, "ghost")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	_, err = s.Rotate(ctx, "ghost", "new")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	_, err = s.IncrementUsage(ctx, "ghost")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	removed, err := s.Remove(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, removed)
}

// TestRotatePreservesQuota tests that rotation swaps credential material only
func TestRotatePreservesQuota(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, err := s.Register(ctx, "svc", "OLD", "https://api.example.com", RegisterOpts{QuotaLimit: 5})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		usage, err := s.IncrementUsage(ctx, "svc")
		require.NoError(t, err)
		require.True(t, usage.Allowed)
	}

	after, err := s.Rotate(ctx, "svc", "NEW")
	require.NoError(t, err)

	assert.Equal(t, int64(2), after.QuotaUsed)
	assert.Equal(t, int64(5), after.QuotaLimit)
	assert.Equal(t, before.QuotaWindowStart, after.QuotaWindowStart)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, before.Owner, after.Owner)
	assert.NotZero(t, after.RotatedAt)
	assert.GreaterOrEqual(t, after.RotatedAt, after.CreatedAt)
	assert.NotEqual(t, before.Ciphertext, after.Ciphertext)
	assert.NotEqual(t, before.IV, after.IV)

	plaintext, _, err := s.GetPlaintext(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, "NEW", plaintext)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "doomed", "k", "https://example.com", RegisterOpts{})
	require.NoError(t, err)

	removed, err := s.Remove(ctx, "doomed")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, "doomed")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.GetRecord(ctx, "doomed")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, alias := range []string{"one", "two", "three"} {
		_, err := s.Register(ctx, alias, "k-"+alias, "https://example.com", RegisterOpts{})
		require.NoError(t, err)
	}

	keys, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	seen := make(map[string]bool)
	for _, k := range keys {
		seen[k.Alias] = true
		assert.Equal(t, "https://example.com", k.BaseURL)
		assert.Equal(t, int64(DefaultQuotaLimit), k.QuotaLimit)
	}
	assert.True(t, seen["one"] && seen["two"] && seen["three"])

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// TestIncrementUsageExhaustion tests the fixed-window counter at its limit
func TestIncrementUsageExhaustion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "limited", "k", "https://example.com", RegisterOpts{QuotaLimit: 2})
	require.NoError(t, err)

	usage, err := s.IncrementUsage(ctx, "limited")
	require.NoError(t, err)
	assert.True(t, usage.Allowed)
	assert.Equal(t, int64(1), usage.Remaining)

	usage, err = s.IncrementUsage(ctx, "limited")
	require.NoError(t, err)
	assert.True(t, usage.Allowed)
	assert.Equal(t, int64(0), usage.Remaining)

	usage, err = s.IncrementUsage(ctx, "limited")
	require.NoError(t, err)
	assert.False(t, usage.Allowed)
	assert.Equal(t, int64(0), usage.Remaining)

	// The denied attempt must not move the counter.
	rec, err := s.GetRecord(ctx, "limited")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.QuotaUsed)
}

// TestIncrementUsageWindowReset tests window expiry boundaries
func TestIncrementUsageWindowReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var now int64 = 1_700_000_000_000
	s.now = func() int64 { return now }

	_, err := s.Register(ctx, "windowed", "k", "https://example.com", RegisterOpts{QuotaLimit: 1})
	require.NoError(t, err)

	usage, err := s.IncrementUsage(ctx, "windowed")
	require.NoError(t, err)
	require.True(t, usage.Allowed)

	// Exactly window_ms later the window has NOT expired.
	now += DefaultWindowMS
	usage, err = s.IncrementUsage(ctx, "windowed")
	require.NoError(t, err)
	assert.False(t, usage.Allowed)

	// One more millisecond and the counter resets.
	now++
	usage, err = s.IncrementUsage(ctx, "windowed")
	require.NoError(t, err)
	assert.True(t, usage.Allowed)
	assert.Equal(t, int64(0), usage.Remaining)

	rec, err := s.GetRecord(ctx, "windowed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.QuotaUsed)
	assert.Equal(t, now, rec.QuotaWindowStart)
}

// TestTamperDetection tests that corrupted ciphertext never decrypts
func TestTamperDetection(t *testing.T) {
	backend := storage.NewMemoryBackend()
	s := newTestStore(t, func(o *Options) { o.Backend = backend })
	ctx := context.Background()

	_, err := s.Register(ctx, "tampered", "secret-value", "https://example.com", RegisterOpts{})
	require.NoError(t, err)

	raw, found, err := backend.Get(ctx, storage.KeyRecord("tampered"))
	require.NoError(t, err)
	require.True(t, found)

	var rec types.CredentialRecord
	require.NoError(t, json.Unmarshal(raw, &rec))

	// Flip one hex nibble of the stored ciphertext.
	mutated := []byte(rec.Ciphertext)
	if mutated[0] == '0' {
		mutated[0] = '1'
	} else {
		mutated[0] = '0'
	}
	rec.Ciphertext = string(mutated)

	corrupted, err := json.Marshal(&rec)
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, storage.KeyRecord("tampered"), corrupted))

	_, _, err = s.GetPlaintext(ctx, "tampered")
	require.Error(t, err)
	assert.Equal(t, types.KindIntegrityFail, types.KindOf(err))
}

// TestPerAliasKeys tests the opt-in sub-key isolation mode
func TestPerAliasKeys(t *testing.T) {
	backend := storage.NewMemoryBackend()
	ctx := context.Background()

	isolated := newTestStore(t, func(o *Options) {
		o.Backend = backend
		o.PerAliasKeys = true
	})

	_, err := isolated.Register(ctx, "iso", "secret", "https://example.com", RegisterOpts{})
	require.NoError(t, err)

	plaintext, _, err := isolated.GetPlaintext(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "secret", plaintext)

	// A second store in the same mode derives the same sub-key.
	other := newTestStore(t, func(o *Options) {
		o.Backend = backend
		o.PerAliasKeys = true
	})
	plaintext, _, err = other.GetPlaintext(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "secret", plaintext)

	// A store without isolation reads the record but cannot decrypt it.
	plain := newTestStore(t, func(o *Options) { o.Backend = backend })
	_, _, err = plain.GetPlaintext(ctx, "iso")
	require.Error(t, err)
	assert.Equal(t, types.KindIntegrityFail, types.KindOf(err))
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (failingBackend) Set(context.Context, string, []byte) error {
	return errors.New("connection refused")
}
func (failingBackend) Delete(context.Context, string) error {
	return errors.New("connection refused")
}
func (failingBackend) Scan(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}
func (failingBackend) Ping(context.Context) error { return errors.New("connection refused") }
func (failingBackend) Name() string               { return "failing" }
func (failingBackend) Close() error               { return nil }

func TestBackendFailureSurfacesAsBackendFail(t *testing.T) {
	s := newTestStore(t, func(o *Options) { o.Backend = failingBackend{} })
	ctx := context.Background()

	_, err := s.Register(ctx, "any", "k", "https://example.com", RegisterOpts{})
	assert.Equal(t, types.KindBackendFail, types.KindOf(err))

	_, err = s.GetRecord(ctx, "any")
	assert.Equal(t, types.KindBackendFail, types.KindOf(err))

	_, err = s.IncrementUsage(ctx, "any")
	assert.Equal(t, types.KindBackendFail, types.KindOf(err))

	_, err = s.List(ctx)
	assert.Equal(t, types.KindBackendFail, types.KindOf(err))

	assert.Error(t, s.Ping(ctx))
}
