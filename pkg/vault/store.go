package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"github.com/genlayer/glvault/pkg/events"
	"github.com/genlayer/glvault/pkg/log"
	"github.com/genlayer/glvault/pkg/security"
	"github.com/genlayer/glvault/pkg/storage"
	"github.com/genlayer/glvault/pkg/types"
)

const (
	// DefaultQuotaLimit applies when registration does not set a limit.
	DefaultQuotaLimit = 1000

	// DefaultOwner applies when registration does not set an owner.
	DefaultOwner = "admin"

	// DefaultWindowMS is the fixed quota window length.
	DefaultWindowMS = 60000
)

var aliasRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store manages encrypted credential records and their quota state on a
// storage backend. All methods are safe for concurrent use within one
// process; cross-process writers race benignly per the backend contract.
type Store struct {
	backend      storage.Backend
	masterKey    []byte
	cipher       *security.Cipher
	perAliasKeys bool
	windowMS     int64
	broker       *events.Broker
	logger       zerolog.Logger

	// locks serialize read-modify-write per alias stripe. indexMu guards
	// the shared alias index.
	locks   [64]sync.Mutex
	indexMu sync.Mutex

	now func() int64
}

// Options configures a Store.
type Options struct {
	Backend   storage.Backend
	MasterKey []byte // 32 raw bytes

	// WindowMS is the quota window length; 0 means DefaultWindowMS.
	WindowMS int64

	// PerAliasKeys encrypts each record under a key derived from the
	// master key and the record's storage key. Records written in one mode
	// are unreadable in the other.
	PerAliasKeys bool

	// Broker receives key lifecycle events; nil disables publishing.
	Broker *events.Broker
}

// RegisterOpts carries the optional registration fields.
type RegisterOpts struct {
	QuotaLimit int64  // 0 means DefaultQuotaLimit
	Owner      string // "" means DefaultOwner
}

// NewStore creates a credential store.
func NewStore(opts Options) (*Store, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	cipher, err := security.NewCipher(opts.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("invalid master key: %w", err)
	}

	windowMS := opts.WindowMS
	if windowMS == 0 {
		windowMS = DefaultWindowMS
	}

	return &Store{
		backend:      opts.Backend,
		masterKey:    opts.MasterKey,
		cipher:       cipher,
		perAliasKeys: opts.PerAliasKeys,
		windowMS:     windowMS,
		broker:       opts.Broker,
		logger:       log.WithComponent("vault"),
		now:          types.NowMS,
	}, nil
}

// Register encrypts and stores a new credential. The record write lands
// before the index write; a crash between the two leaves a readable record
// that list does not show yet.
func (s *Store) Register(ctx context.Context, alias, credential, baseURL string, opts RegisterOpts) (*types.CredentialRecord, error) {
	if !aliasRE.MatchString(alias) {
		return nil, types.NewError(types.KindInvalidInput, "Invalid alias: must be 1-64 characters of A-Za-z0-9_-")
	}
	if credential == "" {
		return nil, types.NewError(types.KindInvalidInput, "Credential must not be empty")
	}
	if err := validateBaseURL(baseURL); err != nil {
		return nil, err
	}
	if opts.QuotaLimit < 0 {
		return nil, types.NewError(types.KindInvalidInput, "Quota limit must not be negative")
	}

	mu := s.lockFor(alias)
	mu.Lock()
	defer mu.Unlock()

	if _, found, err := s.backend.Get(ctx, storage.KeyRecord(alias)); err != nil {
		return nil, backendErr(err)
	} else if found {
		return nil, types.NewError(types.KindAlreadyExists, "Alias already registered")
	}

	blob, err := s.encryptFor(alias, credential)
	if err != nil {
		return nil, err
	}

	quotaLimit := opts.QuotaLimit
	if quotaLimit == 0 {
		quotaLimit = DefaultQuotaLimit
	}
	owner := opts.Owner
	if owner == "" {
		owner = DefaultOwner
	}

	now := s.now()
	rec := &types.CredentialRecord{
		Alias:            alias,
		Ciphertext:       blob.Ciphertext,
		IV:               blob.IV,
		AuthTag:          blob.AuthTag,
		BaseURL:          baseURL,
		QuotaLimit:       quotaLimit,
		QuotaUsed:        0,
		QuotaWindowStart: now,
		CreatedAt:        now,
		Owner:            owner,
	}

	if err := s.putRecord(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.indexAdd(ctx, alias); err != nil {
		return nil, err
	}

	s.logger.Info().Str("alias", alias).Str("owner", owner).Int64("quota_limit", quotaLimit).Msg("key registered")
	s.publish(events.EventKeyRegistered, "key registered", alias)
	return rec, nil
}

// GetRecord fetches a record without decrypting it.
func (s *Store) GetRecord(ctx context.Context, alias string) (*types.CredentialRecord, error) {
	return s.getRecord(ctx, alias)
}

// GetPlaintext decrypts the credential for an alias. The record is returned
// alongside so relay dispatch does not fetch twice.
func (s *Store) GetPlaintext(ctx context.Context, alias string) (string, *types.CredentialRecord, error) {
	rec, err := s.getRecord(ctx, alias)
	if err != nil {
		return "", nil, err
	}

	plaintext, err := s.decryptFor(alias, rec)
	if err != nil {
		s.logger.Error().Str("alias", alias).Str("kind", string(types.KindOf(err))).Msg("credential decrypt failed")
		return "", nil, err
	}
	return plaintext, rec, nil
}

// Rotate replaces the credential material in one write, leaving quota state
// and created_at untouched.
func (s *Store) Rotate(ctx context.Context, alias, newCredential string) (*types.CredentialRecord, error) {
	if newCredential == "" {
		return nil, types.NewError(types.KindInvalidInput, "Credential must not be empty")
	}

	mu := s.lockFor(alias)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.getRecord(ctx, alias)
	if err != nil {
		return nil, err
	}

	blob, err := s.encryptFor(alias, newCredential)
	if err != nil {
		return nil, err
	}

	rec.Ciphertext = blob.Ciphertext
	rec.IV = blob.IV
	rec.AuthTag = blob.AuthTag
	rec.RotatedAt = s.now()

	if err := s.putRecord(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info().Str("alias", alias).Msg("key rotated")
	s.publish(events.EventKeyRotated, "key rotated", alias)
	return rec, nil
}

// Remove deletes a record and its index entry. Removing an absent alias
// returns false without error. Audit history is left in place.
func (s *Store) Remove(ctx context.Context, alias string) (bool, error) {
	mu := s.lockFor(alias)
	mu.Lock()
	defer mu.Unlock()

	_, found, err := s.backend.Get(ctx, storage.KeyRecord(alias))
	if err != nil {
		return false, backendErr(err)
	}
	if !found {
		return false, nil
	}

	if err := s.backend.Delete(ctx, storage.KeyRecord(alias)); err != nil {
		return false, backendErr(err)
	}
	if err := s.indexRemove(ctx, alias); err != nil {
		return false, err
	}

	s.logger.Info().Str("alias", alias).Msg("key removed")
	s.publish(events.EventKeyRemoved, "key removed", alias)
	return true, nil
}

// List returns sanitized metadata for every indexed alias. An index entry
// whose record is missing (crash between writes, concurrent removal) is
// skipped rather than failing the listing.
func (s *Store) List(ctx context.Context) ([]types.KeyMetadata, error) {
	aliases, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]types.KeyMetadata, 0, len(aliases))
	for _, alias := range aliases {
		rec, err := s.getRecord(ctx, alias)
		if err != nil {
			if types.IsKind(err, types.KindNotFound) {
				s.logger.Debug().Str("alias", alias).Msg("indexed alias has no record, skipping")
				continue
			}
			return nil, err
		}
		keys = append(keys, rec.Metadata())
	}
	return keys, nil
}

// Count returns the number of indexed aliases.
func (s *Store) Count(ctx context.Context) (int, error) {
	aliases, err := s.loadIndex(ctx)
	if err != nil {
		return 0, err
	}
	return len(aliases), nil
}

// Ping reports backend reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func validateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.NewError(types.KindInvalidInput, "Invalid base URL: must be absolute http(s)")
	}
	return nil
}

func backendErr(err error) error {
	return types.WrapError(types.KindBackendFail, "storage backend unavailable", err)
}

func (s *Store) lockFor(alias string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(alias))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

func (s *Store) publish(t events.EventType, msg, alias string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(&events.Event{
		Type:     t,
		Message:  msg,
		Metadata: map[string]string{"alias": alias},
	})
}

// cipherFor returns the cipher used for an alias, deriving a sub-key when
// per-alias isolation is enabled.
func (s *Store) cipherFor(alias string) (*security.Cipher, error) {
	if !s.perAliasKeys {
		return s.cipher, nil
	}
	sub := security.DeriveSubKey(s.masterKey, storage.KeyRecord(alias))
	cipher, err := security.NewCipher(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to derive cipher for alias: %w", err)
	}
	return cipher, nil
}

func (s *Store) encryptFor(alias, credential string) (*security.EncryptedBlob, error) {
	cipher, err := s.cipherFor(alias)
	if err != nil {
		return nil, err
	}
	blob, err := cipher.Encrypt([]byte(credential))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credential: %w", err)
	}
	return blob, nil
}

func (s *Store) decryptFor(alias string, rec *types.CredentialRecord) (string, error) {
	cipher, err := s.cipherFor(alias)
	if err != nil {
		return "", err
	}
	plaintext, err := cipher.Decrypt(&security.EncryptedBlob{
		Ciphertext: rec.Ciphertext,
		IV:         rec.IV,
		AuthTag:    rec.AuthTag,
	})
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *Store) getRecord(ctx context.Context, alias string) (*types.CredentialRecord, error) {
	data, found, err := s.backend.Get(ctx, storage.KeyRecord(alias))
	if err != nil {
		return nil, backendErr(err)
	}
	if !found {
		return nil, types.NewError(types.KindNotFound, "Unknown alias")
	}

	var rec types.CredentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, types.WrapError(types.KindBackendFail, "storage backend returned corrupt record", err)
	}
	return &rec, nil
}

func (s *Store) putRecord(ctx context.Context, rec *types.CredentialRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.backend.Set(ctx, storage.KeyRecord(rec.Alias), data); err != nil {
		return backendErr(err)
	}
	return nil
}

func (s *Store) loadIndex(ctx context.Context) ([]string, error) {
	data, found, err := s.backend.Get(ctx, storage.KeyIndex())
	if err != nil {
		return nil, backendErr(err)
	}
	if !found {
		return nil, nil
	}

	var aliases []string
	if err := json.Unmarshal(data, &aliases); err != nil {
		return nil, types.WrapError(types.KindBackendFail, "storage backend returned corrupt index", err)
	}
	return aliases, nil
}

func (s *Store) saveIndex(ctx context.Context, aliases []string) error {
	if aliases == nil {
		aliases = []string{}
	}
	data, err := json.Marshal(aliases)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := s.backend.Set(ctx, storage.KeyIndex(), data); err != nil {
		return backendErr(err)
	}
	return nil
}

func (s *Store) indexAdd(ctx context.Context, alias string) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	aliases, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	for _, a := range aliases {
		if a == alias {
			return nil
		}
	}
	return s.saveIndex(ctx, append(aliases, alias))
}

func (s *Store) indexRemove(ctx context.Context, alias string) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	aliases, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	kept := aliases[:0]
	for _, a := range aliases {
		if a != alias {
			kept = append(kept, a)
		}
	}
	return s.saveIndex(ctx, kept)
}
