package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/genlayer/glvault/pkg/events"
	"github.com/genlayer/glvault/pkg/log"
	"github.com/genlayer/glvault/pkg/metrics"
	"github.com/genlayer/glvault/pkg/storage"
	"github.com/genlayer/glvault/pkg/types"
)

const (
	// DefaultIndexLimit bounds the per-alias audit index.
	DefaultIndexLimit = 10000

	// DefaultQueryLimit applies when a query does not set its own limit.
	DefaultQueryLimit = 100

	// DefaultStatsWindow is how far back Stats looks when no since is given.
	DefaultStatsWindow = 24 * time.Hour
)

// Log is the append-only audit trail. Every relay attempt that reaches
// quota accounting produces exactly one entry; entries are immutable once
// written. Reachability is bounded by the per-alias index: entries trimmed
// off the index are deleted best-effort and a sweeper catches the rest.
type Log struct {
	backend    storage.Backend
	indexLimit int
	broker     *events.Broker
	logger     zerolog.Logger

	// locks serialize index read-modify-write per alias stripe.
	locks [64]sync.Mutex

	now func() int64
}

// Options configures a Log.
type Options struct {
	Backend storage.Backend

	// IndexLimit bounds the per-alias index; 0 means DefaultIndexLimit.
	IndexLimit int

	// Broker receives audit.trimmed events; nil disables publishing.
	Broker *events.Broker
}

// NewLog creates an audit log on the given backend.
func NewLog(opts Options) (*Log, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	limit := opts.IndexLimit
	if limit == 0 {
		limit = DefaultIndexLimit
	}
	return &Log{
		backend:    opts.Backend,
		indexLimit: limit,
		broker:     opts.Broker,
		logger:     log.WithComponent("audit"),
		now:        types.NowMS,
	}, nil
}

// QueryOpts narrows a Query. Zero values mean: from the beginning, until
// now, DefaultQueryLimit entries.
type QueryOpts struct {
	SinceMS int64
	UntilMS int64
	Limit   int
}

// Append records one relay attempt. The entry ID and timestamp are filled
// in when absent. The entry body lands before the index write, so a crash
// between the two leaves an orphan for the sweeper rather than a dangling
// index reference. Transient backend failures are retried once with a short
// backoff.
func (l *Log) Append(ctx context.Context, entry *types.AuditEntry) error {
	if entry.Alias == "" {
		return fmt.Errorf("audit entry requires an alias")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = l.now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	write := func() error {
		return l.backend.Set(ctx, storage.KeyAudit(entry.Alias, entry.ID), data)
	}
	if err := retryOnce(write); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	if err := l.indexAppend(ctx, entry.Alias, entry.ID, entry.Timestamp); err != nil {
		return fmt.Errorf("failed to update audit index: %w", err)
	}

	metrics.AuditEntriesTotal.Inc()
	return nil
}

// Query returns entries for an alias, most recent first, filtered to the
// [since, until] window. Index references whose entry is missing are
// skipped.
func (l *Log) Query(ctx context.Context, alias string, opts QueryOpts) ([]*types.AuditEntry, error) {
	until := opts.UntilMS
	if until == 0 {
		until = l.now()
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	index, err := l.loadIndex(ctx, alias)
	if err != nil {
		return nil, err
	}

	entries := make([]*types.AuditEntry, 0, limit)
	// The index is ascending by insertion; walk it backwards so the newest
	// entries come first and the limit cuts off the oldest.
	for i := len(index) - 1; i >= 0 && len(entries) < limit; i-- {
		ref := index[i]
		if ref.TS < opts.SinceMS || ref.TS > until {
			continue
		}
		entry, ok, err := l.loadEntry(ctx, alias, ref.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Stats aggregates entries for an alias over [since, now]. A sinceMS of
// zero means the last 24 hours. An alias with no entries in the window
// yields all-zero stats with LastAccessed unset.
func (l *Log) Stats(ctx context.Context, alias string, sinceMS int64) (*types.AuditStats, error) {
	now := l.now()
	if sinceMS <= 0 {
		sinceMS = now - DefaultStatsWindow.Milliseconds()
	}

	index, err := l.loadIndex(ctx, alias)
	if err != nil {
		return nil, err
	}

	stats := &types.AuditStats{}
	var latencySum int64
	for _, ref := range index {
		if ref.TS < sinceMS || ref.TS > now {
			continue
		}
		entry, ok, err := l.loadEntry(ctx, alias, ref.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		stats.TotalRequests++
		if entry.Status >= 400 {
			stats.ErrorCount++
		}
		latencySum += entry.LatencyMS
		if entry.Timestamp > stats.LastAccessed {
			stats.LastAccessed = entry.Timestamp
		}
	}
	if stats.TotalRequests > 0 {
		// Integer mean, rounded to nearest.
		stats.AvgLatencyMS = (latencySum + stats.TotalRequests/2) / stats.TotalRequests
	}
	return stats, nil
}

func (l *Log) lockFor(alias string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(alias))
	return &l.locks[h.Sum32()%uint32(len(l.locks))]
}

// indexAppend adds a reference and trims the index to the configured bound.
// Entries trimmed off the index are deleted best-effort; a failed delete
// leaves an orphan for the sweeper.
func (l *Log) indexAppend(ctx context.Context, alias, id string, ts int64) error {
	mu := l.lockFor(alias)
	mu.Lock()
	defer mu.Unlock()

	index, err := l.loadIndex(ctx, alias)
	if err != nil {
		return err
	}

	index = append(index, types.AuditIndexEntry{ID: id, TS: ts})

	var trimmed []types.AuditIndexEntry
	if len(index) > l.indexLimit {
		cut := len(index) - l.indexLimit
		trimmed = index[:cut]
		index = index[cut:]
	}

	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal audit index: %w", err)
	}
	write := func() error {
		return l.backend.Set(ctx, storage.KeyAuditIndex(alias), data)
	}
	if err := retryOnce(write); err != nil {
		return err
	}

	if len(trimmed) > 0 {
		for _, ref := range trimmed {
			if err := l.backend.Delete(ctx, storage.KeyAudit(alias, ref.ID)); err != nil {
				l.logger.Warn().Str("alias", alias).Str("id", ref.ID).Err(err).
					Msg("failed to delete trimmed audit entry, sweeper will collect it")
			}
		}
		l.logger.Debug().Str("alias", alias).Int("count", len(trimmed)).Msg("audit index trimmed")
		if l.broker != nil {
			l.broker.Publish(&events.Event{
				Type:     events.EventAuditTrimmed,
				Message:  "audit index trimmed",
				Metadata: map[string]string{"alias": alias, "count": fmt.Sprintf("%d", len(trimmed))},
			})
		}
	}
	return nil
}

func (l *Log) loadIndex(ctx context.Context, alias string) ([]types.AuditIndexEntry, error) {
	data, found, err := l.backend.Get(ctx, storage.KeyAuditIndex(alias))
	if err != nil {
		return nil, types.WrapError(types.KindBackendFail, "storage backend unavailable", err)
	}
	if !found {
		return nil, nil
	}
	var index []types.AuditIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, types.WrapError(types.KindBackendFail, "storage backend returned corrupt audit index", err)
	}
	return index, nil
}

func (l *Log) loadEntry(ctx context.Context, alias, id string) (*types.AuditEntry, bool, error) {
	data, found, err := l.backend.Get(ctx, storage.KeyAudit(alias, id))
	if err != nil {
		return nil, false, types.WrapError(types.KindBackendFail, "storage backend unavailable", err)
	}
	if !found {
		return nil, false, nil
	}
	var entry types.AuditEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, types.WrapError(types.KindBackendFail, "storage backend returned corrupt audit entry", err)
	}
	return &entry, true, nil
}

// retryOnce runs op, retrying a single time after a short pause. Audit
// writes sit on the relay hot path, so the budget is deliberately small.
func retryOnce(op func() error) error {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 1)
	return backoff.Retry(op, policy)
}
