package audit

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/genlayer/glvault/pkg/log"
	"github.com/genlayer/glvault/pkg/metrics"
	"github.com/genlayer/glvault/pkg/storage"
)

// Sweeper deletes audit entries that are no longer referenced by any index:
// entries trimmed off a full index whose delete failed, and entries written
// just before a crash that never made it into an index.
type Sweeper struct {
	log      *Log
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// NewSweeper creates a sweeper over the audit log's backend.
func NewSweeper(l *Log, interval time.Duration) *Sweeper {
	return &Sweeper{
		log:      l,
		interval: interval,
		logger:   log.WithComponent("audit-sweeper"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval/2)
			if n, err := s.Sweep(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("audit sweep failed")
			} else if n > 0 {
				s.logger.Info().Int("removed", n).Msg("audit sweep removed orphaned entries")
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// Sweep scans every stored audit entry and deletes those not referenced by
// their alias's index. It returns the number of entries removed. An entry
// races benignly with a concurrent append: the append writes the entry
// before the index, so a freshly written entry can look orphaned for one
// cycle; the entry's own timestamp guards against deleting it.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	keys, err := s.log.backend.Scan(ctx, storage.Namespace()+"audit:")
	if err != nil {
		return 0, err
	}

	// Grace period: never delete an entry younger than this, it may still
	// be waiting for its index write.
	graceMS := int64(60000)
	nowMS := s.log.now()

	referenced := make(map[string]map[string]bool) // alias -> id set
	removed := 0
	for _, key := range keys {
		alias, id, ok := splitAuditKey(key)
		if !ok {
			continue
		}

		ids, loaded := referenced[alias]
		if !loaded {
			index, err := s.log.loadIndex(ctx, alias)
			if err != nil {
				return removed, err
			}
			ids = make(map[string]bool, len(index))
			for _, ref := range index {
				ids[ref.ID] = true
			}
			referenced[alias] = ids
		}
		if ids[id] {
			continue
		}

		entry, found, err := s.log.loadEntry(ctx, alias, id)
		if err != nil {
			return removed, err
		}
		if found && nowMS-entry.Timestamp < graceMS {
			continue
		}
		if err := s.log.backend.Delete(ctx, key); err != nil {
			s.logger.Warn().Str("key", key).Err(err).Msg("failed to delete orphaned audit entry")
			continue
		}
		removed++
	}
	if removed > 0 {
		metrics.AuditSweptTotal.Add(float64(removed))
	}
	return removed, nil
}

// splitAuditKey parses glvault:audit:<alias>:<id>. The alias charset
// excludes ":", so the first separator after the prefix is unambiguous.
func splitAuditKey(key string) (alias, id string, ok bool) {
	prefix := storage.Namespace() + "audit:"
	if !strings.HasPrefix(key, prefix) {
		return "", "", false
	}
	rest := key[len(prefix):]
	i := strings.Index(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
