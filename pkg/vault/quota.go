package vault

import (
	"context"
)

// Usage is the result of one quota check.
type Usage struct {
	Allowed   bool
	Remaining int64
}

// IncrementUsage applies fixed-window accounting for one relay attempt. The
// window resets when more than the configured window length has passed since
// quota_window_start; at or over the limit nothing is written and the call
// returns {false, 0}. The read-modify-write is serialized per alias within
// this process only.
func (s *Store) IncrementUsage(ctx context.Context, alias string) (Usage, error) {
	mu := s.lockFor(alias)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.getRecord(ctx, alias)
	if err != nil {
		return Usage{}, err
	}

	now := s.now()
	if now-rec.QuotaWindowStart > s.windowMS {
		rec.QuotaUsed = 0
		rec.QuotaWindowStart = now
	}

	if rec.QuotaUsed >= rec.QuotaLimit {
		return Usage{Allowed: false, Remaining: 0}, nil
	}

	rec.QuotaUsed++
	if err := s.putRecord(ctx, rec); err != nil {
		return Usage{}, err
	}

	return Usage{Allowed: true, Remaining: rec.QuotaLimit - rec.QuotaUsed}, nil
}

// WindowMS returns the configured quota window length, surfaced in 429
// responses as retry_after_ms.
func (s *Store) WindowMS() int64 {
	return s.windowMS
}
