/*
Package audit implements the append-only audit trail: one immutable entry
per relay attempt that reached quota accounting, a bounded per-alias index
for retrieval, aggregate statistics, and a background sweeper that collects
unreferenced entries.

# Architecture

	┌──────────────────────── AUDIT LOG ──────────────────────────┐
	│                                                               │
	│  Append(entry)                                                │
	│    1. fill id (uuid) and timestamp                            │
	│    2. write glvault:audit:<alias>:<id>     (entry body)       │
	│    3. append {id, ts} to                                      │
	│       glvault:audit_index:<alias>          (bounded index)    │
	│    4. trim index to the newest 10,000, delete trimmed         │
	│       entries best-effort                                     │
	│                                                               │
	│  Query(alias, since, until, limit)  → newest first            │
	│  Stats(alias, since)  → totals, error count, mean latency     │
	│                                                               │
	│  Sweeper ── periodic scan for entries no index references ──  │
	│                                                               │
	└───────────────────────────────────────────────────────────────┘

# Ordering and Crash Behavior

The entry body always lands before its index reference. A crash between
the two writes therefore leaves an orphaned entry, never a reference to a
missing entry; readers skip missing entries anyway, and the sweeper deletes
orphans older than a grace period. Writes on the relay hot path retry once
with a short constant backoff and are otherwise best-effort: the relay
response never fails because an audit write did.

# Index Bound

The index keeps the newest entries up to AUDIT_INDEX_LIMIT (default
10,000). Older entries become unreachable through the public queries the
moment they are trimmed, whether or not their backing keys still exist.

# Statistics

Stats aggregates over [since, now], defaulting since to 24 hours ago. An
entry counts as an error when its status is 400 or above. The average
latency is the integer mean rounded to nearest. No entries in the window
yields zeros with last_accessed unset.
*/
package audit
