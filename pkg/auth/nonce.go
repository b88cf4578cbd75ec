package auth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NonceGuard remembers recently seen (alias, nonce) pairs so an intercepted
// request cannot be replayed within the signature freshness window. Entries
// expire after the window length, after which the timestamp check rejects
// the request anyway. The guard is per process; replicas behind a load
// balancer each keep their own set, which narrows but does not close the
// replay window across processes.
type NonceGuard struct {
	seen *gocache.Cache
}

// NewNonceGuard creates a guard whose entries live for ttl.
func NewNonceGuard(ttl time.Duration) *NonceGuard {
	return &NonceGuard{
		seen: gocache.New(ttl, ttl),
	}
}

// Remember records the pair and reports whether it was fresh. A false
// return means the same alias and nonce were already seen inside the window.
func (g *NonceGuard) Remember(alias, nonce string) bool {
	err := g.seen.Add(alias+":"+nonce, struct{}{}, gocache.DefaultExpiration)
	return err == nil
}

// Len returns the number of live entries, for tests and introspection.
func (g *NonceGuard) Len() int {
	return g.seen.ItemCount()
}
