package prover

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/pufid/pufnode/types"
)

// CacheEntry memoizes a proof artifact for one (deviceID, challenge) pair.
// Entries are immutable once stored; a fresh generation replaces them.
type CacheEntry struct {
	Proof         types.ByteArray
	PublicSignals []*big.Int
	CreatedAt     time.Time
	TTL           time.Duration
}

type cacheKey struct {
	deviceID  string
	challenge string
}

// Cache is a time-bounded proof cache, safe for concurrent use. It is
// advisory only: its absence never changes correctness, only the cost of
// Issue.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*CacheEntry
	ttl     time.Duration

	// now is swapped by tests to advance a synthetic clock
	now func() time.Time
}

// NewCache returns an empty Cache whose entries expire after the given ttl
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[cacheKey]*CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func newCacheKey(deviceID, challenge *big.Int) cacheKey {
	return cacheKey{deviceID: deviceID.String(), challenge: challenge.String()}
}

// Get returns the cached entry for the given (deviceID, challenge) pair.
// Expiration is lazy: an entry older than its ttl is evicted on read and
// reported as a miss.
func (c *Cache) Get(deviceID, challenge *big.Int) (*CacheEntry, bool) {
	k := newCacheKey(deviceID, challenge)

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.CreatedAt) > e.TTL {
		c.mu.Lock()
		// only evict if the entry was not replaced meanwhile
		if cur, ok := c.entries[k]; ok && cur == e {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e, true
}

// Set inserts or replaces the entry for the given (deviceID, challenge)
// pair, stamped with the current time
func (c *Cache) Set(deviceID, challenge *big.Int, proof types.ByteArray,
	publicSignals []*big.Int) {
	e := &CacheEntry{
		Proof:         proof,
		PublicSignals: publicSignals,
		CreatedAt:     c.now(),
		TTL:           c.ttl,
	}
	k := newCacheKey(deviceID, challenge)
	c.mu.Lock()
	c.entries[k] = e
	c.mu.Unlock()
}

// CachedBackend wraps a Backend with the proof Cache, transparently
// short-circuiting repeated (deviceID, challenge) pairs
type CachedBackend struct {
	backend Backend
	cache   *Cache
}

// NewCachedBackend returns a CachedBackend over the given Backend with the
// given cache ttl
func NewCachedBackend(backend Backend, ttl time.Duration) *CachedBackend {
	return &CachedBackend{backend: backend, cache: NewCache(ttl)}
}

// Issue returns a cached proof when a fresh entry exists for the statement,
// and otherwise delegates to the wrapped Backend. A failed or cancelled
// issuance never leaves a partial cache entry.
func (cb *CachedBackend) Issue(ctx context.Context,
	statement types.ProofStatement, response *big.Int) (*ProofBundle, error) {
	if e, ok := cb.cache.Get(statement.DeviceID, statement.Challenge); ok {
		return &ProofBundle{Proof: e.Proof, PublicSignals: e.PublicSignals}, nil
	}

	bundle, err := cb.backend.Issue(ctx, statement, response)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cb.cache.Set(statement.DeviceID, statement.Challenge,
		bundle.Proof, bundle.PublicSignals)
	return bundle, nil
}

// Verify delegates to the wrapped Backend
func (cb *CachedBackend) Verify(proof types.ByteArray,
	publicInputs []*big.Int) (bool, error) {
	return cb.backend.Verify(proof, publicInputs)
}
