package minhash

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes signatures by deduplication identity and tracks which
// identities the current purification run has already processed. The
// signature side is a bounded LRU; every foldEvery processed entries the
// identities still cached are folded into the seen set and the LRU is
// cleared, so a long run keeps a hard memory ceiling without forgetting
// what it has handled. An identity whose signature was computed and later
// evicted still answers Seen, which is what makes the fold safe: anything
// that ever entered the cache was fully processed. Not safe for concurrent
// use; purification runs are serialized by the scheduler.
type Cache struct {
	engine    *Engine
	signature *lru.Cache[string, Signature]
	seen      map[string]struct{}
	processed int
	foldEvery int
}

// NewCache creates a cache holding at most size signatures, folding every
// foldEvery processed entries.
func NewCache(engine *Engine, size, foldEvery int) (*Cache, error) {
	if size <= 0 {
		size = 256
	}
	if foldEvery <= 0 {
		foldEvery = 100
	}

	sig, err := lru.New[string, Signature](size)
	if err != nil {
		return nil, err
	}

	return &Cache{
		engine:    engine,
		signature: sig,
		seen:      make(map[string]struct{}),
		foldEvery: foldEvery,
	}, nil
}

// Signature returns the cached signature for the content stored under key,
// computing and caching it on a miss. Keying by identity rather than raw
// content keeps the folded seen set scoped to (source, content) pairs.
func (c *Cache) Signature(key, content string) Signature {
	if sig, ok := c.signature.Get(key); ok {
		return sig
	}
	sig := c.engine.Signature(content)
	c.signature.Add(key, sig)
	return sig
}

// IsSimilar compares two keyed contents through the cache, applying the same
// length pre-filter as Engine.IsSimilar.
func (c *Cache) IsSimilar(aKey, aContent, bKey, bContent string, threshold float64) bool {
	if !LengthComparable(aContent, bContent) {
		return false
	}
	return Similarity(c.Signature(aKey, aContent), c.Signature(bKey, bContent)) >= threshold
}

// MarkSeen records an identity as processed for the rest of the run.
func (c *Cache) MarkSeen(key string) {
	c.seen[key] = struct{}{}
}

// Seen reports whether an identity was marked processed, or had its
// signature folded out of the cache, earlier in this run.
func (c *Cache) Seen(key string) bool {
	_, ok := c.seen[key]
	return ok
}

// SeenKeys snapshots the seen set, for checkpointing.
func (c *Cache) SeenKeys() []string {
	keys := make([]string, 0, len(c.seen))
	for k := range c.seen {
		keys = append(keys, k)
	}
	return keys
}

// Tick records one processed entry. When the fold cadence is reached the
// cached identities move into the seen set and the cache empties.
func (c *Cache) Tick() {
	c.processed++
	if c.processed%c.foldEvery != 0 {
		return
	}
	for _, key := range c.signature.Keys() {
		c.seen[key] = struct{}{}
	}
	c.signature.Purge()
}

// Len returns the number of cached signatures.
func (c *Cache) Len() int {
	return c.signature.Len()
}
