package view

import (
	"fmt"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL bounds how long a decoded attachment is kept.
const DefaultCacheTTL = 5 * time.Minute

// attachmentKey identifies one decoded attachment of one row within one
// fetched generation of a table.
type attachmentKey struct {
	Table string
	Gen   uint64
	ID    int64
	Field string
}

func (k attachmentKey) String() string {
	return fmt.Sprintf("%s:%d:%d:%s", k.Table, k.Gen, k.ID, k.Field)
}

// AttachmentCache holds decoded attachment bytes so repeated previews and
// downloads skip the decode. It is flushed whenever the table refreshes.
type AttachmentCache struct {
	cache  *cache.Cache
	ttl    time.Duration
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewAttachmentCache creates a cache with the given TTL.
func NewAttachmentCache(ttl time.Duration) *AttachmentCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &AttachmentCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get returns cached bytes for key.
func (ac *AttachmentCache) Get(key attachmentKey) ([]byte, bool) {
	if v, found := ac.cache.Get(key.String()); found {
		if b, ok := v.([]byte); ok {
			ac.hits.Add(1)
			return b, true
		}
	}
	ac.misses.Add(1)
	return nil, false
}

// Set stores decoded bytes for key.
func (ac *AttachmentCache) Set(key attachmentKey, b []byte) {
	ac.cache.Set(key.String(), b, ac.ttl)
}

// Delete drops key.
func (ac *AttachmentCache) Delete(key attachmentKey) {
	ac.cache.Delete(key.String())
}

// Clear flushes the entire cache.
func (ac *AttachmentCache) Clear() {
	ac.cache.Flush()
}

// Stats returns cache statistics
func (ac *AttachmentCache) Stats() (hits, misses uint64, ratio float64) {
	hits = ac.hits.Load()
	misses = ac.misses.Load()
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (ac *AttachmentCache) ItemCount() int {
	return ac.cache.ItemCount()
}
