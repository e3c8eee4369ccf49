package vectordb

import (
	"context"
	"time"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/obslog"
	"github.com/redis/go-redis/v9"
)

// ContainsCacheTTL bounds how long a positive Contains result is trusted
// before falling back to the store. A duplicate-hash check that trusts a
// stale negative would defeat idempotence, so only positive hits are
// cached; a miss always falls through to Store.Contains.
const ContainsCacheTTL = 10 * time.Minute

// ChunkStore is the subset of Store's API the ingestion embedder needs.
// *Store and *CachedStore both satisfy it, so ingest.Embedder can be
// pointed at either without caring which.
type ChunkStore interface {
	Contains(ctx context.Context, chunkID domain.ChunkId) bool
	Upsert(ctx context.Context, dom domain.Domain, embedded domain.EmbeddedChunk) (UpsertResult, error)
}

// CachedStore fronts Store.Contains with an optional redis read-through
// cache, cutting the per-chunk duplicate check to a single round trip
// instead of the store's full in-process lookup contending on its mutex
// during a large concurrent embedding run. Every other method delegates
// straight to Store.
type CachedStore struct {
	*Store
	redis *redis.Client
}

// NewCachedStore wraps store with a redis client. A nil client is valid —
// Contains then behaves exactly like the unwrapped Store.
func NewCachedStore(store *Store, client *redis.Client) *CachedStore {
	return &CachedStore{Store: store, redis: client}
}

// Contains checks redis first; a cache hit skips the in-process lookup
// entirely. A miss (cache absent, unset, or erroring) falls through to
// Store.Contains and, on a positive result, populates the cache for
// subsequent lookups of the same chunk_id.
func (c *CachedStore) Contains(ctx context.Context, chunkID domain.ChunkId) bool {
	if c.redis == nil {
		return c.Store.Contains(ctx, chunkID)
	}

	key := containsCacheKey(chunkID)
	if hit, err := c.redis.Get(ctx, key).Result(); err == nil && hit == "1" {
		return true
	}

	found := c.Store.Contains(ctx, chunkID)
	if found {
		if err := c.redis.Set(ctx, key, "1", ContainsCacheTTL).Err(); err != nil {
			obslog.From(ctx).WithError(err).Warn("vectordb: cache write failed, continuing uncached")
		}
	}
	return found
}

func containsCacheKey(chunkID domain.ChunkId) string {
	return "sovereign:chunk:" + string(chunkID)
}
