package vectordb

import (
	"context"
	"testing"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCachedStoreNilClientDelegatesToStore(t *testing.T) {
	store := NewStore()
	cached := NewCachedStore(store, nil)
	ctx := context.Background()

	require.False(t, cached.Contains(ctx, "missing"))

	c, err := domain.NewChunk("b1", 1, domain.DomainRisk, "a principle", domain.SourceSpan{Field: "principles", Index: 0})
	require.NoError(t, err)
	_, err = cached.Upsert(ctx, domain.DomainRisk, domain.EmbeddedChunk{Chunk: c, Vector: []float64{1, 0}})
	require.NoError(t, err)
	require.True(t, cached.Contains(ctx, c.ChunkId))
}

func TestCachedStorePopulatesCacheOnHit(t *testing.T) {
	store := NewStore()
	client := newMiniredisClient(t)
	cached := NewCachedStore(store, client)
	ctx := context.Background()

	c, err := domain.NewChunk("b1", 1, domain.DomainRisk, "a principle", domain.SourceSpan{Field: "principles", Index: 0})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, domain.DomainRisk, domain.EmbeddedChunk{Chunk: c, Vector: []float64{1, 0}})
	require.NoError(t, err)

	require.True(t, cached.Contains(ctx, c.ChunkId))

	val, err := client.Get(ctx, containsCacheKey(c.ChunkId)).Result()
	require.NoError(t, err)
	require.Equal(t, "1", val)
}

func TestCachedStoreServesHitFromCacheWithoutTouchingStore(t *testing.T) {
	store := NewStore()
	client := newMiniredisClient(t)
	cached := NewCachedStore(store, client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, containsCacheKey("phantom"), "1", 0).Err())
	require.True(t, cached.Contains(ctx, "phantom"), "a cache hit must be trusted even though the store never saw this chunk")
}

func TestCachedStoreMissFallsThroughToStore(t *testing.T) {
	store := NewStore()
	client := newMiniredisClient(t)
	cached := NewCachedStore(store, client)
	ctx := context.Background()

	require.False(t, cached.Contains(ctx, "never-inserted"))
}
