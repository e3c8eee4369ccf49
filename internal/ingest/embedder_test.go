package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/embedding"
	"github.com/Arjun3125/Sovereign/internal/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks(t *testing.T, texts ...string) []domain.Chunk {
	t.Helper()
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		c, err := domain.NewChunk("book1", 1, domain.DomainRisk, text, domain.SourceSpan{Field: "principles", Index: i})
		require.NoError(t, err)
		chunks[i] = c
	}
	return chunks
}

func TestEmbedderEmbedsAllOnFirstRun(t *testing.T) {
	ctx := context.Background()
	store := vectordb.NewStore()
	progress, err := OpenProgressLedger(filepath.Join(t.TempDir(), "progress.jsonl"))
	require.NoError(t, err)
	defer progress.Close()

	e := &Embedder{
		Embed:       embedding.NewFakeEmbedder(4),
		Store:       store,
		Progress:    progress,
		Concurrency: 2,
	}
	chunks := testChunks(t, "alpha", "beta", "gamma")
	outcomes := e.EmbedAll(ctx, chunks)

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.False(t, o.Skipped)
	}
	assert.Equal(t, 3, store.Size())
	assert.Equal(t, 3, progress.Count())
}

func TestEmbedderSkipsAlreadyDone(t *testing.T) {
	ctx := context.Background()
	store := vectordb.NewStore()
	progress, err := OpenProgressLedger(filepath.Join(t.TempDir(), "progress.jsonl"))
	require.NoError(t, err)
	defer progress.Close()

	e := &Embedder{Embed: embedding.NewFakeEmbedder(4), Store: store, Progress: progress, Concurrency: 2}
	chunks := testChunks(t, "alpha", "beta")

	first := e.EmbedAll(ctx, chunks)
	for _, o := range first {
		require.NoError(t, o.Err)
	}

	// Re-running over the same chunks costs no new embedding work: every
	// chunk is already in the store and the progress ledger.
	second := e.EmbedAll(ctx, chunks)
	for _, o := range second {
		assert.True(t, o.Skipped)
	}
	assert.Equal(t, 2, store.Size())
}

func TestEmbedderRecoversFromFreshProgressLedgerViaStoreContains(t *testing.T) {
	// Simulates a crash after the store insert but before the progress
	// append landed: a fresh (empty) progress ledger opened against a
	// non-empty store must still skip re-embedding, since Store.Contains
	// is also consulted (spec.md §4.1: "done" requires both to agree, but
	// a chunk present in the store is never re-embedded).
	ctx := context.Background()
	store := vectordb.NewStore()
	chunks := testChunks(t, "alpha")
	embedder := embedding.NewFakeEmbedder(4)
	vec, err := embedder.Embed(ctx, chunks[0].Text)
	require.NoError(t, err)
	_, err = store.Upsert(ctx, domain.DomainRisk, domain.EmbeddedChunk{Chunk: chunks[0], Vector: vec})
	require.NoError(t, err)

	freshProgress, err := OpenProgressLedger(filepath.Join(t.TempDir(), "progress.jsonl"))
	require.NoError(t, err)
	defer freshProgress.Close()

	e := &Embedder{Embed: embedder, Store: store, Progress: freshProgress, Concurrency: 2}
	outcomes := e.EmbedAll(ctx, chunks)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
}
