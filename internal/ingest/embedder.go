package ingest

import (
	"context"
	"fmt"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/embedding"
	"github.com/Arjun3125/Sovereign/internal/vectordb"
	"golang.org/x/sync/semaphore"
)

// EmbedOutcome tallies one chunk's fate through the embed-and-insert stage.
type EmbedOutcome struct {
	ChunkId domain.ChunkId
	Skipped bool // already done, per the progress ledger or store contents
	Err     error
}

// Embedder runs the bounded-parallel embed-then-insert stage of the
// pipeline: EMBED_CONCURRENCY concurrent calls to the embedding
// collaborator (spec.md §5: "bounded worker pool, not unbounded fan-out"),
// with store inserts and progress-ledger appends serialized so "done" is
// only ever recorded after both have completed (spec.md §4.1).
type Embedder struct {
	Embed    embedding.Embedder
	Store    vectordb.ChunkStore
	Progress *ProgressLedger
	// Concurrency bounds simultaneous in-flight embedding calls. Defaults
	// to 2 (spec.md §2 EMBED_CONCURRENCY default) if zero or negative.
	Concurrency int
}

// EmbedAll embeds and inserts every chunk not already recorded done, each
// into its own chunk.Domain partition (chapters within one book can carry
// different primary domains). Chunks already present in the store or the
// progress ledger are skipped without an embedding call, making a re-run
// over a partially completed book cost only the remaining work (spec.md
// §8 scenario S1: idempotent re-ingestion).
func (e *Embedder) EmbedAll(ctx context.Context, chunks []domain.Chunk) []EmbedOutcome {
	concurrency := int64(e.Concurrency)
	if concurrency <= 0 {
		concurrency = 2
	}
	sem := semaphore.NewWeighted(concurrency)

	outcomes := make([]EmbedOutcome, len(chunks))
	done := make(chan struct{}, len(chunks))

	for i, c := range chunks {
		i, c := i, c
		if e.Progress.Done(c.ChunkId) || e.Store.Contains(ctx, c.ChunkId) {
			outcomes[i] = EmbedOutcome{ChunkId: c.ChunkId, Skipped: true}
			done <- struct{}{}
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = EmbedOutcome{ChunkId: c.ChunkId, Err: fmt.Errorf("embed %s: %w", c.ChunkId, err)}
			done <- struct{}{}
			continue
		}
		go func() {
			defer sem.Release(1)
			outcomes[i] = e.embedOne(ctx, c)
			done <- struct{}{}
		}()
	}
	for range chunks {
		<-done
	}
	return outcomes
}

func (e *Embedder) embedOne(ctx context.Context, c domain.Chunk) EmbedOutcome {
	vec, err := e.Embed.Embed(ctx, c.Text)
	if err != nil {
		return EmbedOutcome{ChunkId: c.ChunkId, Err: fmt.Errorf("embed %s: %w", c.ChunkId, err)}
	}
	embedded := domain.EmbeddedChunk{Chunk: c, Vector: vec}

	if _, err := e.Store.Upsert(ctx, c.Domain, embedded); err != nil {
		return EmbedOutcome{ChunkId: c.ChunkId, Err: fmt.Errorf("embed %s: store insert: %w", c.ChunkId, err)}
	}
	if err := e.Progress.Mark(c.BookId, c.ChunkId); err != nil {
		return EmbedOutcome{ChunkId: c.ChunkId, Err: fmt.Errorf("embed %s: progress mark: %w", c.ChunkId, err)}
	}
	return EmbedOutcome{ChunkId: c.ChunkId}
}
