package ingest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Arjun3125/Sovereign/internal/embedding"
	"github.com/Arjun3125/Sovereign/internal/llm"
	"github.com/Arjun3125/Sovereign/internal/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testStructureResponse = `{
  "book_title": "Test Doctrine",
  "chapters": [
    {"chapter_index": 1, "chapter_title": "Opening", "chapter_text": "chapter one text"},
    {"chapter_index": 2, "chapter_title": "Middle", "chapter_text": "chapter two text"}
  ]
}`

const testDoctrineResponse = `{
  "domains": ["risk"],
  "principles": ["always hedge"],
  "rules": ["never overextend"],
  "claims": [],
  "warnings": ["beware overconfidence"],
  "cross_references": []
}`

// testDoctrineResponseChapterTwo gives the second chapter its own texts, so
// every chunk of the book has a distinct chunk_id.
const testDoctrineResponseChapterTwo = `{
  "domains": ["risk"],
  "principles": ["keep reserves"],
  "rules": ["never commit everything"],
  "claims": [],
  "warnings": ["beware haste"],
  "cross_references": []
}`

func newTestPipeline(t *testing.T, dataDir string, store *vectordb.Store) *Pipeline {
	t.Helper()
	fakeLLM := &llm.FakeClient{
		Responses: []json.RawMessage{json.RawMessage(testStructureResponse), json.RawMessage(testDoctrineResponse)},
		Default:   json.RawMessage(testDoctrineResponseChapterTwo),
	}
	return NewPipeline(dataDir, fakeLLM, embedding.NewFakeEmbedder(4), store, 2)
}

// TestPipelineIngestBookIsIdempotent covers scenario S1 from spec.md §8:
// re-running ingestion over the same book is a no-op, no duplicate chunks
// and no re-embedding of already-done work.
func TestPipelineIngestBookIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	store := vectordb.NewStore()
	p := newTestPipeline(t, dataDir, store)
	progressPath := filepath.Join(dataDir, "progress.jsonl")
	now := time.Unix(0, 0)

	first, err := p.IngestBook(ctx, "book1", "full book text", progressPath, now)
	require.NoError(t, err)
	require.Equal(t, 0, first.ChaptersFailed)
	require.Equal(t, first.ChunksTotal, first.ChunksEmbedded)
	sizeAfterFirst := store.Size()
	require.Greater(t, sizeAfterFirst, 0)

	second, err := p.IngestBook(ctx, "book1", "full book text", progressPath, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ChunksEmbedded)
	assert.Equal(t, second.ChunksTotal, second.ChunksSkipped)
	assert.Equal(t, sizeAfterFirst, store.Size())
}

// TestPipelineResumesAfterProgressLedgerCrash covers scenario S2: a run
// that dies after committing structure.json and doctrine files but before
// finishing every embed resumes from a fresh Pipeline pointed at the same
// data dir and progress file, without re-running the LLM phases for
// chapters already committed to disk.
func TestPipelineResumesAfterProgressLedgerCrash(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	store := vectordb.NewStore()
	progressPath := filepath.Join(dataDir, "progress.jsonl")
	now := time.Unix(0, 0)

	fakeLLM := &llm.FakeClient{
		Responses: []json.RawMessage{json.RawMessage(testStructureResponse)},
		Default:   json.RawMessage(testDoctrineResponse),
	}
	p := NewPipeline(dataDir, fakeLLM, embedding.NewFakeEmbedder(4), store, 2)

	result, err := p.IngestBook(ctx, "book1", "full book text", progressPath, now)
	require.NoError(t, err)
	require.Greater(t, result.ChunksEmbedded, 0)

	callsBeforeResume := fakeLLM.Calls()

	// A fresh Pipeline (simulating a new process) reopens the same
	// progress ledger and data dir. structure.json and NN.json are already
	// committed, so phase-1/phase-2 read from disk instead of calling the
	// LLM again, and every chunk is already embedded.
	resumed := NewPipeline(dataDir, fakeLLM, embedding.NewFakeEmbedder(4), store, 2)
	second, err := resumed.IngestBook(ctx, "book1", "full book text", progressPath, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ChunksEmbedded)
	assert.Equal(t, second.ChunksTotal, second.ChunksSkipped)
	assert.Equal(t, callsBeforeResume, fakeLLM.Calls())
}

func TestPipelineSkipsFailedChapterButContinues(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	store := vectordb.NewStore()
	progressPath := filepath.Join(dataDir, "progress.jsonl")

	fakeLLM := &llm.FakeClient{
		Responses: []json.RawMessage{json.RawMessage(testStructureResponse)},
		Default:   json.RawMessage(`not valid json`),
	}
	p := NewPipeline(dataDir, fakeLLM, embedding.NewFakeEmbedder(4), store, 2)

	result, err := p.IngestBook(ctx, "book1", "full book text", progressPath, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ChaptersFailed)
	assert.Equal(t, 0, result.ChunksTotal)
}

// TestEmbedderLeavesNoGoroutinesBehind confirms the bounded worker pool in
// Embedder.EmbedAll fully drains: no leaked goroutine survives a call.
func TestEmbedderLeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	store := vectordb.NewStore()
	progress, err := OpenProgressLedger(filepath.Join(t.TempDir(), "progress.jsonl"))
	require.NoError(t, err)
	defer progress.Close()

	e := &Embedder{Embed: embedding.NewFakeEmbedder(4), Store: store, Progress: progress, Concurrency: 2}
	chunks := testChunks(t, "alpha", "beta", "gamma", "delta")
	outcomes := e.EmbedAll(ctx, chunks)
	for _, o := range outcomes {
		require.NoError(t, o.Err)
	}
}
