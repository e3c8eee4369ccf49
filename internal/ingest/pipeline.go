package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/embedding"
	"github.com/Arjun3125/Sovereign/internal/llm"
	"github.com/Arjun3125/Sovereign/internal/obslog"
	"github.com/Arjun3125/Sovereign/internal/vectordb"
)

// Pipeline wires phase-1 structuring, phase-2 doctrine extraction,
// chunking, and bounded-parallel embed-and-insert into the single
// end-to-end ingestion path described in spec.md §4.1. It is the
// composition root original_source/doctrine_ingestion/parallel_ingest.py
// plays in the original: drive one book's full text to committed,
// embedded, deduplicated chunks in the store.
type Pipeline struct {
	Structurer *Structurer
	Extractor  *DoctrineExtractor
	Embedder   *Embedder
	Store      *vectordb.Store
}

// NewPipeline builds a Pipeline over a shared DataDir, LLM, embedder and
// vector store.
func NewPipeline(dataDir string, llmClient llm.Client, embedder embedding.Embedder, store *vectordb.Store, embedConcurrency int) *Pipeline {
	return NewPipelineWithChunkStore(dataDir, llmClient, embedder, store, store, embedConcurrency)
}

// NewPipelineWithChunkStore is NewPipeline with the embedder's duplicate
// check pointed at a separate vectordb.ChunkStore — typically a
// *vectordb.CachedStore fronting store with a redis read-through, so a
// large concurrent embedding run doesn't contend the store's mutex on
// every duplicate check.
func NewPipelineWithChunkStore(dataDir string, llmClient llm.Client, embedder embedding.Embedder, store *vectordb.Store, chunkStore vectordb.ChunkStore, embedConcurrency int) *Pipeline {
	return &Pipeline{
		Structurer: &Structurer{LLM: llmClient, DataDir: dataDir},
		Extractor:  &DoctrineExtractor{LLM: llmClient, DataDir: dataDir},
		Embedder: &Embedder{
			Embed:       embedder,
			Store:       chunkStore,
			Concurrency: embedConcurrency,
		},
		Store: store,
	}
}

// Result summarizes one book's run through the pipeline.
type Result struct {
	BookId         domain.BookId
	ChaptersTotal  int
	ChaptersFailed int
	ChunksTotal    int
	ChunksEmbedded int
	ChunksSkipped  int
	ChunksFailed   int
	Snapshot       Snapshot
}

// IngestBook drives fullText for bookID through every stage. progressPath
// is the crash-safe append-only ledger file for this book; opening it
// replays any prior partial run so re-invoking IngestBook on the same book
// after a crash resumes rather than restarts (spec.md §8 scenario S2).
// Each chunk lands in the vector store partition named by its own
// chapter's doctrine domain, not a single book-wide domain — a book can
// span several doctrine domains across its chapters.
func (p *Pipeline) IngestBook(ctx context.Context, bookID domain.BookId, fullText string, progressPath string, now time.Time) (Result, error) {
	log := obslog.From(ctx)

	progress, err := OpenProgressLedger(progressPath)
	if err != nil {
		return Result{}, fmt.Errorf("ingest book %s: %w", bookID, err)
	}
	defer progress.Close()
	p.Embedder.Progress = progress

	chapters, err := p.Structurer.Structure(ctx, bookID, fullText)
	if err != nil {
		return Result{}, fmt.Errorf("ingest book %s: %w", bookID, err)
	}
	log.WithField("book_id", bookID).WithField("chapters", len(chapters)).Info("phase-1 structuring complete")

	chapterResults := p.Extractor.ExtractAll(ctx, bookID, chapters)

	var allChunks []domain.Chunk
	chaptersFailed := 0
	for _, cr := range chapterResults {
		if cr.Err != nil {
			chaptersFailed++
			log.WithField("book_id", bookID).WithField("chapter_index", cr.Chapter.ChapterIndex).WithError(cr.Err).Warn("phase-2 chapter extraction failed, skipping")
			continue
		}
		chunks, err := Chunk(cr.Doctrine)
		if err != nil {
			chaptersFailed++
			log.WithField("book_id", bookID).WithField("chapter_index", cr.Chapter.ChapterIndex).WithError(err).Warn("chunking failed, skipping chapter")
			continue
		}
		allChunks = append(allChunks, chunks...)
	}

	metrics := NewMetrics(string(bookID), len(allChunks), now)
	outcomes := p.Embedder.EmbedAll(ctx, allChunks)

	embedded, skipped, failed := 0, 0, 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
			metrics.RecordFailed()
			log.WithField("book_id", bookID).WithField("chunk_id", o.ChunkId).WithError(o.Err).Warn("embed/insert failed")
		case o.Skipped:
			skipped++
			metrics.RecordSkipped()
		default:
			embedded++
			metrics.RecordCompleted()
		}
	}

	snapshot := metrics.Snapshot(now)
	metricsPath := filepath.Join(p.Structurer.DataDir, "state", "ingest_metrics.json")
	if err := snapshot.WriteFile(metricsPath); err != nil {
		log.WithField("book_id", bookID).WithError(err).Warn("failed to write advisory ingest metrics snapshot")
	}

	return Result{
		BookId:         bookID,
		ChaptersTotal:  len(chapters),
		ChaptersFailed: chaptersFailed,
		ChunksTotal:    len(allChunks),
		ChunksEmbedded: embedded,
		ChunksSkipped:  skipped,
		ChunksFailed:   failed,
		Snapshot:       snapshot,
	}, nil
}
