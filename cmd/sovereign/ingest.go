package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Arjun3125/Sovereign/internal/config"
	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/obslog"
)

// runIngest is a supplemented CLI entry point: spec.md §6 names only
// `counsel` and `outcome`, but original_source/cli/ingest_cli.py shows the
// ingestion pipeline always had its own command-line entry, and without
// one here spec.md §4.1's ingestion pipeline would be unreachable from
// the built binary.
func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	bookID := fs.String("book-id", "", "unique book identifier")
	domainFlag := fs.String("domain", "", "primary doctrine domain for this book")
	textFile := fs.String("text-file", "", "path to the book's full raw text")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *bookID == "" || *domainFlag == "" || *textFile == "" {
		fmt.Fprintln(os.Stderr, "ingest: --book-id, --domain, and --text-file are required")
		return 2
	}
	// --domain is an operator sanity check, not fed to the pipeline: each
	// chapter's own extracted doctrine domain decides where its chunks
	// land (internal/ingest.Pipeline.IngestBook), since one book can span
	// several doctrine domains across its chapters.
	if !domain.Domain(*domainFlag).Valid() {
		fmt.Fprintf(os.Stderr, "ingest: invalid domain %q\n", *domainFlag)
		return 2
	}

	text, err := os.ReadFile(*textFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		return 2
	}

	cfg := config.FromEnv()
	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		return 1
	}
	defer a.close()
	log := obslog.From(a.ctx)

	progressPath := filepath.Join(cfg.Ingest.DataDir, "state", fmt.Sprintf("%s.progress.jsonl", *bookID))
	result, err := a.pipeline.IngestBook(a.ctx, domain.BookId(*bookID), string(text), progressPath, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		return 1
	}

	if err := a.store.SaveDir(vectorStoreDir(cfg.Ingest.DataDir)); err != nil {
		log.WithError(err).Error("failed to persist vector store")
		return 1
	}

	fmt.Printf("ingested %s: %d/%d chapters, %d chunks embedded, %d skipped, %d failed\n",
		result.BookId, result.ChaptersTotal-result.ChaptersFailed, result.ChaptersTotal,
		result.ChunksEmbedded, result.ChunksSkipped, result.ChunksFailed)
	return 0
}
