package main

import (
	"context"
	"path/filepath"

	"github.com/Arjun3125/Sovereign/internal/config"
	"github.com/Arjun3125/Sovereign/internal/debate"
	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/embedding"
	"github.com/Arjun3125/Sovereign/internal/ingest"
	"github.com/Arjun3125/Sovereign/internal/ledger"
	"github.com/Arjun3125/Sovereign/internal/llm"
	"github.com/Arjun3125/Sovereign/internal/obslog"
	"github.com/Arjun3125/Sovereign/internal/retrieval"
	"github.com/Arjun3125/Sovereign/internal/router"
	"github.com/Arjun3125/Sovereign/internal/synthesis"
	"github.com/Arjun3125/Sovereign/internal/vectordb"
	"github.com/Arjun3125/Sovereign/internal/war"
)

// app bundles every collaborator a subcommand needs, built once from the
// environment. It is the composition root the teacher's cmd/helixagent
// main.go plays with its AppConfig, generalized to this binary's three
// subcommands.
type app struct {
	cfg      config.Config
	ctx      context.Context
	store    *vectordb.Store
	registry *vectordb.BookRegistry
	ledger   *ledger.Store
	router   *router.Router
	pipeline *ingest.Pipeline
}

func vectorStoreDir(dataDir string) string   { return filepath.Join(dataDir, "vector_store") }
func bookMetadataDir(dataDir string) string { return filepath.Join(dataDir, "books", "metadata") }

// newApp wires the counsel engine's collaborators from cfg: a real
// HTTP-backed LLM client and embedder (spec.md §1's pure-function
// boundaries), the vector store restored from its last SaveDir snapshot,
// the book registry, the sqlite-backed ledger, and the mode dispatch
// router.
func newApp(cfg config.Config) (*app, error) {
	log := obslog.New(cfg.Logging.Level, cfg.Logging.Format)
	ctx := obslog.WithLogger(context.Background(), log)

	store := vectordb.NewStore()
	if err := store.LoadDir(vectorStoreDir(cfg.Ingest.DataDir)); err != nil {
		return nil, err
	}

	registry := vectordb.NewBookRegistry()
	if err := registry.LoadDir(bookMetadataDir(cfg.Ingest.DataDir)); err != nil {
		return nil, err
	}

	ledgerStore, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}

	llmClient := llm.NewHTTPClient(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.TimeoutSeconds, cfg.LLM.MaxRetries)
	embedder := embedding.NewHTTPEmbedder(cfg.Embed.Endpoint, cfg.Embed.Model, cfg.Embed.Dimension, cfg.LLM.TimeoutSeconds)

	engine := &debate.Engine{
		Retriever: &retrieval.Retriever{
			Store:    store,
			Embedder: embedder,
			Bindings: domain.DefaultBindings(),
		},
		Synthesizer: &synthesis.Synthesizer{LLM: llmClient},
	}

	pipeline := ingest.NewPipeline(cfg.Ingest.DataDir, llmClient, embedder, store, cfg.Ingest.EmbedConcurrency)

	return &app{
		cfg:      cfg,
		ctx:      ctx,
		store:    store,
		registry: registry,
		ledger:   ledgerStore,
		router: &router.Router{
			Debate: engine,
			War:    &war.Pipeline{Debate: engine},
		},
		pipeline: pipeline,
	}, nil
}

func (a *app) close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
}

// booksForWar collects every registered book's metadata, the input
// war.SelectBooks scores against.
func (a *app) booksForWar() []domain.BookMetadata {
	ids := a.registry.AllBooks()
	books := make([]domain.BookMetadata, 0, len(ids))
	for _, id := range ids {
		books = append(books, a.registry.Metadata(id))
	}
	return books
}
