package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/llm"
	"golang.org/x/sync/errgroup"
)

const doctrineSchema = `{
  "chapter_index": "int",
  "chapter_title": "string",
  "domains": ["one to three of the fifteen enumerated domain tags"],
  "principles": ["string"],
  "rules": ["string"],
  "claims": ["string"],
  "warnings": ["string"],
  "cross_references": ["int chapter index"]
}`

type doctrineJSON struct {
	ChapterIndex     int      `json:"chapter_index"`
	ChapterTitle     string   `json:"chapter_title"`
	Domains          []string `json:"domains"`
	Principles       []string `json:"principles"`
	Rules            []string `json:"rules"`
	Claims           []string `json:"claims"`
	Warnings         []string `json:"warnings"`
	CrossReferences  []int    `json:"cross_references"`
}

// DoctrineExtractor runs phase-2: one independent LLM call per chapter,
// validated and committed atomically to NN.json. A failed chapter is
// logged and skipped so the pipeline is resumable (spec.md §4.1).
type DoctrineExtractor struct {
	LLM     llm.Client
	DataDir string
}

func (e *DoctrineExtractor) doctrinePath(bookID domain.BookId, idx domain.ChapterIndex) string {
	return filepath.Join(e.DataDir, "books", string(bookID), fmt.Sprintf("%02d.json", idx))
}

// Committed reports whether chapter idx already has a committed NN.json,
// so the caller can skip re-extracting it on resume.
func (e *DoctrineExtractor) Committed(bookID domain.BookId, idx domain.ChapterIndex) bool {
	_, err := os.Stat(e.doctrinePath(bookID, idx))
	return err == nil
}

// ChapterResult is the outcome of extracting doctrine for one chapter.
type ChapterResult struct {
	Chapter  domain.ChapterRecord
	Doctrine domain.DoctrineRecord
	Err      error
}

// ExtractAll runs phase-2 over every chapter not already committed,
// independently and concurrently (spec.md §5: "concurrent phase-2 LLM
// calls, independent per chapter"). Failed chapters are returned with a
// non-nil Err and do not stop the others.
func (e *DoctrineExtractor) ExtractAll(ctx context.Context, bookID domain.BookId, chapters []domain.ChapterRecord) []ChapterResult {
	validChapters := make(map[domain.ChapterIndex]bool, len(chapters))
	for _, c := range chapters {
		validChapters[c.ChapterIndex] = true
	}

	results := make([]ChapterResult, len(chapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range chapters {
		i, ch := i, ch
		g.Go(func() error {
			if e.Committed(bookID, ch.ChapterIndex) {
				existing, err := e.readCommitted(bookID, ch.ChapterIndex, validChapters)
				results[i] = ChapterResult{Chapter: ch, Doctrine: existing, Err: err}
				return nil
			}
			doc, err := e.extractOne(gctx, ch, validChapters)
			results[i] = ChapterResult{Chapter: ch, Doctrine: doc, Err: err}
			return nil
		})
	}
	_ = g.Wait() // per-chapter errors are carried in results, not propagated
	return results
}

func (e *DoctrineExtractor) readCommitted(bookID domain.BookId, idx domain.ChapterIndex, validChapters map[domain.ChapterIndex]bool) (domain.DoctrineRecord, error) {
	data, err := os.ReadFile(e.doctrinePath(bookID, idx))
	if err != nil {
		return domain.DoctrineRecord{}, fmt.Errorf("phase-2 chapter %d: read committed: %w", idx, err)
	}
	var parsed doctrineJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return domain.DoctrineRecord{}, fmt.Errorf("phase-2 chapter %d: committed file is corrupt: %w", idx, err)
	}
	return toDoctrineRecord(bookID, parsed, validChapters)
}

func (e *DoctrineExtractor) extractOne(ctx context.Context, ch domain.ChapterRecord, validChapters map[domain.ChapterIndex]bool) (domain.DoctrineRecord, error) {
	prompt := fmt.Sprintf("Extract doctrine from chapter %d (%q):\n\n%s", ch.ChapterIndex, ch.Title, ch.Text)
	raw, err := e.LLM.Complete(ctx, prompt, json.RawMessage(doctrineSchema))
	if err != nil {
		return domain.DoctrineRecord{}, fmt.Errorf("phase-2 chapter %d: llm call: %w", ch.ChapterIndex, err)
	}

	var parsed doctrineJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.DoctrineRecord{}, fmt.Errorf("phase-2 chapter %d: malformed llm output: %w", ch.ChapterIndex, err)
	}
	parsed.ChapterIndex = int(ch.ChapterIndex)
	parsed.ChapterTitle = ch.Title

	rec, err := toDoctrineRecord(ch.BookId, parsed, validChapters)
	if err != nil {
		return domain.DoctrineRecord{}, fmt.Errorf("phase-2 chapter %d: %w", ch.ChapterIndex, err)
	}

	data, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return domain.DoctrineRecord{}, fmt.Errorf("phase-2 chapter %d: marshal commit: %w", ch.ChapterIndex, err)
	}
	if err := writeFileAtomic(e.doctrinePath(ch.BookId, ch.ChapterIndex), data); err != nil {
		return domain.DoctrineRecord{}, fmt.Errorf("phase-2 chapter %d: %w", ch.ChapterIndex, err)
	}
	return rec, nil
}

func toDoctrineRecord(bookID domain.BookId, parsed doctrineJSON, validChapters map[domain.ChapterIndex]bool) (domain.DoctrineRecord, error) {
	domains := make([]domain.Domain, len(parsed.Domains))
	for i, d := range parsed.Domains {
		domains[i] = domain.Domain(d)
	}
	crossRefs := make([]domain.ChapterIndex, len(parsed.CrossReferences))
	for i, r := range parsed.CrossReferences {
		crossRefs[i] = domain.ChapterIndex(r)
	}
	return domain.NewDoctrineRecord(
		bookID,
		domain.ChapterIndex(parsed.ChapterIndex),
		domains,
		parsed.Principles, parsed.Rules, parsed.Claims, parsed.Warnings,
		crossRefs,
		validChapters,
	)
}
