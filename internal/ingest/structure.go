package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/llm"
)

// structureSchema is the strict output shape the phase-1 structurer asks
// the LLM to conform to, matching spec.md §6's structure.json contract.
const structureSchema = `{
  "book_title": "string",
  "author": "string (optional)",
  "chapters": [
    {"chapter_index": "int (1-based, dense)", "chapter_title": "string", "chapter_text": "string"}
  ]
}`

type structureChapterJSON struct {
	ChapterIndex int    `json:"chapter_index"`
	ChapterTitle string `json:"chapter_title"`
	ChapterText  string `json:"chapter_text"`
}

type structureJSON struct {
	BookTitle string                 `json:"book_title"`
	Author    string                 `json:"author,omitempty"`
	Chapters  []structureChapterJSON `json:"chapters"`
}

// Structurer runs phase-1: a single LLM call over the full book text,
// validated then committed atomically to structure.json.
type Structurer struct {
	LLM     llm.Client
	DataDir string
}

// structurePath returns the durable commit path for a book's phase-1
// output.
func (s *Structurer) structurePath(bookID domain.BookId) string {
	return filepath.Join(s.DataDir, "books", string(bookID), "structure.json")
}

// Committed reports whether bookID already has a committed structure.json,
// so a resumed run can skip phase-1 entirely (spec.md §4.1, §8 scenario
// S2).
func (s *Structurer) Committed(bookID domain.BookId) bool {
	_, err := os.Stat(s.structurePath(bookID))
	return err == nil
}

// Structure asks the LLM to segment fullText into chapters, validates the
// response, and atomically commits structure.json. On validation failure
// the whole phase-1 output is rejected — no partial commit (spec.md §4.1).
// If structure.json is already committed for bookID, the existing file is
// read and validated instead of issuing a new LLM call, making phase-1
// idempotent under re-invocation.
func (s *Structurer) Structure(ctx context.Context, bookID domain.BookId, fullText string) ([]domain.ChapterRecord, error) {
	if s.Committed(bookID) {
		return s.readCommitted(bookID)
	}

	prompt := fmt.Sprintf("Segment the following book into chapters.\n\n%s", fullText)
	raw, err := s.LLM.Complete(ctx, prompt, json.RawMessage(structureSchema))
	if err != nil {
		return nil, fmt.Errorf("phase-1 structure %s: llm call: %w", bookID, err)
	}

	var parsed structureJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("phase-1 structure %s: malformed llm output: %w", bookID, err)
	}
	records, err := toChapterRecords(bookID, parsed)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("phase-1 structure %s: marshal commit: %w", bookID, err)
	}
	if err := writeFileAtomic(s.structurePath(bookID), data); err != nil {
		return nil, fmt.Errorf("phase-1 structure %s: %w", bookID, err)
	}

	return records, nil
}

func (s *Structurer) readCommitted(bookID domain.BookId) ([]domain.ChapterRecord, error) {
	data, err := os.ReadFile(s.structurePath(bookID))
	if err != nil {
		return nil, fmt.Errorf("phase-1 structure %s: read committed: %w", bookID, err)
	}
	var parsed structureJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("phase-1 structure %s: committed file is corrupt: %w", bookID, err)
	}
	return toChapterRecords(bookID, parsed)
}

func toChapterRecords(bookID domain.BookId, parsed structureJSON) ([]domain.ChapterRecord, error) {
	if len(parsed.Chapters) == 0 {
		return nil, fmt.Errorf("phase-1 structure %s: empty chapter list rejected", bookID)
	}
	records := make([]domain.ChapterRecord, 0, len(parsed.Chapters))
	for _, c := range parsed.Chapters {
		rec, err := domain.NewChapterRecord(bookID, domain.ChapterIndex(c.ChapterIndex), c.ChapterTitle, c.ChapterText)
		if err != nil {
			return nil, fmt.Errorf("phase-1 structure %s: %w", bookID, err)
		}
		records = append(records, rec)
	}
	if err := domain.ValidateChapterSequence(records); err != nil {
		return nil, fmt.Errorf("phase-1 structure %s: %w", bookID, err)
	}
	return records, nil
}
