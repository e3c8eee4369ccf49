package domain

import (
	"errors"
	"fmt"
)

// BookId is a caller-supplied stable identifier for an ingested book.
type BookId string

// ChapterIndex is a 1-based dense index within a book.
type ChapterIndex int

// ChapterRecord is the immutable output of phase-1 structuring. Once
// constructed via NewChapterRecord it is never mutated.
type ChapterRecord struct {
	BookId       BookId
	ChapterIndex ChapterIndex
	Title        string
	Text         string
}

// ErrEmptyField is returned when a required string field is empty during
// validation of LLM-produced structure.
var ErrEmptyField = errors.New("required field is empty")

// NewChapterRecord validates and constructs a ChapterRecord. Chapter index
// gap-density (1..N with no gaps) is validated at the book level by
// ValidateChapterSequence, not here, since a single record cannot see its
// siblings.
func NewChapterRecord(bookID BookId, index ChapterIndex, title, text string) (ChapterRecord, error) {
	if index < 1 {
		return ChapterRecord{}, fmt.Errorf("chapter index %d: must be >= 1", index)
	}
	if title == "" {
		return ChapterRecord{}, fmt.Errorf("chapter %d title: %w", index, ErrEmptyField)
	}
	if text == "" {
		return ChapterRecord{}, fmt.Errorf("chapter %d text: %w", index, ErrEmptyField)
	}
	return ChapterRecord{BookId: bookID, ChapterIndex: index, Title: title, Text: text}, nil
}

// ValidateChapterSequence enforces spec.md §3's invariant: chapter_index
// values within a book form 1..N with no gaps, given in any order.
func ValidateChapterSequence(chapters []ChapterRecord) error {
	if len(chapters) == 0 {
		return errors.New("chapter sequence: empty list rejected, phase-1 output must be non-empty")
	}
	seen := make(map[ChapterIndex]bool, len(chapters))
	for _, c := range chapters {
		if seen[c.ChapterIndex] {
			return fmt.Errorf("chapter sequence: duplicate chapter_index %d", c.ChapterIndex)
		}
		seen[c.ChapterIndex] = true
	}
	for i := 1; i <= len(chapters); i++ {
		if !seen[ChapterIndex(i)] {
			return fmt.Errorf("chapter sequence: gap at index %d, expected dense 1..%d", i, len(chapters))
		}
	}
	return nil
}
