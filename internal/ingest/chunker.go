package ingest

import "github.com/Arjun3125/Sovereign/internal/domain"

// Chunk deterministically splits a DoctrineRecord into one Chunk per
// non-empty list item across principles/rules/claims/warnings. This
// resolves Open Question #1 in spec.md §9 in favor of NOT adding a third
// LLM phase — chunking is a pure function of already-extracted text, per
// original_source/doctrine_ingestion/assembler.py.
//
// A chunk's chunk_id is a hash of (book_id, version, text) only — it does
// not include domain — so a chunk can live in exactly one domain
// partition (spec.md §3: at most one EmbeddedChunk per chunk_id across the
// entire store). Each chunk is tagged with the record's primary domain,
// the first entry of its sorted domains slice, which is the deterministic
// tie-break when a chapter's doctrine spans more than one domain.
func Chunk(rec domain.DoctrineRecord) ([]domain.Chunk, error) {
	if len(rec.Domains) == 0 {
		return nil, nil
	}
	primary := rec.Domains[0]

	var chunks []domain.Chunk
	fields := []struct {
		name  string
		items []string
	}{
		{"principles", rec.Principles},
		{"rules", rec.Rules},
		{"claims", rec.Claims},
		{"warnings", rec.Warnings},
	}
	for _, f := range fields {
		for i, text := range f.items {
			c, err := domain.NewChunk(rec.BookId, rec.ChapterIndex, primary, text, domain.SourceSpan{Field: f.name, Index: i})
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}
