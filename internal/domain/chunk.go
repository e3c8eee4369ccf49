package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SchemaVersion is the ingestion schema version baked into every chunk_id.
// Bumping it is the only sanctioned way to force re-embedding of the whole
// corpus (spec.md §3).
const SchemaVersion = "v1"

// ChunkId is the content-derived identifier of a Chunk.
type ChunkId string

// StableHash computes chunk_id = stable_hash(book_id ":" version ":" text)
// exactly as spec.md §3/§8 requires: deterministic, no wall-clock input.
func StableHash(bookID BookId, version, text string) ChunkId {
	h := sha256.New()
	h.Write([]byte(string(bookID)))
	h.Write([]byte(":"))
	h.Write([]byte(version))
	h.Write([]byte(":"))
	h.Write([]byte(text))
	return ChunkId(hex.EncodeToString(h.Sum(nil)))
}

// SourceSpan locates a chunk's text within its source doctrine field.
type SourceSpan struct {
	Field string // "principles" | "rules" | "claims" | "warnings"
	Index int
}

// Chunk is an immutable unit of doctrine text produced by the chunker.
type Chunk struct {
	ChunkId      ChunkId
	BookId       BookId
	ChapterIndex ChapterIndex
	Domain       Domain
	Text         string
	SourceSpan   SourceSpan
}

// NewChunk constructs a Chunk with its content-derived id computed from the
// current SchemaVersion.
func NewChunk(bookID BookId, chapterIndex ChapterIndex, dom Domain, text string, span SourceSpan) (Chunk, error) {
	if text == "" {
		return Chunk{}, fmt.Errorf("chunk text: %w", ErrEmptyField)
	}
	if !dom.Valid() {
		return Chunk{}, &ErrInvalidDomain{Got: dom}
	}
	return Chunk{
		ChunkId:      StableHash(bookID, SchemaVersion, text),
		BookId:       bookID,
		ChapterIndex: chapterIndex,
		Domain:       dom,
		Text:         text,
		SourceSpan:   span,
	}, nil
}

// EmbeddedChunk is a Chunk paired with its embedding vector, as stored in
// the per-domain vector index.
type EmbeddedChunk struct {
	Chunk
	Vector []float64
}
