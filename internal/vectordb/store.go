// Package vectordb implements the in-process, per-domain-partitioned
// vector store described in spec.md §4.2. Adapted from the teacher's
// qdrant/pgvector client interface shape (upsert/search naming,
// collection-per-partition idea) into a single-process index — no network
// vector database is named among spec.md §1's external collaborators.
package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Arjun3125/Sovereign/internal/domain"
)

// UpsertResult reports whether Upsert inserted a new row or found a
// pre-existing duplicate chunk_id.
type UpsertResult string

const (
	Inserted  UpsertResult = "inserted"
	Duplicate UpsertResult = "duplicate"
)

// SearchHit is one scored result from Search.
type SearchHit struct {
	ChunkId domain.ChunkId
	Score   float64
	Payload domain.EmbeddedChunk
}

// Store is the per-domain partitioned vector index. Inserts are serialized
// (single-writer, per spec.md §5) behind a sync.RWMutex. A read holds the
// read lock for the whole of its lookup or scan, so reads and inserts wait
// for one another; a read sees every insert that completed before it.
type Store struct {
	mu       sync.RWMutex
	byDomain map[domain.Domain]map[domain.ChunkId]domain.EmbeddedChunk
	byChunk  map[domain.ChunkId]domain.Domain
}

// NewStore builds an empty store with one partition per domain.Valid
// domain.
func NewStore() *Store {
	s := &Store{
		byDomain: make(map[domain.Domain]map[domain.ChunkId]domain.EmbeddedChunk, len(domain.AllDomains)),
		byChunk:  make(map[domain.ChunkId]domain.Domain),
	}
	for _, d := range domain.AllDomains {
		s.byDomain[d] = make(map[domain.ChunkId]domain.EmbeddedChunk)
	}
	return s
}

// Upsert inserts embedded into its domain's partition. If a chunk with the
// same chunk_id already exists in ANY domain (spec.md §3: at most one
// EmbeddedChunk per chunk_id across the entire store) with a DIFFERENT
// domain or different text, this is an integrity error — fatal, per
// spec.md §7. If it exists with identical content, Upsert reports
// Duplicate and does not re-insert.
func (s *Store) Upsert(_ context.Context, dom domain.Domain, embedded domain.EmbeddedChunk) (UpsertResult, error) {
	if !dom.Valid() {
		return "", &domain.ErrInvalidDomain{Got: dom}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingDomain, ok := s.byChunk[embedded.ChunkId]; ok {
		existing := s.byDomain[existingDomain][embedded.ChunkId]
		if existingDomain != dom || existing.Text != embedded.Text {
			return "", fmt.Errorf(
				"vector store integrity error: chunk_id %s already stored in domain %s with different content, refusing to overwrite",
				embedded.ChunkId, existingDomain,
			)
		}
		return Duplicate, nil
	}

	s.byDomain[dom][embedded.ChunkId] = embedded
	s.byChunk[embedded.ChunkId] = dom
	return Inserted, nil
}

// Contains reports whether chunkID is already stored, in any domain.
func (s *Store) Contains(_ context.Context, chunkID domain.ChunkId) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byChunk[chunkID]
	return ok
}

// Size returns the total number of stored chunks, across all domains.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byChunk)
}

// Search scores every chunk in dom's partition by cosine similarity to
// queryVec, optionally restricted to bookFilter, and returns the top k
// results sorted by (-score, chunk_id) for deterministic ordering
// (spec.md §4.2, §5, §8 property 7).
func (s *Store) Search(_ context.Context, dom domain.Domain, queryVec []float64, k int, bookFilter map[domain.BookId]bool) ([]SearchHit, error) {
	if !dom.Valid() {
		return nil, &domain.ErrInvalidDomain{Got: dom}
	}
	s.mu.RLock()
	partition := s.byDomain[dom]
	hits := make([]SearchHit, 0, len(partition))
	for id, ec := range partition {
		if bookFilter != nil && !bookFilter[ec.BookId] {
			continue
		}
		hits = append(hits, SearchHit{
			ChunkId: id,
			Score:   cosineSimilarity(queryVec, ec.Vector),
			Payload: ec,
		})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkId < hits[j].ChunkId
	})

	if k >= 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// SaveDir persists every non-empty domain partition to
// dir/<domain>.json, per spec.md §6's `vector_store/<domain>/…` layout.
// Each file is written write-temp-then-rename, matching the ingestion
// pipeline's atomic-commit contract, so a crash mid-save never leaves a
// half-written partition file.
func (s *Store) SaveDir(dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for dom, partition := range s.byDomain {
		if len(partition) == 0 {
			continue
		}
		rows := make([]domain.EmbeddedChunk, 0, len(partition))
		for _, ec := range partition {
			rows = append(rows, ec)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].ChunkId < rows[j].ChunkId })

		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("vector store: marshal domain %s: %w", dom, err)
		}
		if err := writeFileAtomic(filepath.Join(dir, string(dom)+".json"), data); err != nil {
			return fmt.Errorf("vector store: save domain %s: %w", dom, err)
		}
	}
	return nil
}

// LoadDir restores partitions previously written by SaveDir. Missing
// per-domain files are not an error — an empty store is a legitimate
// starting point (spec.md §4.1 scenario S1's fresh-run case).
func (s *Store) LoadDir(dir string) error {
	for _, dom := range domain.AllDomains {
		path := filepath.Join(dir, string(dom)+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("vector store: read domain %s: %w", dom, err)
		}
		var rows []domain.EmbeddedChunk
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("vector store: parse domain %s: %w", dom, err)
		}
		s.mu.Lock()
		for _, ec := range rows {
			s.byDomain[dom][ec.ChunkId] = ec
			s.byChunk[ec.ChunkId] = dom
		}
		s.mu.Unlock()
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomic write %s: mkdir: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("atomic write %s: create temp: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("atomic write %s: write: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("atomic write %s: fsync: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomic write %s: close: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic write %s: rename: %w", path, err)
	}
	return nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
