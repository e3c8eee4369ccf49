package vectordb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"gopkg.in/yaml.v3"
)

// BookRegistry loads BookMetadata for every known book, per spec.md §4.2.
// Read-only at runtime once loaded.
type BookRegistry struct {
	mu    sync.RWMutex
	books map[domain.BookId]domain.BookMetadata
}

// NewBookRegistry builds an empty registry.
func NewBookRegistry() *BookRegistry {
	return &BookRegistry{books: make(map[domain.BookId]domain.BookMetadata)}
}

type bookMetadataYAML struct {
	BookId   string   `yaml:"book_id"`
	Domains  []string `yaml:"domains"`
	Tones    []string `yaml:"tones"`
	Priority struct {
		Normal float64 `yaml:"normal"`
		War    float64 `yaml:"war"`
		Quick  float64 `yaml:"quick"`
	} `yaml:"priority"`
}

// LoadDir loads every books/metadata/<book_id>.yaml file under dir into the
// registry. Malformed entries are a validation error and abort the whole
// load (metadata is operator-authored, not LLM-produced).
func (r *BookRegistry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("book registry: read dir %s: %w", dir, err)
	}

	loaded := make(map[domain.BookId]domain.BookMetadata, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("book registry: read %s: %w", path, err)
		}
		var raw bookMetadataYAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("book registry: parse %s: %w", path, err)
		}
		meta, err := fromYAML(raw)
		if err != nil {
			return fmt.Errorf("book registry: %s: %w", path, err)
		}
		loaded[meta.BookId] = meta
	}

	r.mu.Lock()
	r.books = loaded
	r.mu.Unlock()
	return nil
}

func fromYAML(raw bookMetadataYAML) (domain.BookMetadata, error) {
	if raw.BookId == "" {
		return domain.BookMetadata{}, fmt.Errorf("book_id is required")
	}
	doms := make(map[domain.Domain]bool, len(raw.Domains))
	for _, d := range raw.Domains {
		dom := domain.Domain(d)
		if !dom.Valid() {
			return domain.BookMetadata{}, &domain.ErrInvalidDomain{Got: dom}
		}
		doms[dom] = true
	}
	tones := make(map[domain.Tone]bool, len(raw.Tones))
	for _, t := range raw.Tones {
		tones[domain.Tone(t)] = true
	}
	return domain.BookMetadata{
		BookId:  domain.BookId(raw.BookId),
		Domains: doms,
		Tones:   tones,
		Priority: domain.PriorityWeights{
			Normal: raw.Priority.Normal,
			War:    raw.Priority.War,
			Quick:  raw.Priority.Quick,
		},
	}, nil
}

// Put registers metadata directly, bypassing disk load (used in tests and
// by the ingester when metadata accompanies a fresh book).
func (r *BookRegistry) Put(meta domain.BookMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[meta.BookId] = meta
}

// Metadata returns the stored metadata for id, or the documented default
// for an unknown book.
func (r *BookRegistry) Metadata(id domain.BookId) domain.BookMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.books[id]; ok {
		return m
	}
	return domain.DefaultBookMetadata(id)
}

// AllBooks returns every registered book_id, sorted for determinism.
func (r *BookRegistry) AllBooks() []domain.BookId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]domain.BookId, 0, len(r.books))
	for id := range r.books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
