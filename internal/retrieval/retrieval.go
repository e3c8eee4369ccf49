// Package retrieval implements per-minister ACL-gated retrieval over the
// vector store (spec.md §4.3). Grounded on the teacher's
// internal/rag retriever shape (embed query, fan out over allowed
// partitions, merge, re-sort) generalized from a single-collection RAG
// query into the domain-partitioned, ACL-enforced form spec.md requires.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/embedding"
	"github.com/Arjun3125/Sovereign/internal/vectordb"
)

// MinResults is the default k_effective floor below which a retrieval is
// reported as InsufficientKnowledge (spec.md §4.3).
const MinResults = 2

// ErrInsufficientKnowledge is returned when fewer than MinResults chunks
// were found across every domain the minister is bound to.
var ErrInsufficientKnowledge = errors.New("insufficient knowledge: fewer than the minimum required results")

// Hit is one retrieved chunk annotated with its stance category.
type Hit struct {
	vectordb.SearchHit
	Category Category
}

// Category partitions a Hit by whether it supports, opposes, or is neutral
// toward the query, per spec.md §4.3 step 5.
type Category string

const (
	CategorySupport Category = "support"
	CategoryCounter Category = "counter"
	CategoryNeutral Category = "neutral"
)

// RetrievedSet is the outcome of one retrieve_for_minister call.
type RetrievedSet struct {
	Minister domain.MinisterId
	Hits     []Hit
	// Sufficient is false when k_effective < MinResults; callers must not
	// treat Hits as authoritative in that case (spec.md §4.3 step 6).
	Sufficient bool
}

// Retriever runs retrieve_for_minister against a shared Store and Embedder,
// gated by a MinisterBinding table (spec.md §4.3).
type Retriever struct {
	Store    *vectordb.Store
	Embedder embedding.Embedder
	Bindings map[domain.MinisterId]domain.MinisterBinding
}

// RetrieveForMinister enforces the minister's domain/book ACL, merges
// per-domain search results, and partitions by mode-dependent
// support/counter/neutral weighting. bookFilter, if non-nil, is
// intersected with the minister's allowed books — never unioned, so a
// caller can only narrow a minister's own ACL, never widen it.
func (r *Retriever) RetrieveForMinister(ctx context.Context, minister domain.MinisterId, query string, k int, mode domain.Mode, bookFilter map[domain.BookId]bool) (RetrievedSet, error) {
	binding, ok := r.Bindings[minister]
	if !ok {
		return RetrievedSet{}, fmt.Errorf("retrieve for minister %s: no binding registered", minister)
	}

	effectiveBookFilter := intersectBookFilter(binding, bookFilter)

	queryVec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		return RetrievedSet{}, fmt.Errorf("retrieve for minister %s: embed query: %w", minister, err)
	}

	var merged []vectordb.SearchHit
	for dom := range binding.AllowedDomains {
		hits, err := r.Store.Search(ctx, dom, queryVec, k, effectiveBookFilter)
		if err != nil {
			return RetrievedSet{}, fmt.Errorf("retrieve for minister %s: search domain %s: %w", minister, dom, err)
		}
		merged = append(merged, hits...)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ChunkId < merged[j].ChunkId
	})
	if k >= 0 && len(merged) > k {
		merged = merged[:k]
	}

	hits := make([]Hit, len(merged))
	for i, h := range merged {
		hits[i] = Hit{SearchHit: h, Category: categorize(h, mode)}
	}
	hits = filterByMode(hits, mode)

	sufficient := len(hits) >= MinResults
	return RetrievedSet{Minister: minister, Hits: hits, Sufficient: sufficient}, nil
}

// intersectBookFilter narrows bookFilter to the minister's own allowed
// books. A nil caller filter means "no additional restriction" — the
// minister's own ACL still applies. An unrestricted binding ("*") passes
// the caller filter through unchanged.
func intersectBookFilter(binding domain.MinisterBinding, callerFilter map[domain.BookId]bool) map[domain.BookId]bool {
	if binding.AllBooksAllowed() {
		return callerFilter
	}
	if callerFilter == nil {
		return binding.AllowedBooks
	}
	out := make(map[domain.BookId]bool, len(callerFilter))
	for b := range callerFilter {
		if binding.AllowedBooks[b] {
			out[b] = true
		}
	}
	return out
}

// categorize labels a hit support/counter/neutral by the doctrine field it
// was extracted from, per spec.md §4.3 step 5's "payload hints" and
// grounded on original_source/core/knowledge/minister_retriever.py's own
// label partition (support: principle/story/example; counter: warning/
// failure_case; neutral: analogy/context). This system's four doctrine
// fields map onto that same three-way split: "principles" and "rules" are
// actionable normative guidance (support); "warnings" is an explicit
// counter-signal; "claims" are factual assertions offered without
// endorsing or warning against a course of action (neutral).
func categorize(h vectordb.SearchHit, _ domain.Mode) Category {
	switch h.Payload.SourceSpan.Field {
	case "warnings":
		return CategoryCounter
	case "claims":
		return CategoryNeutral
	default: // "principles", "rules"
		return CategorySupport
	}
}

// filterByMode applies spec.md §4.3 step 5's mode weighting: quick mode
// uses support only; normal mode includes counter at reduced weight
// (kept, but capped); war mode includes counter fully.
func filterByMode(hits []Hit, mode domain.Mode) []Hit {
	switch mode {
	case domain.ModeQuick:
		out := hits[:0:0]
		for _, h := range hits {
			if h.Category == CategorySupport {
				out = append(out, h)
			}
		}
		return out
	case domain.ModeNormal:
		out := hits[:0:0]
		counterUsed := 0
		const maxCounter = 1
		for _, h := range hits {
			if h.Category == CategoryCounter {
				if counterUsed >= maxCounter {
					continue
				}
				counterUsed++
			}
			out = append(out, h)
		}
		return out
	default: // war: counter included fully
		return hits
	}
}
