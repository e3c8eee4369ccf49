package war

import (
	"sort"

	"github.com/Arjun3125/Sovereign/internal/domain"
)

// MinSelectedBooks and MaxSelectedBooks bound the war-mode book selection
// per spec.md §4.5 and §8 property 12.
const (
	MinSelectedBooks = 2
	MaxSelectedBooks = 5
)

// preferredDomains/deprioritizedDomains and preferredTones/
// deprioritizedTones are the fixed weighting sets in spec.md §4.5's book
// bias formula, chosen to match the leverage-heavy war posture: domains a
// war council actually draws on score positively, domains oriented toward
// restraint or fairness score negatively.
var preferredDomains = map[domain.Domain]bool{
	domain.DomainPower: true, domain.DomainConflict: true, domain.DomainDeception: true,
	domain.DomainPsychology: true, domain.DomainIntelligence: true, domain.DomainTiming: true,
}

var deprioritizedDomains = map[domain.Domain]bool{
	domain.DomainMorality: true, domain.DomainLaw: true, domain.DomainDiplomacy: true,
}

var preferredTones = map[domain.Tone]bool{
	domain.ToneAggressive: true, domain.ToneManipulative: true, domain.TonePragmatic: true,
}

var deprioritizedTones = map[domain.Tone]bool{
	domain.ToneIdealistic: true, domain.ToneCautious: true,
}

// ScoredBook pairs a book with its computed war-mode bias score.
type ScoredBook struct {
	BookId domain.BookId
	Score  float64
}

// ScoreBook computes s per spec.md §4.5's book-retrieval bias formula.
func ScoreBook(meta domain.BookMetadata) float64 {
	var s float64
	for d := range meta.Domains {
		if preferredDomains[d] {
			s += 2.0
		}
		if deprioritizedDomains[d] {
			s -= 1.5
		}
	}
	for t := range meta.Tones {
		if preferredTones[t] {
			s += 1.5
		}
		if deprioritizedTones[t] {
			s -= 0.8
		}
	}
	return s * meta.Priority.War
}

// SelectBooks ranks every candidate by score descending (ties broken by
// book_id), keeps the top N positive-scoring books with
// MinSelectedBooks ≤ N ≤ MaxSelectedBooks, and backfills from the
// remaining candidates — even at a non-positive score — if too few books
// scored positively to reach the floor, mirroring SelectCouncil's
// backfill from its deprioritized tier.
func SelectBooks(candidates []domain.BookMetadata) []ScoredBook {
	all := make([]ScoredBook, 0, len(candidates))
	for _, c := range candidates {
		all = append(all, ScoredBook{BookId: c.BookId, Score: ScoreBook(c)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].BookId < all[j].BookId
	})

	var selected []ScoredBook
	for _, s := range all {
		if s.Score > 0 {
			selected = append(selected, s)
		}
	}
	if len(selected) > MaxSelectedBooks {
		selected = selected[:MaxSelectedBooks]
	}

	if len(selected) < MinSelectedBooks {
		chosen := make(map[domain.BookId]bool, len(selected))
		for _, s := range selected {
			chosen[s.BookId] = true
		}
		for _, s := range all {
			if len(selected) >= MinSelectedBooks {
				break
			}
			if chosen[s.BookId] {
				continue
			}
			selected = append(selected, s)
			chosen[s.BookId] = true
		}
	}

	return selected
}

// BookFilterFrom converts a scored selection into the set form
// Retriever.RetrieveForMinister's bookFilter parameter expects.
func BookFilterFrom(scored []ScoredBook) map[domain.BookId]bool {
	out := make(map[domain.BookId]bool, len(scored))
	for _, s := range scored {
		out[s.BookId] = true
	}
	return out
}
