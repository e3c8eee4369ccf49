package war

import (
	"testing"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/stretchr/testify/assert"
)

func meta(id string, domains []domain.Domain, tones []domain.Tone, warWeight float64) domain.BookMetadata {
	m := domain.DefaultBookMetadata(domain.BookId(id))
	for _, d := range domains {
		m.Domains[d] = true
	}
	for _, t := range tones {
		m.Tones[t] = true
	}
	m.Priority.War = warWeight
	return m
}

func TestScoreBookPreferredDomainsAndTonesAddPositively(t *testing.T) {
	b := meta("b1", []domain.Domain{domain.DomainPower, domain.DomainConflict}, []domain.Tone{domain.ToneAggressive}, 1.0)
	assert.Equal(t, (2.0+2.0+1.5)*1.0, ScoreBook(b))
}

func TestScoreBookDeprioritizedDomainsAndTonesSubtract(t *testing.T) {
	b := meta("b2", []domain.Domain{domain.DomainMorality}, []domain.Tone{domain.ToneIdealistic}, 1.0)
	assert.Equal(t, (-1.5-0.8)*1.0, ScoreBook(b))
}

func TestScoreBookScaledByWarPriority(t *testing.T) {
	b := meta("b3", []domain.Domain{domain.DomainPower}, nil, 0.5)
	assert.Equal(t, 2.0*0.5, ScoreBook(b))
}

func TestSelectBooksPrefersPositiveScoresOverNonPositive(t *testing.T) {
	candidates := []domain.BookMetadata{
		meta("good", []domain.Domain{domain.DomainPower}, nil, 1.0),
		meta("bad", []domain.Domain{domain.DomainMorality}, nil, 1.0),
		meta("zero", nil, nil, 1.0),
	}
	selected := SelectBooks(candidates)
	// Only "good" scores positively, so the floor backfill pulls in the
	// next-highest scorer ("zero", score 0) ahead of the worse-scoring
	// "bad" to satisfy MinSelectedBooks.
	assert.Len(t, selected, 2)
	assert.Equal(t, domain.BookId("good"), selected[0].BookId)
	assert.Equal(t, domain.BookId("zero"), selected[1].BookId)
}

func TestSelectBooksBackfillsToFloorWhenTooFewScorePositively(t *testing.T) {
	candidates := []domain.BookMetadata{
		meta("only-positive", []domain.Domain{domain.DomainPower}, nil, 1.0),
		meta("mild-negative", []domain.Domain{domain.DomainDiplomacy}, nil, 1.0),
		meta("worse-negative", []domain.Domain{domain.DomainMorality, domain.DomainLaw}, nil, 1.0),
	}
	selected := SelectBooks(candidates)
	assert.GreaterOrEqual(t, len(selected), MinSelectedBooks)
	assert.Equal(t, domain.BookId("only-positive"), selected[0].BookId)
	assert.Equal(t, domain.BookId("mild-negative"), selected[1].BookId)
}

func TestSelectBooksRanksDescendingWithBookIdTieBreak(t *testing.T) {
	candidates := []domain.BookMetadata{
		meta("z-tie", []domain.Domain{domain.DomainPower}, nil, 1.0),
		meta("a-tie", []domain.Domain{domain.DomainPower}, nil, 1.0),
		meta("highest", []domain.Domain{domain.DomainPower, domain.DomainConflict, domain.DomainDeception}, nil, 1.0),
	}
	selected := SelectBooks(candidates)
	assert.Equal(t, []domain.BookId{"highest", "a-tie", "z-tie"}, []domain.BookId{selected[0].BookId, selected[1].BookId, selected[2].BookId})
}

func TestSelectBooksClampsToMaxSelectedBooks(t *testing.T) {
	var candidates []domain.BookMetadata
	for i := 0; i < 8; i++ {
		candidates = append(candidates, meta(string(rune('a'+i)), []domain.Domain{domain.DomainPower}, nil, 1.0))
	}
	selected := SelectBooks(candidates)
	assert.Len(t, selected, MaxSelectedBooks)
}

func TestSelectBooksReturnsFewerThanMinimumWhenCorpusLacksQualifyingBooks(t *testing.T) {
	candidates := []domain.BookMetadata{
		meta("only-one", []domain.Domain{domain.DomainPower}, nil, 1.0),
	}
	selected := SelectBooks(candidates)
	assert.Len(t, selected, 1)
}

func TestBookFilterFromProducesLookupSet(t *testing.T) {
	scored := []ScoredBook{{BookId: "a"}, {BookId: "b"}}
	filter := BookFilterFrom(scored)
	assert.True(t, filter["a"])
	assert.True(t, filter["b"])
	assert.False(t, filter["c"])
}
