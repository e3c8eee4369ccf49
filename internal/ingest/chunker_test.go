package ingest

import (
	"testing"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkOneRecordPerListItem(t *testing.T) {
	rec, err := domain.NewDoctrineRecord(
		"book1", 1,
		[]domain.Domain{domain.DomainRisk, domain.DomainPower},
		[]string{"principle one", "principle two"},
		[]string{"rule one"},
		nil,
		[]string{"warning one"},
		nil,
		map[domain.ChapterIndex]bool{1: true},
	)
	require.NoError(t, err)

	chunks, err := Chunk(rec)
	require.NoError(t, err)
	assert.Len(t, chunks, 4)
	for _, c := range chunks {
		// power < risk lexicographically, so NewDoctrineRecord sorts
		// domains to [power, risk] and the chunker picks the first.
		assert.Equal(t, domain.DomainPower, c.Domain)
	}
}

func TestChunkIsDeterministic(t *testing.T) {
	rec, err := domain.NewDoctrineRecord(
		"book1", 1, []domain.Domain{domain.DomainRisk},
		[]string{"same text"}, nil, nil, nil, nil,
		map[domain.ChapterIndex]bool{1: true},
	)
	require.NoError(t, err)

	a, err := Chunk(rec)
	require.NoError(t, err)
	b, err := Chunk(rec)
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ChunkId, b[0].ChunkId)
}

func TestChunkEmptyDoctrineYieldsNoChunks(t *testing.T) {
	rec, err := domain.NewDoctrineRecord(
		"book1", 1, []domain.Domain{domain.DomainRisk},
		nil, nil, nil, nil, nil,
		map[domain.ChapterIndex]bool{1: true},
	)
	require.NoError(t, err)
	chunks, err := Chunk(rec)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
