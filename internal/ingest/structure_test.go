package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Arjun3125/Sovereign/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructurerCommitsAndIsIdempotent(t *testing.T) {
	fake := &llm.FakeClient{Default: json.RawMessage(testStructureResponse)}
	s := &Structurer{LLM: fake, DataDir: t.TempDir()}

	assert.False(t, s.Committed("book1"))
	chapters, err := s.Structure(context.Background(), "book1", "full text")
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.True(t, s.Committed("book1"))
	assert.Equal(t, 1, fake.Calls())

	// Re-invoking reads the committed file back instead of calling the LLM.
	chapters2, err := s.Structure(context.Background(), "book1", "full text")
	require.NoError(t, err)
	assert.Equal(t, chapters, chapters2)
	assert.Equal(t, 1, fake.Calls())
}

func TestStructurerRejectsEmptyChapterList(t *testing.T) {
	fake := &llm.FakeClient{Default: json.RawMessage(`{"book_title":"t","chapters":[]}`)}
	s := &Structurer{LLM: fake, DataDir: t.TempDir()}
	_, err := s.Structure(context.Background(), "book1", "full text")
	assert.Error(t, err)
	assert.False(t, s.Committed("book1"))
}

func TestStructurerRejectsGappedChapterSequence(t *testing.T) {
	fake := &llm.FakeClient{Default: json.RawMessage(`{
		"book_title": "t",
		"chapters": [
			{"chapter_index": 1, "chapter_title": "a", "chapter_text": "x"},
			{"chapter_index": 3, "chapter_title": "b", "chapter_text": "y"}
		]
	}`)}
	s := &Structurer{LLM: fake, DataDir: t.TempDir()}
	_, err := s.Structure(context.Background(), "book1", "full text")
	assert.Error(t, err)
	assert.False(t, s.Committed("book1"), "no partial commit on validation failure")
}
