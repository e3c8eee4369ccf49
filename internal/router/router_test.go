package router

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Arjun3125/Sovereign/internal/debate"
	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/embedding"
	"github.com/Arjun3125/Sovereign/internal/llm"
	"github.com/Arjun3125/Sovereign/internal/retrieval"
	"github.com/Arjun3125/Sovereign/internal/synthesis"
	"github.com/Arjun3125/Sovereign/internal/vectordb"
	"github.com/Arjun3125/Sovereign/internal/war"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRouterStore(t *testing.T, store *vectordb.Store, dom domain.Domain, texts ...string) {
	t.Helper()
	ctx := context.Background()
	embedder := embedding.NewFakeEmbedder(4)
	for i, text := range texts {
		c, err := domain.NewChunk("b1", domain.ChapterIndex(i+1), dom, text, domain.SourceSpan{Field: "principles", Index: i})
		require.NoError(t, err)
		vec, err := embedder.Embed(ctx, text)
		require.NoError(t, err)
		_, err = store.Upsert(ctx, dom, domain.EmbeddedChunk{Chunk: c, Vector: vec})
		require.NoError(t, err)
	}
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	store := vectordb.NewStore()
	for _, dom := range []domain.Domain{
		domain.DomainStrategy, domain.DomainRisk, domain.DomainLaw, domain.DomainMorality,
		domain.DomainIntelligence, domain.DomainDiplomacy,
	} {
		seedRouterStore(t, store, dom, "principle one about "+string(dom), "principle two about "+string(dom))
	}

	fake := &llm.FakeClient{Default: json.RawMessage(`{"stance":"ADVANCE","justification":"grounded in doctrine","doctrine_ids":[],"violations":[],"constraints":[],"confidence":0.8}`)}
	engine := &debate.Engine{
		Retriever: &retrieval.Retriever{
			Store:    store,
			Embedder: embedding.NewFakeEmbedder(4),
			Bindings: domain.DefaultBindings(),
		},
		Synthesizer: &synthesis.Synthesizer{LLM: fake},
	}
	return &Router{
		Debate: engine,
		War:    &war.Pipeline{Debate: engine},
	}
}

func TestDispatchReturnsHandlerPerMode(t *testing.T) {
	r := newTestRouter(t)
	for _, mode := range []domain.Mode{domain.ModeQuick, domain.ModeNormal, domain.ModeWar} {
		h, err := r.Dispatch(mode)
		require.NoError(t, err)
		assert.NotNil(t, h)
	}
}

func TestDispatchRejectsUnknownMode(t *testing.T) {
	r := newTestRouter(t)
	_, err := r.Dispatch(domain.Mode("frantic"))
	assert.Error(t, err)
}

func TestQuickModeReturnsVerdictWithoutEscalationBelowThreshold(t *testing.T) {
	r := newTestRouter(t)
	h, err := r.Dispatch(domain.ModeQuick)
	require.NoError(t, err)

	v, err := h(context.Background(), Query{Text: "should we proceed with the merger", Urgency: 0.1, EmotionalLoad: 0.1})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeQuick, v.Mode)
	assert.False(t, v.Escalated)
	require.NotNil(t, v.Debate)
}

func TestQuickModeEscalatesToNormalAboveRiskThreshold(t *testing.T) {
	r := newTestRouter(t)
	h, err := r.Dispatch(domain.ModeQuick)
	require.NoError(t, err)

	v, err := h(context.Background(), Query{Text: "should we proceed", Urgency: 0.9, EmotionalLoad: 0.9, Fatigue: 0.9})
	require.NoError(t, err)
	assert.True(t, v.Escalated)
	assert.Equal(t, domain.ModeNormal, v.Mode)
	require.NotNil(t, v.Debate)
}

func TestNormalModeConsultsFullCouncil(t *testing.T) {
	r := newTestRouter(t)
	h, err := r.Dispatch(domain.ModeNormal)
	require.NoError(t, err)

	v, err := h(context.Background(), Query{Text: "should we proceed"})
	require.NoError(t, err)
	require.NotNil(t, v.Debate)
	assert.Len(t, v.Debate.Positions, len(domain.AllMinisters))
}

func TestWarModeRejectsMissingRequiredFields(t *testing.T) {
	r := newTestRouter(t)
	h, err := r.Dispatch(domain.ModeWar)
	require.NoError(t, err)

	_, err = h(context.Background(), Query{Goal: "secure the border region"})
	assert.ErrorIs(t, err, ErrMissingWarFields)
}

func TestWarModeRunsFullPipelineWhenFieldsPresent(t *testing.T) {
	r := newTestRouter(t)
	h, err := r.Dispatch(domain.ModeWar)
	require.NoError(t, err)

	v, err := h(context.Background(), Query{
		Goal:          "secure the trade corridor",
		Arena:         "negotiation",
		Reversibility: "reversible",
		DomainTags:    map[domain.Domain]bool{domain.DomainDiplomacy: true, domain.DomainRisk: true},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeWar, v.Mode)
	require.NotNil(t, v.War)
}

func TestWarModePropagatesConstraintGateBlock(t *testing.T) {
	r := newTestRouter(t)
	h, err := r.Dispatch(domain.ModeWar)
	require.NoError(t, err)

	_, err = h(context.Background(), Query{
		Goal:          "target individual for elimination",
		Arena:         "negotiation",
		Reversibility: "irreversible",
	})
	require.Error(t, err)
	var blocked *war.ErrBlocked
	assert.ErrorAs(t, err, &blocked)
}

func TestRiskScoreAveragesTheThreeFactors(t *testing.T) {
	q := Query{Urgency: 0.9, EmotionalLoad: 0.6, Fatigue: 0.3}
	assert.InDelta(t, 0.6, RiskScore(q), 0.0001)
}
