package main

import (
	"strings"
	"testing"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/router"
	"github.com/Arjun3125/Sovereign/internal/war"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSituationReturnsFullStreamContents(t *testing.T) {
	got, err := readSituation(strings.NewReader("the northern arena is contested\n"))
	require.NoError(t, err)
	assert.Equal(t, "the northern arena is contested\n", got)
}

func TestMinisterListJoinsWithCommaSpace(t *testing.T) {
	got := ministerList([]domain.MinisterId{domain.MinisterRisk, domain.MinisterTruth})
	assert.Equal(t, "risk, truth", got)
}

func TestMinisterListEmptyIsEmptyString(t *testing.T) {
	assert.Equal(t, "", ministerList(nil))
}

func TestFillEventFromDebateDerivesMinistersWhenUnset(t *testing.T) {
	event := &domain.DecisionEvent{}
	d := domain.DebateProceedings{
		Positions: []domain.MinisterPosition{
			{Minister: domain.MinisterRisk, Stance: "ADVANCE", Confidence: 0.7},
			{Minister: domain.MinisterTruth, Stance: "HOLD", Confidence: 0.4},
		},
		FinalVerdict: "proceed with caution",
		TribunalVerdict: &domain.TribunalVerdict{
			Decision:  domain.DecisionAllowWithConstraints,
			Reasoning: "risk is contained",
		},
	}
	fillEventFromDebate(event, d)

	assert.Equal(t, []domain.MinisterId{domain.MinisterRisk, domain.MinisterTruth}, event.MinistersCalled)
	assert.Equal(t, "proceed with caution", event.VerdictSummary)
	assert.Equal(t, string(domain.DecisionAllowWithConstraints), event.Posture)
	assert.Equal(t, 0, event.ContradictionsFound)
}

func TestFillEventFromDebateKeepsPresetMinistersCalled(t *testing.T) {
	event := &domain.DecisionEvent{MinistersCalled: []domain.MinisterId{domain.MinisterLegitimacy}}
	d := domain.DebateProceedings{
		Positions: []domain.MinisterPosition{{Minister: domain.MinisterRisk}},
	}
	fillEventFromDebate(event, d)
	assert.Equal(t, []domain.MinisterId{domain.MinisterLegitimacy}, event.MinistersCalled)
}

func TestFillEventFromDebateCountsConflicts(t *testing.T) {
	event := &domain.DecisionEvent{}
	d := domain.DebateProceedings{
		Conflicts: []domain.ConflictEvent{
			{Reason: "risk vs strategy disagree"},
			{Reason: "truth vs strategy disagree"},
		},
	}
	fillEventFromDebate(event, d)
	assert.Equal(t, 2, event.ContradictionsFound)
}

func TestEventFromVerdictUsesDebateWhenPresent(t *testing.T) {
	v := router.Verdict{
		Mode: domain.ModeQuick,
		Debate: &domain.DebateProceedings{
			Positions:    []domain.MinisterPosition{{Minister: domain.MinisterRisk}},
			FinalVerdict: "hold",
		},
	}
	event := eventFromVerdict("evt-1", domain.DomainConflict, "throne succession", 0.4, 0.2, domain.ModeQuick, v)

	assert.Equal(t, "evt-1", event.EventId)
	assert.Equal(t, domain.DomainConflict, event.Domain)
	assert.Equal(t, "hold", event.VerdictSummary)
	assert.Equal(t, domain.ModeQuick, event.Mode)
}

func TestEventFromVerdictUsesWarResultWhenPresent(t *testing.T) {
	v := router.Verdict{
		Mode: domain.ModeWar,
		War: &war.Result{
			Council: war.CouncilAudit{Selected: []domain.MinisterId{domain.MinisterRisk, domain.MinisterOperations}},
			Debate:  domain.DebateProceedings{FinalVerdict: "commit reserves"},
		},
	}
	event := eventFromVerdict("evt-2", domain.DomainConflict, "border incursion", 0.9, 0.6, domain.ModeWar, v)

	assert.Equal(t, []domain.MinisterId{domain.MinisterRisk, domain.MinisterOperations}, event.MinistersCalled)
	assert.Equal(t, "commit reserves", event.VerdictSummary)
}
