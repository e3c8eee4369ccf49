package war

import (
	"sort"

	"github.com/Arjun3125/Sovereign/internal/domain"
)

// MinCouncilSize and MaxCouncilSize bound the war council per spec.md
// §4.5's hard rule and §8 property 13.
const (
	MinCouncilSize = 3
	MaxCouncilSize = 5
)

// preferredMinisters is the leverage-heavy tier, always included first.
var preferredMinisters = []domain.MinisterId{
	domain.MinisterPower, domain.MinisterPsychology, domain.MinisterConflict,
	domain.MinisterIntelligence, domain.MinisterNarrative, domain.MinisterTiming,
	domain.MinisterOptionality, domain.MinisterTruth, domain.MinisterRisk,
}

// conditionalMinisters are included only if their domain is among the
// query's domain tags and room remains.
var conditionalMinisters = []domain.MinisterId{
	domain.MinisterLegitimacy, domain.MinisterTechnology, domain.MinisterData, domain.MinisterOperations,
}

// deprioritizedMinisters are excluded unless needed to reach the minimum
// council size.
var deprioritizedMinisters = []domain.MinisterId{
	domain.MinisterDiplomacy, domain.MinisterDiscipline, domain.MinisterAdaptation,
}

// ministerDomain names the single domain each conditional minister is
// gated on, per spec.md §4.5. The deprioritized ministers have entries too,
// but SelectCouncil does not consult them: a deprioritized minister is
// seated only as backfill toward MinCouncilSize, whatever the domain tags.
var ministerDomain = map[domain.MinisterId]domain.Domain{
	domain.MinisterLegitimacy: domain.DomainLaw,
	domain.MinisterTechnology: domain.DomainResources,
	domain.MinisterData:       domain.DomainIntelligence,
	domain.MinisterOperations: domain.DomainOrganization,
	domain.MinisterDiplomacy:  domain.DomainDiplomacy,
	domain.MinisterDiscipline: domain.DomainLeadership,
	domain.MinisterAdaptation: domain.DomainAdaptation,
}

// preferredMinisterDomain names the domain each leverage-tier minister is
// gated on, mirroring original_source/core/orchestrator/
// war_minister_selector.py's _relevant() check applied to its own
// "preferred" tier, not just the conditional one. Narrative, Optionality
// and Truth have no matching entry in the fifteen-domain enum, and Risk is
// left out of this map although DomainRisk exists, so isPreferredRelevant
// treats all four as always relevant leverage voices — the same way Truth
// and Risk are unconditional guardrails.
var preferredMinisterDomain = map[domain.MinisterId]domain.Domain{
	domain.MinisterPower:        domain.DomainPower,
	domain.MinisterPsychology:   domain.DomainPsychology,
	domain.MinisterConflict:     domain.DomainConflict,
	domain.MinisterIntelligence: domain.DomainIntelligence,
	domain.MinisterTiming:       domain.DomainTiming,
}

// isPreferredRelevant reports whether a preferred-tier minister's mapped
// domain is present in the query's domain tags. A minister with no mapped
// domain is always relevant.
func isPreferredRelevant(m domain.MinisterId, domainTags map[domain.Domain]bool) bool {
	d, ok := preferredMinisterDomain[m]
	if !ok {
		return true
	}
	return domainTags[d]
}

// CouncilAudit records how a council was assembled, per spec.md §4.5.
type CouncilAudit struct {
	Selected         []domain.MinisterId
	LeverageCount    int
	SoftCount        int
	GuardrailsPresent bool
}

// SelectCouncil is a pure function of the query's domain tags: the same
// tag set always produces the same council (spec.md §8 property 13,
// scenario S5). Truth and Risk are seated first as the hard rule
// requires; the rest of the preferred tier is gated by domain relevance
// exactly like the conditional tier is, mirroring
// war_minister_selector.py's _relevant() check — without this gate the
// first three preferred ministers alone exhaust MaxCouncilSize on every
// input and conditional ministers could never be seated. If relevance
// still leaves the council under the minimum, the fallback fills first
// from the rest of the preferred tier regardless of relevance (the
// original's own step 4), and only then from the deprioritized tier, per
// spec.md's "excluded unless needed to reach the minimum".
func SelectCouncil(domainTags map[domain.Domain]bool) CouncilAudit {
	selected := make(map[domain.MinisterId]bool, MaxCouncilSize)
	var ordered []domain.MinisterId

	add := func(m domain.MinisterId) bool {
		if selected[m] || len(ordered) >= MaxCouncilSize {
			return false
		}
		selected[m] = true
		ordered = append(ordered, m)
		return true
	}

	add(domain.MinisterTruth)
	add(domain.MinisterRisk)

	for _, m := range preferredMinisters {
		if isPreferredRelevant(m, domainTags) {
			add(m)
		}
	}
	leverageCount := len(ordered)

	for _, m := range conditionalMinisters {
		if domainTags[ministerDomain[m]] {
			add(m)
		}
	}

	// Fall back to the rest of the preferred tier, regardless of
	// relevance, before ever reaching for a deprioritized minister.
	for _, m := range preferredMinisters {
		if len(ordered) >= MinCouncilSize {
			break
		}
		add(m)
	}

	// Backfill from the deprioritized tier only if still under the
	// minimum after the preferred-tier fallback.
	for _, m := range deprioritizedMinisters {
		if len(ordered) >= MinCouncilSize {
			break
		}
		add(m)
	}

	sort.Slice(ordered, func(i, j int) bool {
		return ministerRank(ordered[i]) < ministerRank(ordered[j])
	})

	softCount := len(ordered) - leverageCount
	if softCount < 0 {
		softCount = 0
	}

	return CouncilAudit{
		Selected:          ordered,
		LeverageCount:     leverageCount,
		SoftCount:         softCount,
		GuardrailsPresent: selected[domain.MinisterTruth] && selected[domain.MinisterRisk],
	}
}

// ministerRank orders a council's display order preferred-then-
// conditional-then-deprioritized, matching the tiers' declaration order.
func ministerRank(m domain.MinisterId) int {
	for i, x := range preferredMinisters {
		if x == m {
			return i
		}
	}
	base := len(preferredMinisters)
	for i, x := range conditionalMinisters {
		if x == m {
			return base + i
		}
	}
	base += len(conditionalMinisters)
	for i, x := range deprioritizedMinisters {
		if x == m {
			return base + i
		}
	}
	return base + len(deprioritizedMinisters)
}
