package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/Arjun3125/Sovereign/internal/domain"
)

// Thresholds not pinned down by spec.md's prose, resolved here as explicit
// constants so detection is deterministic and documented rather than left
// as an unstated magic number.
const (
	// MinPatternFrequency is the minimum occurrence count spec.md §4.6
	// requires for any pattern.
	MinPatternFrequency = 2
	// HighUrgencyThreshold marks an event as "high-urgency" for
	// war_false_urgency_loop.
	HighUrgencyThreshold = 0.7
	// HighEmotionalLoadThreshold is spec.md §4.6's emotional_loop cutoff.
	HighEmotionalLoadThreshold = 0.6
	// OutcomePatternMinSamples is spec.md §4.6's outcome_pattern floor.
	OutcomePatternMinSamples = 3
	// OutcomeDominanceThreshold is spec.md §4.6's outcome_pattern
	// "≥70% identical result" cutoff.
	OutcomeDominanceThreshold = 0.7
	// EscalationDamageThreshold is spec.md §4.6's war_escalation_bias
	// average-damage cutoff.
	EscalationDamageThreshold = 0.3
)

// escalationPostures names which N posture values count as "escalation"
// for war_escalation_bias: both a tribunal ABORT and a tribunal ESCALATE
// map to the halt posture (see debate.postureFromDecision), so both are
// escalation signals in a war context.
var escalationPostures = map[string]bool{"halt": true, "escalate": true}

// DetectPatterns runs every detector kind against the full event/outcome
// history. Every detector is a pure function of its input, re-runnable
// against a wider event set without needing prior pattern state.
func DetectPatterns(events []domain.DecisionEvent, outcomes map[string]domain.Outcome) []domain.Pattern {
	var patterns []domain.Pattern
	patterns = append(patterns, detectRepetitionLoop(events)...)
	patterns = append(patterns, detectOverrideLoop(events, false)...)
	patterns = append(patterns, detectOverrideLoop(events, true)...)
	patterns = append(patterns, detectEmotionalLoop(events)...)
	patterns = append(patterns, detectOutcomePattern(events, outcomes)...)
	patterns = append(patterns, detectWarEscalationBias(events, outcomes)...)
	patterns = append(patterns, detectWarFalseUrgencyLoop(events, outcomes)...)
	sortPatterns(patterns)
	return patterns
}

func sortPatterns(patterns []domain.Pattern) {
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].PatternId < patterns[j].PatternId })
}

func patternID(kind domain.PatternKind, dom domain.Domain) string {
	return fmt.Sprintf("%s:%s", kind, dom)
}

// detectRepetitionLoop finds (domain, illusion) pairs that recur at least
// MinPatternFrequency times.
func detectRepetitionLoop(events []domain.DecisionEvent) []domain.Pattern {
	type key struct {
		dom      domain.Domain
		illusion string
	}
	counts := make(map[key]int)
	latest := make(map[key]time.Time)
	for _, e := range events {
		for _, illusion := range e.IllusionsDetected {
			k := key{e.Domain, illusion}
			counts[k]++
			if e.Timestamp.After(latest[k]) {
				latest[k] = e.Timestamp
			}
		}
	}

	var patterns []domain.Pattern
	for k, n := range counts {
		if n < MinPatternFrequency {
			continue
		}
		dom := k.dom
		patterns = append(patterns, domain.Pattern{
			PatternId:   fmt.Sprintf("%s:%s:%s", domain.PatternRepetitionLoop, dom, k.illusion),
			Kind:        domain.PatternRepetitionLoop,
			Description: fmt.Sprintf("illusion %q recurred %d times in domain %s", k.illusion, n, dom),
			Domain:      &dom,
			Frequency:   n,
			LastSeen:    latest[k],
		})
	}
	return patterns
}

// detectOverrideLoop finds domains where the sovereign ignored counsel at
// least MinPatternFrequency times. warOnly restricts to war-mode events,
// producing war_repeated_overrides instead of override_loop.
func detectOverrideLoop(events []domain.DecisionEvent, warOnly bool) []domain.Pattern {
	kind := domain.PatternOverrideLoop
	if warOnly {
		kind = domain.PatternWarRepeatedOverrides
	}

	counts := make(map[domain.Domain]int)
	latest := make(map[domain.Domain]time.Time)
	for _, e := range events {
		if warOnly && e.Mode != domain.ModeWar {
			continue
		}
		if e.ActionFollowedCounsel == nil || *e.ActionFollowedCounsel {
			continue
		}
		counts[e.Domain]++
		if e.Timestamp.After(latest[e.Domain]) {
			latest[e.Domain] = e.Timestamp
		}
	}

	var patterns []domain.Pattern
	for dom, n := range counts {
		if n < MinPatternFrequency {
			continue
		}
		dom := dom
		patterns = append(patterns, domain.Pattern{
			PatternId:   patternID(kind, dom),
			Kind:        kind,
			Description: fmt.Sprintf("sovereign overrode counsel %d times in domain %s", n, dom),
			Domain:      &dom,
			Frequency:   n,
			LastSeen:    latest[dom],
		})
	}
	return patterns
}

// detectEmotionalLoop finds domains with at least MinPatternFrequency
// events above HighEmotionalLoadThreshold.
func detectEmotionalLoop(events []domain.DecisionEvent) []domain.Pattern {
	counts := make(map[domain.Domain]int)
	latest := make(map[domain.Domain]time.Time)
	for _, e := range events {
		if e.EmotionalLoad <= HighEmotionalLoadThreshold {
			continue
		}
		counts[e.Domain]++
		if e.Timestamp.After(latest[e.Domain]) {
			latest[e.Domain] = e.Timestamp
		}
	}

	var patterns []domain.Pattern
	for dom, n := range counts {
		if n < MinPatternFrequency {
			continue
		}
		dom := dom
		patterns = append(patterns, domain.Pattern{
			PatternId:   patternID(domain.PatternEmotionalLoop, dom),
			Kind:        domain.PatternEmotionalLoop,
			Description: fmt.Sprintf("%d events above emotional load %.2f in domain %s", n, HighEmotionalLoadThreshold, dom),
			Domain:      &dom,
			Frequency:   n,
			LastSeen:    latest[dom],
		})
	}
	return patterns
}

// detectOutcomePattern finds domains with at least OutcomePatternMinSamples
// resolved events where one Result dominates at or above
// OutcomeDominanceThreshold.
func detectOutcomePattern(events []domain.DecisionEvent, outcomes map[string]domain.Outcome) []domain.Pattern {
	byDomain := make(map[domain.Domain][]domain.Result)
	latest := make(map[domain.Domain]time.Time)
	for _, e := range events {
		o, ok := outcomes[e.EventId]
		if !ok {
			continue
		}
		byDomain[e.Domain] = append(byDomain[e.Domain], o.Result)
		if e.Timestamp.After(latest[e.Domain]) {
			latest[e.Domain] = e.Timestamp
		}
	}

	var patterns []domain.Pattern
	for dom, results := range byDomain {
		if len(results) < OutcomePatternMinSamples {
			continue
		}
		counts := make(map[domain.Result]int)
		for _, r := range results {
			counts[r]++
		}
		var dominant domain.Result
		best := 0
		for _, r := range []domain.Result{domain.ResultSuccess, domain.ResultPartial, domain.ResultFailure} {
			if counts[r] > best {
				best = counts[r]
				dominant = r
			}
		}
		fraction := float64(best) / float64(len(results))
		if fraction < OutcomeDominanceThreshold {
			continue
		}
		dom := dom
		dominantCopy := dominant
		patterns = append(patterns, domain.Pattern{
			PatternId:   patternID(domain.PatternOutcome, dom),
			Kind:        domain.PatternOutcome,
			Description: fmt.Sprintf("%.0f%% of %d events in domain %s resolved %s", fraction*100, len(results), dom, dominant),
			Domain:      &dom,
			Frequency:   len(results),
			LastSeen:    latest[dom],
			LastOutcome: &dominantCopy,
		})
	}
	return patterns
}

// detectWarEscalationBias finds domains with at least MinPatternFrequency
// war events whose posture escalated, and whose resolved average damage
// exceeds EscalationDamageThreshold.
func detectWarEscalationBias(events []domain.DecisionEvent, outcomes map[string]domain.Outcome) []domain.Pattern {
	type acc struct {
		count       int
		totalDamage float64
		nDamage     int
		latest      time.Time
	}
	byDomain := make(map[domain.Domain]*acc)
	for _, e := range events {
		if e.Mode != domain.ModeWar || !escalationPostures[e.Posture] {
			continue
		}
		a, ok := byDomain[e.Domain]
		if !ok {
			a = &acc{}
			byDomain[e.Domain] = a
		}
		a.count++
		if e.Timestamp.After(a.latest) {
			a.latest = e.Timestamp
		}
		if o, ok := outcomes[e.EventId]; ok {
			a.totalDamage += o.Damage
			a.nDamage++
		}
	}

	var patterns []domain.Pattern
	for dom, a := range byDomain {
		if a.count < MinPatternFrequency || a.nDamage == 0 {
			continue
		}
		avgDamage := a.totalDamage / float64(a.nDamage)
		if avgDamage <= EscalationDamageThreshold {
			continue
		}
		dom := dom
		patterns = append(patterns, domain.Pattern{
			PatternId:   patternID(domain.PatternWarEscalationBias, dom),
			Kind:        domain.PatternWarEscalationBias,
			Description: fmt.Sprintf("%d war escalations in domain %s, average damage %.2f", a.count, dom, avgDamage),
			Domain:      &dom,
			Frequency:   a.count,
			LastSeen:    a.latest,
		})
	}
	return patterns
}

// detectWarFalseUrgencyLoop finds domains with at least MinPatternFrequency
// high-urgency war events that resolved in failure.
func detectWarFalseUrgencyLoop(events []domain.DecisionEvent, outcomes map[string]domain.Outcome) []domain.Pattern {
	counts := make(map[domain.Domain]int)
	latest := make(map[domain.Domain]time.Time)
	for _, e := range events {
		if e.Mode != domain.ModeWar || e.Urgency <= HighUrgencyThreshold {
			continue
		}
		o, ok := outcomes[e.EventId]
		if !ok || o.Result != domain.ResultFailure {
			continue
		}
		counts[e.Domain]++
		if e.Timestamp.After(latest[e.Domain]) {
			latest[e.Domain] = e.Timestamp
		}
	}

	var patterns []domain.Pattern
	for dom, n := range counts {
		if n < MinPatternFrequency {
			continue
		}
		dom := dom
		patterns = append(patterns, domain.Pattern{
			PatternId:   patternID(domain.PatternWarFalseUrgencyLoop, dom),
			Kind:        domain.PatternWarFalseUrgencyLoop,
			Description: fmt.Sprintf("%d high-urgency war events in domain %s resolved failure", n, dom),
			Domain:      &dom,
			Frequency:   n,
			LastSeen:    latest[dom],
		})
	}
	return patterns
}
