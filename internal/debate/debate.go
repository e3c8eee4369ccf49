// Package debate implements the multi-minister debate orchestrator and
// tribunal (spec.md §4.4): independent minister positions, typed conflict
// detection, a priority-ordered tribunal verdict mapping, and final-verdict
// framing that only ever composes what ministers already produced.
// Grounded on the teacher's internal/debate multi-perspective-then-verdict
// shape (independent contributor calls fanned out via errgroup, merged by
// a single deterministic reducer) generalized from free-text critique
// rounds to the closed MinisterPosition/ConflictEvent/TribunalVerdict
// model spec.md defines.
package debate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/retrieval"
	"github.com/Arjun3125/Sovereign/internal/synthesis"
	"golang.org/x/sync/errgroup"
)

// StanceConflictThreshold is the confidence both parties must exceed for
// an ADVANCE/AVOID disagreement to count as a STANCE_CONFLICT.
const StanceConflictThreshold = 0.65

// stanceConflictHighThreshold: when both confidences exceed this, the
// conflict is escalated from MEDIUM to HIGH severity. Not named by
// spec.md's prose (which only says "MEDIUM or HIGH") — this resolves that
// open point deterministically rather than leaving severity unspecified.
const stanceConflictHighThreshold = 0.85

// MajorityFraction is the minimum share of positions that must agree on a
// stance for the framer to adopt it outright, absent a tribunal verdict.
const MajorityFraction = 2.0 / 3.0

// Engine runs one debate: retrieval + synthesis per minister, conflict
// detection, tribunal, and final-verdict framing.
type Engine struct {
	Retriever   *retrieval.Retriever
	Synthesizer *synthesis.Synthesizer
}

// ConductDebate produces a DebateProceedings for the given council and
// query. Every minister's position is produced independently and
// concurrently; the result is a pure function of the resulting set,
// invariant under permutation of ministers (spec.md §8 property 10).
func (e *Engine) ConductDebate(ctx context.Context, ministers []domain.MinisterId, query string, mode domain.Mode) (domain.DebateProceedings, error) {
	positions := make([]domain.MinisterPosition, len(ministers))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range ministers {
		i, m := i, m
		g.Go(func() error {
			retrieved, err := e.Retriever.RetrieveForMinister(gctx, m, query, 5, mode, nil)
			if err != nil {
				return fmt.Errorf("debate: retrieve for %s: %w", m, err)
			}
			pos, err := e.Synthesizer.Synthesize(gctx, m, query, retrieved)
			if err != nil {
				return fmt.Errorf("debate: synthesize for %s: %w", m, err)
			}
			positions[i] = pos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.DebateProceedings{}, err
	}

	conflicts := DetectConflicts(positions)
	var verdict *domain.TribunalVerdict
	if len(conflicts) > 0 {
		v := RunTribunal(positions, conflicts)
		verdict = &v
	}

	final, posture := FrameFinalVerdict(positions, verdict)
	return domain.DebateProceedings{
		Positions:       sortedCopy(positions),
		Conflicts:       conflicts,
		TribunalVerdict: verdict,
		FinalVerdict:    final,
		NPosture:        posture,
	}, nil
}

// sortedCopy returns positions in a canonical order (by minister id) so
// two debates over the same set, run with ministers in different order,
// produce byte-identical proceedings.
func sortedCopy(positions []domain.MinisterPosition) []domain.MinisterPosition {
	out := append([]domain.MinisterPosition(nil), positions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Minister < out[j].Minister })
	return out
}

// DetectConflicts scans positions for the four typed conflicts in
// spec.md §4.4. The result does not depend on the input order.
func DetectConflicts(positions []domain.MinisterPosition) []domain.ConflictEvent {
	var conflicts []domain.ConflictEvent

	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			a, b := positions[i], positions[j]
			if isAdvanceAvoidPair(a, b) && a.Confidence > StanceConflictThreshold && b.Confidence > StanceConflictThreshold {
				severity := domain.SeverityMedium
				if a.Confidence > stanceConflictHighThreshold && b.Confidence > stanceConflictHighThreshold {
					severity = domain.SeverityHigh
				}
				adv, avd := a.Minister, b.Minister
				if a.Stance == domain.StanceAvoid {
					adv, avd = b.Minister, a.Minister
				}
				conflicts = append(conflicts, domain.ConflictEvent{
					Kind:     domain.ConflictStance,
					Severity: severity,
					Parties:  orderedParties(a.Minister, b.Minister),
					Reason:   fmt.Sprintf("%s advances while %s avoids, both above the confidence threshold", adv, avd),
				})
			}
		}
	}

	for _, p := range positions {
		if p.Stance == domain.StanceStop && isVetoMinister(p.Minister) {
			conflicts = append(conflicts, domain.ConflictEvent{
				Kind:     domain.ConflictVeto,
				Severity: domain.SeverityHigh,
				Parties:  []domain.MinisterId{p.Minister},
				Reason:   fmt.Sprintf("%s vetoed", p.Minister),
			})
		}
		if len(p.Violations) > 0 {
			conflicts = append(conflicts, domain.ConflictEvent{
				Kind:     domain.ConflictFactualUncertainty,
				Severity: domain.SeverityHigh,
				Parties:  []domain.MinisterId{p.Minister},
				Reason:   fmt.Sprintf("%s reported unresolved violations", p.Minister),
			})
		}
	}

	riskMentionsIrreversibility := false
	for _, p := range positions {
		if p.Minister == domain.MinisterRisk && strings.Contains(strings.ToLower(p.Justification), "irreversib") {
			riskMentionsIrreversibility = true
			break
		}
	}
	if riskMentionsIrreversibility {
		for _, p := range positions {
			if p.Minister != domain.MinisterRisk && p.Stance == domain.StanceAdvance {
				conflicts = append(conflicts, domain.ConflictEvent{
					Kind:     domain.ConflictIrreversibility,
					Severity: domain.SeverityHigh,
					Parties:  orderedParties(domain.MinisterRisk, p.Minister),
					Reason:   fmt.Sprintf("risk flags irreversibility while %s advances", p.Minister),
				})
			}
		}
	}

	sortConflicts(conflicts)
	return conflicts
}

func isAdvanceAvoidPair(a, b domain.MinisterPosition) bool {
	return (a.Stance == domain.StanceAdvance && b.Stance == domain.StanceAvoid) ||
		(a.Stance == domain.StanceAvoid && b.Stance == domain.StanceAdvance)
}

func isVetoMinister(m domain.MinisterId) bool {
	return m == domain.MinisterRisk || m == domain.MinisterTruth || m == domain.MinisterOptionality
}

func orderedParties(a, b domain.MinisterId) []domain.MinisterId {
	if a < b {
		return []domain.MinisterId{a, b}
	}
	return []domain.MinisterId{b, a}
}

func sortConflicts(conflicts []domain.ConflictEvent) {
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Kind != conflicts[j].Kind {
			return conflicts[i].Kind < conflicts[j].Kind
		}
		return strings.Join(partyStrings(conflicts[i].Parties), ",") < strings.Join(partyStrings(conflicts[j].Parties), ",")
	})
}

func partyStrings(parties []domain.MinisterId) []string {
	out := make([]string, len(parties))
	for i, p := range parties {
		out[i] = string(p)
	}
	return out
}

// RunTribunal maps conflicts to a single verdict by the fixed priority
// order in spec.md §4.4 step 3.
func RunTribunal(positions []domain.MinisterPosition, conflicts []domain.ConflictEvent) domain.TribunalVerdict {
	byKind := make(map[domain.ConflictKind][]domain.ConflictEvent)
	for _, c := range conflicts {
		byKind[c.Kind] = append(byKind[c.Kind], c)
	}

	if factual := byKind[domain.ConflictFactualUncertainty]; hasHigh(factual) {
		var requiredData []string
		for _, p := range positions {
			if p.Minister == domain.MinisterTruth {
				requiredData = append(requiredData, p.Violations...)
			}
		}
		sort.Strings(requiredData)
		return domain.TribunalVerdict{
			Decision:     domain.DecisionDelayPendingData,
			RequiredData: requiredData,
			Reasoning:    "unresolved factual uncertainty requires additional data before proceeding",
		}
	}

	if veto := byKind[domain.ConflictVeto]; len(veto) > 0 {
		return domain.TribunalVerdict{
			Decision:  domain.DecisionAbort,
			Reasoning: "a veto-empowered minister issued STOP",
		}
	}

	if irrev := byKind[domain.ConflictIrreversibility]; len(irrev) > 0 {
		return domain.TribunalVerdict{
			Decision:  domain.DecisionEscalate,
			Reasoning: "an irreversible course of action was advanced despite a risk flag",
		}
	}

	if stance := byKind[domain.ConflictStance]; len(stance) > 0 {
		var constraints []string
		seen := make(map[string]bool)
		for _, p := range positions {
			for _, c := range p.Constraints {
				if !seen[c] {
					seen[c] = true
					constraints = append(constraints, c)
				}
			}
		}
		sort.Strings(constraints)
		return domain.TribunalVerdict{
			Decision:    domain.DecisionAllowWithConstraints,
			Constraints: constraints,
			Reasoning:   "stance conflict with confident parties on both sides resolved to a constrained allowance",
		}
	}

	return domain.TribunalVerdict{Decision: domain.DecisionSilence, Reasoning: "no actionable conflict pattern matched"}
}

func hasHigh(events []domain.ConflictEvent) bool {
	for _, e := range events {
		if e.Severity == domain.SeverityHigh {
			return true
		}
	}
	return false
}

// FrameFinalVerdict composes the final verdict text and N's posture line.
// It never invents strategy: with a tribunal verdict present it enforces
// that verdict's decision; otherwise it adopts the majority stance if at
// least MajorityFraction of positions agree, else CONDITIONAL.
func FrameFinalVerdict(positions []domain.MinisterPosition, verdict *domain.TribunalVerdict) (string, string) {
	if verdict != nil {
		return frameFromTribunal(*verdict), postureFromDecision(verdict.Decision)
	}

	stance, fraction := majorityStance(positions)
	if fraction >= MajorityFraction {
		return fmt.Sprintf("the council recommends %s", stance), "aligned"
	}
	return "the council is divided: CONDITIONAL, proceed only with explicit safeguards", "divided"
}

func frameFromTribunal(v domain.TribunalVerdict) string {
	switch v.Decision {
	case domain.DecisionSilence:
		return "no action recommended: the council found no actionable conflict warranting further intervention"
	case domain.DecisionDelayPendingData:
		return fmt.Sprintf("delay pending data: %s", strings.Join(v.RequiredData, "; "))
	case domain.DecisionAllowWithConstraints:
		return fmt.Sprintf("allow with constraints: %s", strings.Join(v.Constraints, "; "))
	case domain.DecisionEscalate:
		return "escalate: the tribunal found an irreversible action advanced against a risk flag"
	case domain.DecisionAbort:
		return "abort: a veto-empowered minister issued STOP"
	default:
		return v.Reasoning
	}
}

func postureFromDecision(d domain.TribunalDecision) string {
	switch d {
	case domain.DecisionAbort, domain.DecisionEscalate:
		return "halt"
	case domain.DecisionDelayPendingData:
		return "gather-data"
	case domain.DecisionAllowWithConstraints:
		return "cautious-advance"
	default:
		return "silent"
	}
}

func majorityStance(positions []domain.MinisterPosition) (domain.Stance, float64) {
	if len(positions) == 0 {
		return domain.StanceAbstain, 0
	}
	counts := make(map[domain.Stance]int)
	for _, p := range positions {
		counts[p.Stance]++
	}
	var best domain.Stance
	bestCount := 0
	// Iterate stances in a fixed order so ties break deterministically.
	for _, s := range []domain.Stance{
		domain.StanceAdvance, domain.StanceConditional, domain.StanceDelay,
		domain.StanceAvoid, domain.StanceNeedsData, domain.StanceAbstain, domain.StanceStop,
	} {
		if counts[s] > bestCount {
			bestCount = counts[s]
			best = s
		}
	}
	return best, float64(bestCount) / float64(len(positions))
}
