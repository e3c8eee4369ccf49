// Package router implements the mode dispatch table described in spec.md
// §4.7: given (mode, context) it selects the right pipeline and, for quick
// mode, decides whether the query needs escalating to normal. Grounded on
// the teacher's internal/router dispatch-table idiom (a map from a closed
// key set to a handler function), generalized here from HTTP route
// dispatch to deliberation-mode dispatch — no gin engine, no HTTP framing,
// since network service surfaces are out of scope for this module.
package router

import (
	"context"
	"fmt"

	"github.com/Arjun3125/Sovereign/internal/debate"
	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/war"
)

// QuickRiskThreshold is the internal risk score above which a quick-mode
// query is escalated to normal, per spec.md §4.7. Not pinned to a number
// by spec.md's prose; resolved here so escalation is deterministic.
const QuickRiskThreshold = 0.6

// QuickCouncil is the small, fixed council quick mode consults for a fast
// single-verdict answer — Risk and Truth only, the two ministers every
// mode seats unconditionally.
var QuickCouncil = []domain.MinisterId{domain.MinisterRisk, domain.MinisterTruth}

// NormalCouncil is the council normal mode consults absent any
// caller-supplied minister list: the full fifteen-plus-Adaptation roster,
// per spec.md §4.4's "normal mode seats every eligible minister".
var NormalCouncil = domain.AllMinisters

// Query is the caller-supplied context a mode handler acts on.
type Query struct {
	Domain        domain.Domain
	Text          string
	Stakes        string
	Urgency       float64
	EmotionalLoad float64
	Fatigue       float64
	Constraints   []string

	// War-only fields; required when Mode == domain.ModeWar.
	Goal          string
	Arena         string
	Reversibility string
	DomainTags    map[domain.Domain]bool
	Books         []domain.BookMetadata
}

// Verdict is a mode handler's uniform result: exactly one of Debate or War
// is set, depending on which pipeline ran.
type Verdict struct {
	Mode      domain.Mode
	Escalated bool
	Debate    *domain.DebateProceedings
	War       *war.Result
}

// Handler runs one deliberation over q.
type Handler func(ctx context.Context, q Query) (Verdict, error)

// ErrMissingWarFields is returned when war mode is requested without its
// required fields.
var ErrMissingWarFields = fmt.Errorf("war mode requires goal, arena, and reversibility")

// Router dispatches (mode, Query) to the pipeline that serves it.
type Router struct {
	Debate *debate.Engine
	War    *war.Pipeline
}

// Dispatch returns the handler for mode. Mode selection is the caller's
// responsibility — Dispatch never guesses a mode from Query content.
func (r *Router) Dispatch(mode domain.Mode) (Handler, error) {
	switch mode {
	case domain.ModeQuick:
		return r.handleQuick, nil
	case domain.ModeNormal:
		return r.handleNormal, nil
	case domain.ModeWar:
		return r.handleWar, nil
	default:
		return nil, fmt.Errorf("router: unknown mode %q", mode)
	}
}

// handleQuick runs the small fixed council; if the query's internal risk
// score exceeds QuickRiskThreshold, it escalates to normal mode instead of
// returning the quick verdict, per spec.md §4.7.
func (r *Router) handleQuick(ctx context.Context, q Query) (Verdict, error) {
	if RiskScore(q) > QuickRiskThreshold {
		v, err := r.handleNormal(ctx, q)
		v.Escalated = true
		return v, err
	}

	proceedings, err := r.Debate.ConductDebate(ctx, QuickCouncil, q.Text, domain.ModeQuick)
	if err != nil {
		return Verdict{}, fmt.Errorf("router: quick mode: %w", err)
	}
	return Verdict{Mode: domain.ModeQuick, Debate: &proceedings}, nil
}

func (r *Router) handleNormal(ctx context.Context, q Query) (Verdict, error) {
	proceedings, err := r.Debate.ConductDebate(ctx, NormalCouncil, q.Text, domain.ModeNormal)
	if err != nil {
		return Verdict{}, fmt.Errorf("router: normal mode: %w", err)
	}
	return Verdict{Mode: domain.ModeNormal, Debate: &proceedings}, nil
}

func (r *Router) handleWar(ctx context.Context, q Query) (Verdict, error) {
	if q.Goal == "" || q.Arena == "" || q.Reversibility == "" {
		return Verdict{}, ErrMissingWarFields
	}

	result, err := r.War.Run(ctx, war.Query{
		Goal:          q.Goal,
		Domain:        q.Arena,
		DomainTags:    q.DomainTags,
		Reversibility: q.Reversibility,
		Urgency:       q.Urgency,
		EmotionalLoad: q.EmotionalLoad,
		Books:         q.Books,
	})
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Mode: domain.ModeWar, War: &result}, nil
}

// RiskScore is quick mode's internal escalation signal: a query with high
// urgency, high emotional load, or high stakes fatigue is more likely to
// need the fuller normal-mode council. Weighted equally since spec.md
// names no per-factor weighting.
func RiskScore(q Query) float64 {
	return (q.Urgency + q.EmotionalLoad + q.Fatigue) / 3.0
}
