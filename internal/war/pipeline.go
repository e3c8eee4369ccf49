package war

import (
	"context"
	"fmt"

	"github.com/Arjun3125/Sovereign/internal/debate"
	"github.com/Arjun3125/Sovereign/internal/domain"
)

// ErrBlocked is returned when the constraint gate halts a war query before
// any retrieval or debate has run.
type ErrBlocked struct {
	MatchedSignal string
}

func (e *ErrBlocked) Error() string {
	return fmt.Sprintf("war: goal blocked by constraint gate (matched %q)", e.MatchedSignal)
}

// Query is a single war-mode deliberation request.
type Query struct {
	Goal          string
	Domain        string
	DomainTags    map[domain.Domain]bool
	Reversibility string
	Urgency       float64
	EmotionalLoad float64
	Books         []domain.BookMetadata
}

// Result is the output of a full war-mode run: the council that sat, the
// books that were biased into retrieval, the debate proceedings, the
// filtered per-minister speeches keyed by minister id, and the risk
// assessment computed over the whole run.
type Result struct {
	Council        CouncilAudit
	Books          []ScoredBook
	Debate         domain.DebateProceedings
	Filtered       map[domain.MinisterId]FilterResult
	RiskAssessment RiskAssessment
}

// Pipeline wires the four war-mode gates around a debate engine: the
// constraint gate runs first and can halt the whole query before
// retrieval or debate ever start; council selection and book bias narrow
// what the debate engine sees; the speech filter runs last, over every
// minister's raw justification.
type Pipeline struct {
	Debate *debate.Engine
}

// Run executes one war-mode query end to end. If the constraint gate
// blocks the goal, no council is selected, no book is scored, and no
// retrieval or debate happens at all.
func (p *Pipeline) Run(ctx context.Context, q Query) (Result, error) {
	gate := ConstraintGate(GateInput{
		Goal:          q.Goal,
		Domain:        q.Domain,
		Reversibility: q.Reversibility,
		Urgency:       q.Urgency,
		EmotionalLoad: q.EmotionalLoad,
	})
	if gate.Feasibility == "blocked" {
		return Result{}, &ErrBlocked{MatchedSignal: gate.MatchedSignal}
	}

	council := SelectCouncil(q.DomainTags)
	scoredBooks := SelectBooks(q.Books)
	bookFilter := BookFilterFrom(scoredBooks)

	proceedings, err := p.runDebateWithBookFilter(ctx, council.Selected, q.Goal, bookFilter)
	if err != nil {
		return Result{}, fmt.Errorf("war: debate: %w", err)
	}

	filtered := make(map[domain.MinisterId]FilterResult, len(proceedings.Positions))
	for _, pos := range proceedings.Positions {
		filtered[pos.Minister] = FilterSpeech(pos.Minister, pos.Justification)
	}

	return Result{
		Council:        council,
		Books:          scoredBooks,
		Debate:         proceedings,
		Filtered:       filtered,
		RiskAssessment: AssessRisk(proceedings.Positions, filtered, gate),
	}, nil
}

// runDebateWithBookFilter conducts the debate over the selected council,
// scoping every minister's retrieval to the war-biased book set. The
// debate engine's own RetrieveForMinister call takes no book filter
// parameter for a plain ConductDebate, so war mode calls the retriever and
// synthesizer directly per minister instead of delegating to
// debate.Engine.ConductDebate.
func (p *Pipeline) runDebateWithBookFilter(ctx context.Context, ministers []domain.MinisterId, query string, bookFilter map[domain.BookId]bool) (domain.DebateProceedings, error) {
	positions := make([]domain.MinisterPosition, 0, len(ministers))
	for _, m := range ministers {
		retrieved, err := p.Debate.Retriever.RetrieveForMinister(ctx, m, query, 5, domain.ModeWar, bookFilter)
		if err != nil {
			return domain.DebateProceedings{}, fmt.Errorf("retrieve for %s: %w", m, err)
		}
		pos, err := p.Debate.Synthesizer.Synthesize(ctx, m, query, retrieved)
		if err != nil {
			return domain.DebateProceedings{}, fmt.Errorf("synthesize for %s: %w", m, err)
		}
		positions = append(positions, pos)
	}

	conflicts := debate.DetectConflicts(positions)
	var verdict *domain.TribunalVerdict
	if len(conflicts) > 0 {
		v := debate.RunTribunal(positions, conflicts)
		verdict = &v
	}
	final, posture := debate.FrameFinalVerdict(positions, verdict)

	return domain.DebateProceedings{
		Positions:       positions,
		Conflicts:       conflicts,
		TribunalVerdict: verdict,
		FinalVerdict:    final,
		NPosture:        posture,
	}, nil
}
