package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Arjun3125/Sovereign/internal/config"
	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/ledger"
	"github.com/Arjun3125/Sovereign/internal/router"
	"github.com/Arjun3125/Sovereign/internal/war"
	"github.com/google/uuid"
)

func runCounsel(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "counsel: missing mode (quick|normal|war)")
		return 2
	}
	mode := domain.Mode(args[0])
	if mode != domain.ModeQuick && mode != domain.ModeNormal && mode != domain.ModeWar {
		fmt.Fprintf(os.Stderr, "counsel: unknown mode %q\n", args[0])
		return 2
	}

	fs := flag.NewFlagSet("counsel", flag.ContinueOnError)
	domainFlag := fs.String("domain", "", "doctrine domain this decision falls under")
	stakes := fs.String("stakes", "", "free-text description of what is at stake")
	urgency := fs.Float64("urgency", 0, "urgency, 0.0-1.0")
	emotionalLoad := fs.Float64("emotional-load", 0, "emotional load, 0.0-1.0")
	fatigue := fs.Float64("fatigue", 0, "decision fatigue, 0.0-1.0")
	arena := fs.String("arena", "", "war-mode arena (required for war)")
	reversibility := fs.String("reversibility", "", "reversible|partially_reversible|irreversible (required for war)")
	constraintsFlag := fs.String("constraints", "", "comma-separated hard constraints")
	analyzePatterns := fs.Bool("analyze-patterns", false, "print recurring patterns for this domain after the verdict")
	logMemory := fs.Bool("log-memory", false, "append this decision to the ledger and print its event_id")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	if *domainFlag == "" {
		fmt.Fprintln(os.Stderr, "counsel: --domain is required")
		return 2
	}
	dom := domain.Domain(*domainFlag)
	if !dom.Valid() {
		fmt.Fprintf(os.Stderr, "counsel: invalid domain %q\n", *domainFlag)
		return 2
	}
	if mode == domain.ModeWar {
		if *arena == "" || *reversibility == "" {
			fmt.Fprintln(os.Stderr, "counsel: war mode requires --arena and --reversibility")
			return 2
		}
		switch domain.Reversibility(*reversibility) {
		case domain.Reversible, domain.PartiallyReversible, domain.Irreversible:
		default:
			fmt.Fprintf(os.Stderr, "counsel: invalid --reversibility %q\n", *reversibility)
			return 2
		}
	}

	fmt.Fprintln(os.Stderr, "Describe the situation (end with EOF / Ctrl-D):")
	situation, err := readSituation(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "counsel: reading situation: %v\n", err)
		return 2
	}
	if strings.TrimSpace(situation) == "" {
		fmt.Fprintln(os.Stderr, "counsel: situation description must not be empty")
		return 2
	}

	var constraints []string
	if *constraintsFlag != "" {
		constraints = strings.Split(*constraintsFlag, ",")
	}

	cfg := config.FromEnv()
	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "counsel: %v\n", err)
		return 1
	}
	defer a.close()

	q := router.Query{
		Domain:        dom,
		Text:          situation,
		Stakes:        *stakes,
		Urgency:       *urgency,
		EmotionalLoad: *emotionalLoad,
		Fatigue:       *fatigue,
		Constraints:   constraints,
		Goal:          situation,
		Arena:         *arena,
		Reversibility: *reversibility,
		DomainTags:    map[domain.Domain]bool{dom: true},
		Books:         a.booksForWar(),
	}

	handler, err := a.router.Dispatch(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "counsel: %v\n", err)
		return 2
	}

	verdict, err := handler(a.ctx, q)
	if err != nil {
		var blocked *war.ErrBlocked
		if errors.As(err, &blocked) {
			fmt.Printf("BLOCKED: %v\n", err)
			return 3
		}
		fmt.Fprintf(os.Stderr, "counsel: %v\n", err)
		return 1
	}

	printVerdict(verdict)

	eventID := ""
	if *logMemory {
		eventID = uuid.NewString()
		event := eventFromVerdict(eventID, dom, *stakes, *urgency, *emotionalLoad, mode, verdict)
		if err := a.ledger.AppendEvent(a.ctx, event); err != nil {
			fmt.Fprintf(os.Stderr, "counsel: failed to log memory: %v\n", err)
			return 1
		}
		fmt.Printf("event_id: %s\n", eventID)
	}

	if *analyzePatterns {
		printPatternsForDomain(a, dom)
	}

	return 0
}

func readSituation(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printVerdict(v router.Verdict) {
	fmt.Printf("mode: %s", v.Mode)
	if v.Escalated {
		fmt.Print(" (escalated from quick)")
	}
	fmt.Println()

	switch {
	case v.Debate != nil:
		printDebate(*v.Debate)
	case v.War != nil:
		printWar(*v.War)
	}
}

func printDebate(d domain.DebateProceedings) {
	for _, pos := range d.Positions {
		fmt.Printf("  [%s] %s (confidence %.2f): %s\n", pos.Minister, pos.Stance, pos.Confidence, pos.Justification)
		if len(pos.Violations) > 0 {
			fmt.Printf("    violations: %s\n", strings.Join(pos.Violations, "; "))
		}
	}
	if len(d.Conflicts) > 0 {
		fmt.Printf("  conflicts detected: %d\n", len(d.Conflicts))
	}
	if d.TribunalVerdict != nil {
		fmt.Printf("  tribunal decision: %s — %s\n", d.TribunalVerdict.Decision, d.TribunalVerdict.Reasoning)
	}
	fmt.Printf("  verdict: %s\n", d.FinalVerdict)
	if d.NPosture != "" {
		fmt.Printf("  posture: %s\n", d.NPosture)
	}
}

func printWar(r war.Result) {
	fmt.Printf("  council: %s\n", ministerList(r.Council.Selected))
	for _, b := range r.Books {
		fmt.Printf("  book %s scored %.3f\n", b.BookId, b.Score)
	}
	printDebate(r.Debate)
	for minister, f := range r.Filtered {
		if f.WasFiltered {
			fmt.Printf("  [%s] filtered speech: %s\n", minister, f.Filtered)
		}
	}
	fmt.Printf("  risk: %s — %s\n", r.RiskAssessment.Level, r.RiskAssessment.Description)
	for _, m := range r.RiskAssessment.Mitigations {
		fmt.Printf("    mitigation: %s\n", m)
	}
}

func ministerList(ministers []domain.MinisterId) string {
	names := make([]string, len(ministers))
	for i, m := range ministers {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func eventFromVerdict(eventID string, dom domain.Domain, stakes string, urgency, emotionalLoad float64, mode domain.Mode, v router.Verdict) domain.DecisionEvent {
	event := domain.DecisionEvent{
		EventId:       eventID,
		Domain:        dom,
		Stakes:        stakes,
		EmotionalLoad: emotionalLoad,
		Urgency:       urgency,
		Mode:          mode,
	}

	switch {
	case v.Debate != nil:
		fillEventFromDebate(&event, *v.Debate)
	case v.War != nil:
		event.MinistersCalled = v.War.Council.Selected
		fillEventFromDebate(&event, v.War.Debate)
	}
	return event
}

func fillEventFromDebate(event *domain.DecisionEvent, d domain.DebateProceedings) {
	if event.MinistersCalled == nil {
		for _, pos := range d.Positions {
			event.MinistersCalled = append(event.MinistersCalled, pos.Minister)
		}
	}
	event.VerdictSummary = d.FinalVerdict
	event.ContradictionsFound = len(d.Conflicts)
	if d.TribunalVerdict != nil {
		event.Posture = string(d.TribunalVerdict.Decision)
	}
}

func printPatternsForDomain(a *app, dom domain.Domain) {
	events, err := a.ledger.Events(a.ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "counsel: loading events for pattern analysis: %v\n", err)
		return
	}
	outcomes, err := a.ledger.Outcomes(a.ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "counsel: loading outcomes for pattern analysis: %v\n", err)
		return
	}
	patterns := ledger.DetectPatterns(events, outcomes)
	found := false
	for _, p := range patterns {
		if p.Domain != nil && *p.Domain == dom {
			found = true
			fmt.Printf("  pattern: %s (%s, seen %dx): %s\n", p.PatternId, p.Kind, p.Frequency, p.Description)
		}
	}
	if !found {
		fmt.Println("  no recurring patterns detected for this domain")
	}
}
