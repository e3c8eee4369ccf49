package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Arjun3125/Sovereign/internal/config"
	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/ledger"
)

func runOutcome(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "outcome: missing event_id")
		return 2
	}
	eventID := args[0]

	fs := flag.NewFlagSet("outcome", flag.ContinueOnError)
	modeFlag := fs.String("mode", "", "quick|normal|war")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	switch domain.Mode(*modeFlag) {
	case domain.ModeQuick, domain.ModeNormal, domain.ModeWar:
	default:
		fmt.Fprintf(os.Stderr, "outcome: invalid --mode %q\n", *modeFlag)
		return 2
	}

	cfg := config.FromEnv()
	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 1
	}
	defer a.close()

	events, err := a.ledger.Events(a.ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 1
	}
	var target *domain.DecisionEvent
	for i := range events {
		if events[i].EventId == eventID {
			target = &events[i]
			break
		}
	}
	if target == nil {
		fmt.Fprintf(os.Stderr, "outcome: event_id %q not found\n", eventID)
		return 2
	}

	reader := bufio.NewReader(os.Stdin)
	result, err := promptResult(reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 2
	}
	damage, err := promptFloat(reader, "damage (0.0-1.0): ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 2
	}
	benefit, err := promptFloat(reader, "benefit (0.0-1.0): ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 2
	}
	lessons, err := promptLessons(reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 2
	}

	now := time.Now()
	outcome := domain.Outcome{
		EventId:    eventID,
		ResolvedAt: now,
		Result:     result,
		Damage:     damage,
		Benefit:    benefit,
		Lessons:    lessons,
	}
	if err := a.ledger.AppendOutcome(a.ctx, outcome); err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 1
	}

	events, err = a.ledger.Events(a.ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 1
	}
	outcomes, err := a.ledger.Outcomes(a.ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 1
	}
	patterns := ledger.DetectPatterns(events, outcomes)
	if err := a.ledger.SavePatterns(a.ctx, patterns); err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 1
	}

	prior, err := a.ledger.Calibration(a.ctx, "n", target.Domain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 1
	}
	next := ledger.Calibrate(prior, patterns, now)
	if err := a.ledger.SaveCalibration(a.ctx, next); err != nil {
		fmt.Fprintf(os.Stderr, "outcome: %v\n", err)
		return 1
	}

	printLearningSummary(target.Domain, patterns, prior, next)
	return 0
}

func promptResult(r *bufio.Reader) (domain.Result, error) {
	fmt.Print("result (success|partial|failure): ")
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	res := domain.Result(strings.TrimSpace(line))
	switch res {
	case domain.ResultSuccess, domain.ResultPartial, domain.ResultFailure:
		return res, nil
	default:
		return "", fmt.Errorf("invalid result %q", res)
	}
}

func promptFloat(r *bufio.Reader, prompt string) (float64, error) {
	fmt.Print(prompt)
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(line), 64)
}

func promptLessons(r *bufio.Reader) ([]string, error) {
	fmt.Print("lessons (comma-separated, optional): ")
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	return strings.Split(line, ","), nil
}

func printLearningSummary(dom domain.Domain, patterns []domain.Pattern, prior, next domain.Calibration) {
	fmt.Println("learning summary:")
	relevant := 0
	for _, p := range patterns {
		if p.Domain != nil && *p.Domain == dom {
			relevant++
			fmt.Printf("  pattern: %s (%s, seen %dx): %s\n", p.PatternId, p.Kind, p.Frequency, p.Description)
		}
	}
	if relevant == 0 {
		fmt.Println("  no recurring patterns detected for this domain")
	}
	changed := next.Confidence != prior.Confidence || next.Caution != prior.Caution ||
		next.UrgencyThreshold != prior.UrgencyThreshold || next.Bluntness != prior.Bluntness
	if changed {
		fmt.Printf("  calibration for %s adjusted: confidence %.2f -> %.2f, caution %.2f -> %.2f, urgency_threshold %.2f -> %.2f, bluntness %.2f -> %.2f\n",
			dom, prior.Confidence, next.Confidence, prior.Caution, next.Caution,
			prior.UrgencyThreshold, next.UrgencyThreshold, prior.Bluntness, next.Bluntness)
	} else {
		fmt.Println("  calibration unchanged")
	}
}
