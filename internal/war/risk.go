package war

import (
	"fmt"

	"github.com/Arjun3125/Sovereign/internal/domain"
)

// Risk levels for RiskAssessment.Level, per
// original_source/core/war/war_engine.py's _assess_risk thresholds.
const (
	RiskLevelLow      = "LOW"
	RiskLevelMedium   = "MEDIUM"
	RiskLevelHigh     = "HIGH"
	RiskLevelCritical = "CRITICAL"
)

// standardMitigations is the fixed mitigation checklist attached to every
// war-mode risk assessment, unchanged from
// original_source/core/war/war_engine.py's _assess_risk.
var standardMitigations = []string{
	"monitor implementation closely",
	"be prepared to escalate or withdraw",
	"document all decisions and outcomes",
	"review suppressed advice after action completes",
}

// RiskAssessment summarizes how a war-mode run's council output should be
// treated by the operator: approved/suppressed/rejected counts rolled into
// a level, a human-readable description, and the standard mitigations.
// This is a deterministic function of the council's own output — never an
// LLM call.
type RiskAssessment struct {
	Level       string
	Description string
	Mitigations []string
}

// AssessRisk classifies a war-mode run's positions into approved,
// suppressed, and rejected, then buckets the counts into a level per
// original_source/core/war/war_engine.py's _assess_risk thresholds. A
// position is rejected if its stance was forced to STOP; suppressed if its
// speech carried a suppressed pattern the filter caught but didn't force a
// STOP over; approved otherwise. gate is folded into the description so
// the assessment reflects the constraint-gate outcome that let the run
// proceed at all — Run never calls AssessRisk when the gate blocks.
func AssessRisk(positions []domain.MinisterPosition, filtered map[domain.MinisterId]FilterResult, gate GateResult) RiskAssessment {
	var approved, suppressed, rejected int
	for _, pos := range positions {
		switch {
		case pos.Stance == domain.StanceStop:
			rejected++
		case filtered[pos.Minister].PatternsSuppressed > 0:
			suppressed++
		default:
			approved++
		}
	}

	var level string
	switch {
	case rejected > 2:
		level = RiskLevelCritical
	case suppressed > 3 || approved == 0:
		level = RiskLevelHigh
	case suppressed > 1:
		level = RiskLevelMedium
	default:
		level = RiskLevelLow
	}

	return RiskAssessment{
		Level: level,
		Description: fmt.Sprintf(
			"war mode (constraint gate: %s): %d approved, %d suppressed soft, %d rejected hard",
			gate.Feasibility, approved, suppressed, rejected,
		),
		Mitigations: append([]string(nil), standardMitigations...),
	}
}
