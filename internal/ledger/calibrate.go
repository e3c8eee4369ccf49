package ledger

import (
	"time"

	"github.com/Arjun3125/Sovereign/internal/domain"
)

// Calibration bounds from spec.md §4.6: a single pattern can move a
// multiplier but never past its floor or ceiling.
const (
	CautionFactor  = 0.7
	CautionFloor   = 0.3
	UrgencyFactor  = 1.5
	UrgencyCeiling = 3.0
	BluntnessFactor  = 1.3
	BluntnessCeiling = 2.0
)

// Calibrate applies every pattern's bounded multiplicative update to prior,
// per pattern kind, for the given subject/domain. Patterns for other
// domains, or belonging to a different subject's scope, do not affect this
// calibration; the caller is expected to call Calibrate once per
// (subject, domain) pair that the pattern set actually touches.
func Calibrate(prior domain.Calibration, patterns []domain.Pattern, updatedAt time.Time) domain.Calibration {
	next := prior
	for _, p := range patterns {
		if p.Domain == nil || *p.Domain != prior.Domain {
			continue
		}
		switch p.Kind {
		case domain.PatternWarEscalationBias:
			next.Caution = maxFloat(next.Caution*CautionFactor, CautionFloor)
		case domain.PatternWarFalseUrgencyLoop:
			next.UrgencyThreshold = minFloat(next.UrgencyThreshold*UrgencyFactor, UrgencyCeiling)
		case domain.PatternWarRepeatedOverrides:
			next.Bluntness = minFloat(next.Bluntness*BluntnessFactor, BluntnessCeiling)
		}
	}
	next.UpdatedAt = updatedAt
	return next
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
