package domain

import "time"

// Result is the closed set of outcome results.
type Result string

const (
	ResultSuccess Result = "success"
	ResultPartial Result = "partial"
	ResultFailure Result = "failure"
)

// DecisionEvent is an append-only ledger row written at counsel time. It is
// never modified after creation — the ledger enforces this at the storage
// layer, not here.
type DecisionEvent struct {
	EventId               string
	Timestamp             time.Time
	Domain                Domain
	Stakes                string
	EmotionalLoad         float64
	Urgency               float64
	MinistersCalled       []MinisterId
	VerdictSummary        string
	Posture               string
	IllusionsDetected     []string
	ContradictionsFound   int
	SovereignAction       string
	ActionFollowedCounsel *bool
	OverrideReason        string
	Mode                  Mode
}

// Outcome is the at-most-one-per-event resolution of a DecisionEvent.
type Outcome struct {
	EventId    string
	ResolvedAt time.Time
	Result     Result
	Damage     float64
	Benefit    float64
	Lessons    []string
}

// PatternKind is the closed set of pattern detector kinds, per spec.md
// §4.6.
type PatternKind string

const (
	PatternRepetitionLoop      PatternKind = "repetition_loop"
	PatternOverrideLoop        PatternKind = "override_loop"
	PatternEmotionalLoop       PatternKind = "emotional_loop"
	PatternOutcome             PatternKind = "outcome_pattern"
	PatternWarEscalationBias   PatternKind = "war_escalation_bias"
	PatternWarFalseUrgencyLoop PatternKind = "war_false_urgency_loop"
	PatternWarRepeatedOverrides PatternKind = "war_repeated_overrides"
)

// Pattern is a derived, rebuildable signal over the ledger. Never
// authoritative on its own — it is calibration's input.
type Pattern struct {
	PatternId   string
	Kind        PatternKind
	Description string
	Domain      *Domain
	Frequency   int
	LastSeen    time.Time
	LastOutcome *Result
}

// Calibration is a per-subject (minister id or "n"), per-domain confidence
// and posture multiplier set, adjusted in bounded steps from patterns.
type Calibration struct {
	Subject    string // MinisterId string form, or "n"
	Domain     Domain
	Confidence float64
	Caution    float64
	UrgencyThreshold float64
	Bluntness  float64
	UpdatedAt  time.Time
}

// NewCalibration returns the documented starting point: confidence 0.50,
// neutral multipliers.
func NewCalibration(subject string, dom Domain) Calibration {
	return Calibration{
		Subject:          subject,
		Domain:           dom,
		Confidence:       0.50,
		Caution:          1.0,
		UrgencyThreshold: 1.0,
		Bluntness:        1.0,
		UpdatedAt:        time.Time{},
	}
}
