// Package war implements the four deterministic gates that make war mode
// a variant of the normal pipeline (spec.md §4.5): a constraint gate,
// biased council selection, biased book retrieval, and a speech filter.
// No LLM decides what gets filtered or selected — every gate here is a
// pure function of its input. Grounded on
// original_source/core/war/war_engine.py for the gate ordering and the
// forbidden-intent signal list, and on the teacher's
// internal/debate policy-table idiom for the fixed preferred/conditional/
// deprioritized minister structure.
package war

import "strings"

// forbiddenIntentSignals is the fixed list of phrase fragments that mark a
// goal as blocked outright. Matching is case-insensitive substring
// matching, deliberately conservative: false positives are cheaper than
// false negatives here.
var forbiddenIntentSignals = []string{
	"target individual",
	"target specific person",
	"assassinat",
	"blackmail",
	"frame them",
	"frame him",
	"frame her",
	"physically harm",
	"incite violence",
	"illegal surveillance",
}

// GateInput is the constraint gate's input, per spec.md §4.5.
type GateInput struct {
	Goal          string
	Domain        string
	Reversibility string
	Urgency       float64
	EmotionalLoad float64
}

// GateResult is the constraint gate's output.
type GateResult struct {
	Feasibility        string // "blocked" | "viable"
	MatchedSignal      string
	RecommendedPosture string
}

// ConstraintGate scans goal for forbidden-intent signals. If any match,
// the pipeline terminates before retrieval or debate ever run (spec.md §8
// scenario S4).
func ConstraintGate(input GateInput) GateResult {
	lowered := strings.ToLower(input.Goal)
	for _, signal := range forbiddenIntentSignals {
		if strings.Contains(lowered, signal) {
			return GateResult{
				Feasibility:        "blocked",
				MatchedSignal:      signal,
				RecommendedPosture: "halt",
			}
		}
	}
	return GateResult{Feasibility: "viable"}
}
