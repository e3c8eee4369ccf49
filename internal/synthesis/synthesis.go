// Package synthesis implements the grounded-synthesis half of spec.md
// §4.3: one schema-constrained LLM call per minister over its retrieved
// doctrine, followed by deterministic, language-independent
// post-processing that never trusts the model's raw claims about its own
// confidence or violations. Grounded on the teacher's
// internal/llm request/validate idiom and domain.NewMinisterPosition's
// invariant enforcement.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Arjun3125/Sovereign/internal/domain"
	"github.com/Arjun3125/Sovereign/internal/llm"
	"github.com/Arjun3125/Sovereign/internal/retrieval"
)

// positionSchema is the strict output shape requested from the LLM,
// matching spec.md §4.3's synthesis contract.
const positionSchema = `{
  "stance": "one of ADVANCE|DELAY|AVOID|CONDITIONAL|NEEDS_DATA|ABSTAIN|STOP",
  "justification": "string, doctrine-only, no narrative phrases",
  "doctrine_ids": ["chunk_id"],
  "violations": ["string, Truth minister only"],
  "constraints": ["string"],
  "confidence": "float in [0,1]"
}`

type positionJSON struct {
	Stance        string   `json:"stance"`
	Justification string   `json:"justification"`
	DoctrineIds   []string `json:"doctrine_ids"`
	Violations    []string `json:"violations"`
	Constraints   []string `json:"constraints"`
	Confidence    float64  `json:"confidence"`
}

// narrativePhrases is the fixed list of phrases forbidden in a minister's
// justification (spec.md §4.3): the prompt asks the model to avoid them,
// and post-processing strips them defensively regardless.
var narrativePhrases = []string{
	"I believe",
	"respectfully",
	"honored members",
	"in my opinion",
	"if I may",
}

// Synthesizer runs one schema-constrained LLM call per minister and
// deterministically post-processes the result into a MinisterPosition.
type Synthesizer struct {
	LLM llm.Client
}

// Synthesize builds the prompt from retrieved.Hits, calls the LLM, and
// post-processes the response per spec.md §4.3. If retrieved is
// insufficient, no LLM call is made at all — the position is fixed to
// NEEDS_DATA per the empty-retrieval override.
func (s *Synthesizer) Synthesize(ctx context.Context, minister domain.MinisterId, query string, retrieved retrieval.RetrievedSet) (domain.MinisterPosition, error) {
	if !retrieved.Sufficient {
		return domain.NewMinisterPosition(
			minister, domain.StanceNeedsData, "no doctrine available for this domain",
			nil, nil, 0, nil,
		)
	}

	prompt := buildPrompt(minister, query, retrieved)
	raw, err := s.LLM.Complete(ctx, prompt, json.RawMessage(positionSchema))
	if err != nil {
		// Retrieval succeeded but synthesis failed: degrade to NEEDS_DATA
		// rather than surface an LLM error to the caller (spec.md §7:
		// "retrieval/synthesis failures degrade to NEEDS_DATA").
		return domain.NewMinisterPosition(
			minister, domain.StanceNeedsData, fmt.Sprintf("synthesis unavailable: %v", err),
			nil, nil, 0, nil,
		)
	}

	var parsed positionJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.NewMinisterPosition(
			minister, domain.StanceNeedsData, "synthesis returned malformed output",
			nil, nil, 0, nil,
		)
	}

	position, err := toPosition(minister, parsed)
	if err != nil {
		// The LLM's own confidence claim was out of range: degrade to
		// NEEDS_DATA rather than let one minister's bad output abort the
		// whole debate (spec.md §7: "retrieval/synthesis failures degrade
		// to NEEDS_DATA").
		return domain.NewMinisterPosition(
			minister, domain.StanceNeedsData, fmt.Sprintf("synthesis returned invalid confidence: %v", err),
			nil, nil, 0, nil,
		)
	}
	return position, nil
}

func buildPrompt(minister domain.MinisterId, query string, retrieved retrieval.RetrievedSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the %s minister. Respond using only the doctrine below.\n", minister)
	sb.WriteString("Do not use narrative phrases such as \"I believe\", \"respectfully\", or \"honored members\".\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\nDoctrine:\n", query)
	for _, h := range retrieved.Hits {
		fmt.Fprintf(&sb, "- [%s] (%s) %s\n", h.ChunkId, h.Category, h.Payload.Text)
	}
	return sb.String()
}

func toPosition(minister domain.MinisterId, parsed positionJSON) (domain.MinisterPosition, error) {
	justification := sanitizeNarrative(parsed.Justification)

	doctrineIds := make([]domain.ChunkId, len(parsed.DoctrineIds))
	for i, id := range parsed.DoctrineIds {
		doctrineIds[i] = domain.ChunkId(id)
	}

	violations := parsed.Violations
	if minister != domain.MinisterTruth {
		// Only the Truth minister may populate violations (spec.md §4.3).
		violations = nil
	}

	constraints := append([]string(nil), parsed.Constraints...)
	if len(violations) > 0 {
		constraints = append(constraints, "factual inconsistencies detected")
	}

	stance := domain.Stance(parsed.Stance)
	return domain.NewMinisterPosition(minister, stance, justification, doctrineIds, violations, parsed.Confidence, constraints)
}

// sanitizeNarrative strips every forbidden phrase from text, case-
// insensitively, collapsing any resulting double space.
func sanitizeNarrative(text string) string {
	out := text
	for _, phrase := range narrativePhrases {
		out = replaceCaseInsensitive(out, phrase, "")
	}
	return strings.Join(strings.Fields(out), " ")
}

func replaceCaseInsensitive(s, phrase, repl string) string {
	lowerS := strings.ToLower(s)
	lowerPhrase := strings.ToLower(phrase)
	var sb strings.Builder
	i := 0
	for {
		idx := strings.Index(lowerS[i:], lowerPhrase)
		if idx < 0 {
			sb.WriteString(s[i:])
			break
		}
		sb.WriteString(s[i : i+idx])
		sb.WriteString(repl)
		i += idx + len(phrase)
	}
	return sb.String()
}
