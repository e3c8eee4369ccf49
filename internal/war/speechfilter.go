package war

import (
	"strings"

	"github.com/Arjun3125/Sovereign/internal/domain"
)

// disallowedPhrases is the fixed list of refusal-style phrases the filter
// strips, replacing each occurrence with [REFUSAL_REMOVED] (spec.md §4.5
// step 1, scenario S6).
var disallowedPhrases = []string{
	"i cannot help with this",
	"this is unethical",
	"this is wrong",
	"i must decline",
	"as an ai",
}

// suppressedPatterns is the fixed list of conceptual patterns tagged
// [SUPPRESSED] rather than removed outright (spec.md §4.5 step 2).
var suppressedPatterns = []string{
	"seek professional help",
	"consult a lawyer before proceeding",
}

// mandatorySections must appear in a filtered justification; any missing
// section gets its placeholder appended (spec.md §4.5 step 3).
var mandatorySections = []string{"[COSTS]", "[RISKS]", "[EXITS]"}

// ministerOverrides names, for a subset of ministers, which disallowed
// phrases apply to them specifically (a subset of the full list; Risk's
// entry is the whole list),
// per spec.md §4.5 step 4's "customized subset of rules". Ministers not
// listed here use the full disallowedPhrases list.
var ministerOverrides = map[domain.MinisterId][]string{
	domain.MinisterPower:      {"i cannot help with this", "i must decline"},
	domain.MinisterPsychology: {"i cannot help with this", "this is unethical", "this is wrong"},
	domain.MinisterConflict:   {"i cannot help with this", "i must decline"},
	domain.MinisterDiplomacy:  {"this is unethical", "this is wrong", "as an ai"},
	domain.MinisterRisk:       disallowedPhrases,
	domain.MinisterOptionality: {"i cannot help with this", "as an ai"},
}

// FilterResult is the outcome of one FilterSpeech call, per spec.md
// §4.5's audit record. Original is always preserved.
type FilterResult struct {
	Original          string
	Filtered          string
	PhrasesRemoved    int
	PatternsSuppressed int
	MandatoryAdded    []string
	WasFiltered       bool
}

// FilterSpeech applies the minister's phrase list, then pattern
// suppression, then mandatory-section injection. The Truth minister is
// never filtered — its text passes through unchanged (spec.md §4.5 step 4,
// scenario S6).
func FilterSpeech(minister domain.MinisterId, text string) FilterResult {
	if minister == domain.MinisterTruth {
		return FilterResult{Original: text, Filtered: text}
	}

	phrases := ministerOverrides[minister]
	if phrases == nil {
		phrases = disallowedPhrases
	}

	filtered, removed := stripPhrases(text, phrases)
	filtered, suppressed := suppressPatterns(filtered)
	filtered, added := ensureMandatorySections(filtered)

	return FilterResult{
		Original:           text,
		Filtered:            filtered,
		PhrasesRemoved:      removed,
		PatternsSuppressed:  suppressed,
		MandatoryAdded:      added,
		WasFiltered:         removed > 0 || suppressed > 0 || len(added) > 0,
	}
}

func stripPhrases(text string, phrases []string) (string, int) {
	out := text
	count := 0
	for _, phrase := range phrases {
		var replaced int
		out, replaced = replaceAllCaseInsensitiveCounting(out, phrase, "[REFUSAL_REMOVED]")
		count += replaced
	}
	return out, count
}

func suppressPatterns(text string) (string, int) {
	out := text
	count := 0
	for _, pattern := range suppressedPatterns {
		var replaced int
		out, replaced = replaceAllCaseInsensitiveCounting(out, pattern, "[SUPPRESSED]")
		count += replaced
	}
	return out, count
}

func ensureMandatorySections(text string) (string, []string) {
	var added []string
	out := text
	for _, section := range mandatorySections {
		if !strings.Contains(out, section) {
			out = strings.TrimSpace(out) + " " + section
			added = append(added, section)
		}
	}
	return out, added
}

func replaceAllCaseInsensitiveCounting(s, target, repl string) (string, int) {
	if target == "" {
		return s, 0
	}
	lowerS := strings.ToLower(s)
	lowerTarget := strings.ToLower(target)
	var sb strings.Builder
	count := 0
	i := 0
	for {
		idx := strings.Index(lowerS[i:], lowerTarget)
		if idx < 0 {
			sb.WriteString(s[i:])
			break
		}
		sb.WriteString(s[i : i+idx])
		sb.WriteString(repl)
		i += idx + len(target)
		count++
	}
	return sb.String(), count
}
