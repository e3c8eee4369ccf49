package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeClient is a deterministic in-memory Client used in tests and in the
// ingestion round-trip property tests, matching the pack's mock-llm-server
// convention of a scriptable stand-in for the real network call. Safe for
// concurrent use, since phase-2 extraction calls Complete concurrently,
// one call per chapter.
type FakeClient struct {
	// Responses is consulted in order for each call to Complete; if
	// exhausted, Default is returned.
	Responses []json.RawMessage
	Default   json.RawMessage

	mu      sync.Mutex
	calls   int
	Prompts []string
}

// Complete returns the next scripted response, ignoring schema (the fake
// trusts its caller to have scripted schema-valid output).
func (f *FakeClient) Complete(_ context.Context, prompt string, _ json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if f.calls < len(f.Responses) {
		out := f.Responses[f.calls]
		f.calls++
		return out, nil
	}
	f.calls++
	return f.Default, nil
}

// Calls reports how many times Complete has been invoked.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ErrClient always fails, for exercising the caller's degrade-on-failure
// path without a real transient network error.
type ErrClient struct {
	Err error
}

func (e *ErrClient) Complete(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
	return nil, e.Err
}
