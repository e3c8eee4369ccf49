// Package llm defines the counsel engine's LLM collaborator boundary.
// Per spec.md §1, the language model is treated as a pure function
// llm(prompt, schema) -> structured_json with temperature 0; this package
// owns that boundary and one HTTP-backed implementation, matching the
// teacher's internal/llm.LLMProvider interface-segregation idiom.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client is the pure-function LLM collaborator. Schema is a JSON-schema-
// shaped example the caller wants the model to conform to; Complete
// returns raw JSON the caller must validate before trusting (spec.md §9:
// "validate before trust").
type Client interface {
	Complete(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error)
}

// HTTPClient calls a single configured endpoint (LLM_ENDPOINT) with
// temperature pinned to 0, matching every teacher provider's shape: a thin
// net/http wrapper with no framework dependency.
type HTTPClient struct {
	Endpoint       string
	Model          string
	TimeoutSeconds int
	MaxRetries     int
	httpClient     *http.Client
}

// NewHTTPClient builds an HTTPClient against endpoint/model with the given
// per-call timeout and bounded retry count.
func NewHTTPClient(endpoint, model string, timeoutSeconds, maxRetries int) *HTTPClient {
	return &HTTPClient{
		Endpoint:       endpoint,
		Model:          model,
		TimeoutSeconds: timeoutSeconds,
		MaxRetries:     maxRetries,
		httpClient:     &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

type completeRequest struct {
	RequestId   string          `json:"request_id"`
	Model       string          `json:"model"`
	Prompt      string          `json:"prompt"`
	Schema      json.RawMessage `json:"schema"`
	Temperature float64         `json:"temperature"`
}

type completeResponse struct {
	Output json.RawMessage `json:"output"`
}

// Complete issues a single schema-constrained completion request, retrying
// bounded times on transient (5xx, timeout) failures per spec.md §7's
// "external transient" policy. After retries are exhausted the error is
// returned to the caller to be treated as a per-unit validation failure.
func (c *HTTPClient) Complete(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	reqID := uuid.NewString()
	body, err := json.Marshal(completeRequest{
		RequestId:   reqID,
		Model:       c.Model,
		Prompt:      prompt,
		Schema:      schema,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("llm complete %s: marshal request: %w", reqID, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		out, err := c.doOnce(ctx, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm complete %s: %w", reqID, ctx.Err())
		}
	}
	return nil, fmt.Errorf("llm complete %s: exhausted %d retries: %w", reqID, c.MaxRetries, lastErr)
}

func (c *HTTPClient) doOnce(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("llm endpoint transient failure: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm endpoint permanent failure: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed completeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("llm endpoint returned malformed envelope: %w", err)
	}
	return parsed.Output, nil
}
