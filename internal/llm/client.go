// Package llm provides the single structured-completion boundary that
// the Clusterer, Summarizer, and Insights Generator call: one prompt in,
// one JSON response out. It has a single Client interface with an
// OpenAI-backed implementation and a MockClient, and none of the
// teacher's provider registry, multi-provider fallback chain or
// budget/cost tracking — this spec issues one LLM call per request, not
// a load-balanced batch pipeline.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and is
// refusing new calls until its reset timer elapses.
var ErrCircuitBreakerOpen = errors.New("llm: circuit breaker is open")

// ErrEmptyResponse indicates the provider returned no content at all.
var ErrEmptyResponse = errors.New("llm: empty response content")

// Request is a single structured-completion call. The expected JSON
// shape travels inside Prompt; the OpenAI client requests JSON-object
// mode, which yields a JSON object but does not enforce a schema.
type Request struct {
	// Prompt is the full instruction + context text.
	Prompt string
	// SchemaName labels the schema for logging/metrics; it has no
	// semantic effect on the call itself.
	SchemaName string
	// Model overrides the provider's default model; empty uses the
	// provider's configured default.
	Model string
}

// Client is the structured-completion boundary shared by the Clusterer,
// Summarizer, and Insights Generator. It deliberately exposes nothing
// about provider identity, budgets, or non-JSON completions — those
// belong to the teacher's original, much larger Client interface, and
// have no SPEC_FULL.md component that exercises them.
type Client interface {
	// CompleteStructured issues one completion call and returns the
	// raw JSON response body. Callers are responsible for unmarshaling
	// into their own schema type and validating domain invariants
	// (partition completeness, member-id membership, stance enum) —
	// the Client only guarantees syntactically valid JSON.
	CompleteStructured(ctx context.Context, req Request) (json.RawMessage, error)
}
