package llm

import (
	"context"
	"encoding/json"
)

// MockClient is a deterministic Client used in tests and as the
// no-API-key fallback, grounded on the teacher's mockProvider
// (internal/core/llm/mock.go) but trimmed to the one method this
// package's Client interface exposes.
type MockClient struct {
	// Respond, if set, is called for every request and its result
	// returned verbatim. Tests use this to script schema violations,
	// errors, or specific payloads.
	Respond func(ctx context.Context, req Request) (json.RawMessage, error)
}

// NewMockClient returns a MockClient that always answers with an empty
// JSON object, suitable as a harmless no-API-key fallback; callers that
// need specific payloads should set Respond directly.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) CompleteStructured(ctx context.Context, req Request) (json.RawMessage, error) {
	if m.Respond != nil {
		return m.Respond(ctx, req)
	}

	return json.RawMessage(`{}`), nil
}
