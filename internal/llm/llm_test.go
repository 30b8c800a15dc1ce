package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMockClientDefaultResponse(t *testing.T) {
	c := NewMockClient()

	got, err := c.CompleteStructured(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(got))
}

func TestMockClientRespondHook(t *testing.T) {
	c := &MockClient{
		Respond: func(_ context.Context, req Request) (json.RawMessage, error) {
			return json.RawMessage(`{"echo":"` + req.SchemaName + `"}`), nil
		},
	}

	got, err := c.CompleteStructured(context.Background(), Request{SchemaName: "cluster"})
	require.NoError(t, err)
	require.JSONEq(t, `{"echo":"cluster"}`, string(got))
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := newCircuitBreaker(2, 50*time.Millisecond, nil)

	require.NoError(t, cb.check())

	cb.recordFailure()
	require.NoError(t, cb.check(), "below threshold, circuit stays closed")

	cb.recordFailure()
	require.ErrorIs(t, cb.check(), ErrCircuitBreakerOpen)

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, cb.check(), "circuit closes again after resetAfter elapses")
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newCircuitBreaker(2, time.Minute, nil)

	cb.recordFailure()
	cb.recordSuccess()
	cb.recordFailure()

	require.NoError(t, cb.check(), "a success in between must reset the consecutive-failure count")
}

func TestMockClientPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	c := &MockClient{Respond: func(context.Context, Request) (json.RawMessage, error) { return nil, wantErr }}

	_, err := c.CompleteStructured(context.Background(), Request{})
	require.ErrorIs(t, err, wantErr)
}
