package clusterer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/llm"
)

type fakeSink struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
	done   []domain.ProgressEvent
}

func (f *fakeSink) Emit(_ string, e domain.ProgressEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, e)
}

func (f *fakeSink) Complete(_ string, e domain.ProgressEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.done = append(f.done, e)
}

func channels() []domain.Channel {
	return []domain.Channel{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}}
}

func TestClusterValidPartitionSucceeds(t *testing.T) {
	resp := `{"groups":[{"topic":"tech","language":"en","channels":[{"id":"a","name":"Alpha"},{"id":"b","name":"Beta"}]}]}`
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return json.RawMessage(resp), nil
	}}
	sink := &fakeSink{}

	c := New(client, sink, nil)

	groups, err := c.Cluster(context.Background(), "req-1", channels())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Channels, 2)
	require.Len(t, sink.done, 1)
	require.Equal(t, "Clustering complete!", sink.done[0].CurrentChannel)
}

func TestClusterRetriesOnceThenSucceeds(t *testing.T) {
	var calls int

	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		calls++
		if calls == 1 {
			// drops channel "b" - not a complete partition.
			return json.RawMessage(`{"groups":[{"topic":"tech","language":"en","channels":[{"id":"a","name":"Alpha"}]}]}`), nil
		}

		return json.RawMessage(`{"groups":[{"topic":"tech","language":"en","channels":[{"id":"a","name":"Alpha"},{"id":"b","name":"Beta"}]}]}`), nil
	}}

	c := New(client, &fakeSink{}, nil)

	groups, err := c.Cluster(context.Background(), "req-2", channels())
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, groups[0].Channels, 2)
}

func TestClusterFailsAfterSecondSchemaViolation(t *testing.T) {
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return json.RawMessage(`{"groups":[]}`), nil
	}}
	sink := &fakeSink{}

	c := New(client, sink, nil)

	_, err := c.Cluster(context.Background(), "req-3", channels())
	require.Error(t, err)
	require.Len(t, sink.done, 1)
	require.NotEmpty(t, sink.done[0].Error)
}

func TestClusterUpstreamErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection refused")
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return nil, wantErr
	}}

	c := New(client, &fakeSink{}, nil)

	_, err := c.Cluster(context.Background(), "req-4", channels())
	require.Error(t, err)
}
