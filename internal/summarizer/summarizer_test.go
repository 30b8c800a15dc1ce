package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/llm"
)

type fakeStore struct {
	messages []domain.Message
	saved    []domain.TopicSummary
	savedErr error
}

func (f *fakeStore) MessagesInWindow(_ context.Context, _, _ time.Time) ([]domain.Message, error) {
	return f.messages, nil
}

func (f *fakeStore) SaveTopicSummaries(_ context.Context, _ domain.Period, topics []domain.TopicSummary) error {
	if f.savedErr != nil {
		return f.savedErr
	}

	f.saved = topics

	return nil
}

func TestSummarizeEmptyWindowShortCircuits(t *testing.T) {
	store := &fakeStore{}
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		t.Fatal("no LLM call should be issued for an empty window")
		return nil, nil
	}}

	s := New(store, client, Options{}, nil)

	resp, err := s.Summarize(context.Background(), Request{Period: domain.Period1Day})
	require.NoError(t, err)
	require.True(t, resp.NoMessagesFound)
	require.Empty(t, resp.Topics)
}

func TestSummarizeFiltersInvalidMessageIDsAndPersists(t *testing.T) {
	store := &fakeStore{
		messages: []domain.Message{
			{ChannelID: "https://t.me/alpha", MessageID: "1", Text: "first"},
			{ChannelID: "https://t.me/alpha", MessageID: "2", Text: "second"},
		},
	}
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return json.RawMessage(`{"topics":[{"topic":"a","metatopic":"b","importance":5,"summary":"s","message_ids":[1,999]}]}`), nil
	}}

	s := New(store, client, Options{}, nil)

	resp, err := s.Summarize(context.Background(), Request{Period: domain.Period1Day, Sources: []string{"https://t.me/alpha"}})
	require.NoError(t, err)
	require.Len(t, resp.Topics, 1)
	require.Equal(t, []int64{1}, resp.Topics[0].MessageIDs, "message id 999 was never fetched and must be dropped")
	require.Len(t, store.saved, 1)
}

func TestSummarizeDropsTopicWithNoValidMembers(t *testing.T) {
	store := &fakeStore{messages: []domain.Message{{ChannelID: "c", MessageID: "1", Text: "x"}}}
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return json.RawMessage(`{"topics":[{"topic":"a","importance":5,"message_ids":[42]}]}`), nil
	}}

	s := New(store, client, Options{}, nil)

	resp, err := s.Summarize(context.Background(), Request{Period: domain.Period1Day})
	require.NoError(t, err)
	require.Empty(t, resp.Topics)
}

func TestSummarizeDropsTopicWithOutOfRangeImportance(t *testing.T) {
	store := &fakeStore{messages: []domain.Message{{ChannelID: "c", MessageID: "1", Text: "x"}}}
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return json.RawMessage(`{"topics":[{"topic":"a","importance":11,"message_ids":[1]}]}`), nil
	}}

	s := New(store, client, Options{}, nil)

	resp, err := s.Summarize(context.Background(), Request{Period: domain.Period1Day})
	require.NoError(t, err)
	require.Empty(t, resp.Topics)
}

func TestSummarizeRetriesOnceOnTransientFailureThenFails(t *testing.T) {
	store := &fakeStore{messages: []domain.Message{{ChannelID: "c", MessageID: "1", Text: "x"}}}

	var calls int

	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		calls++
		return nil, errors.New("timeout")
	}}

	s := New(store, client, Options{RetryBackoff: time.Millisecond}, nil)

	_, err := s.Summarize(context.Background(), Request{Period: domain.Period1Day})
	require.Error(t, err)
	require.Equal(t, 2, calls, "must retry exactly once before giving up")
}

func TestSummarizeInvalidPeriodIsValidationError(t *testing.T) {
	s := New(&fakeStore{}, &llm.MockClient{}, Options{}, nil)

	_, err := s.Summarize(context.Background(), Request{Period: "bogus"})
	require.Error(t, err)
}
