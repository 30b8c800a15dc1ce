package insights

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/llm"
)

type fakeStore struct {
	saved []domain.Insight
}

func (f *fakeStore) UpsertInsight(_ context.Context, in *domain.Insight) error {
	f.saved = append(f.saved, *in)
	return nil
}

func TestGenerateValidStancePersists(t *testing.T) {
	store := &fakeStore{}
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return json.RawMessage(`{"analysis_summary":"x","stance":"long","risks_and_watchouts":[]}`), nil
	}}

	g := New(store, client, nil)

	in, err := g.Generate(context.Background(), domain.TopicSummary{Topic: "rates"})
	require.NoError(t, err)
	require.Equal(t, domain.StanceLong, in.Stance)
	require.Nil(t, in.RisksAndWatchouts, "empty list must normalize to absent")
	require.Len(t, store.saved, 1)
	require.Equal(t, "rates", store.saved[0].Topic)
}

func TestGenerateInvalidStanceIsSchemaError(t *testing.T) {
	store := &fakeStore{}
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return json.RawMessage(`{"analysis_summary":"x","stance":"bullish"}`), nil
	}}

	g := New(store, client, nil)

	_, err := g.Generate(context.Background(), domain.TopicSummary{Topic: "rates"})
	require.Error(t, err)
	require.Empty(t, store.saved, "an invalid stance must never be persisted")
}

func TestGenerateOverwritesByTopic(t *testing.T) {
	store := &fakeStore{}
	client := &llm.MockClient{Respond: func(context.Context, llm.Request) (json.RawMessage, error) {
		return json.RawMessage(`{"analysis_summary":"y","stance":"neutral"}`), nil
	}}

	g := New(store, client, nil)

	_, err := g.Generate(context.Background(), domain.TopicSummary{Topic: "rates"})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), domain.TopicSummary{Topic: "rates"})
	require.NoError(t, err)

	require.Len(t, store.saved, 2, "the Store is responsible for the overwrite-by-topic upsert, not the Generator")
}
