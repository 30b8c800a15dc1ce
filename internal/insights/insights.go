// Package insights implements the Insights Generator of spec.md §4.7:
// given one TopicSummary, produce a structured analytical record
// through a single schema-validated LLM call.
package insights

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/llm"
)

// Store is the subset of the storage layer the Insights Generator
// depends on. UpsertInsight's overwrite-by-topic semantics implement
// the idempotence spec.md §4.7 requires.
type Store interface {
	UpsertInsight(ctx context.Context, in *domain.Insight) error
}

// Generator produces one Insight per call.
type Generator struct {
	store  Store
	client llm.Client
	logger *zerolog.Logger
}

// New creates a Generator.
func New(store Store, client llm.Client, logger *zerolog.Logger) *Generator {
	return &Generator{store: store, client: client, logger: logger}
}

// insightPayload mirrors domain.Insight's JSON shape, received raw from
// the model before enum/normalization validation.
type insightPayload struct {
	AnalysisSummary           string                  `json:"analysis_summary"`
	Stance                    domain.Stance           `json:"stance"`
	RationaleLong             string                  `json:"rationale_long,omitempty"`
	RationaleShort            string                  `json:"rationale_short,omitempty"`
	RationaleNeutral          string                  `json:"rationale_neutral,omitempty"`
	RisksAndWatchouts         []string                `json:"risks_and_watchouts,omitempty"`
	KeyQuestionsForUser       []string                `json:"key_questions_for_user,omitempty"`
	SuggestedInstrumentsLong  []string                `json:"suggested_instruments_long,omitempty"`
	SuggestedInstrumentsShort []string                `json:"suggested_instruments_short,omitempty"`
	UsefulResources           []domain.UsefulResource `json:"useful_resources,omitempty"`
}

// Generate produces and persists the Insight for topic.
func (g *Generator) Generate(ctx context.Context, topic domain.TopicSummary) (domain.Insight, error) {
	raw, err := g.client.CompleteStructured(ctx, llm.Request{
		Prompt:     buildInsightPrompt(topic),
		SchemaName: "insight_response",
	})
	if err != nil {
		return domain.Insight{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamTransient, err)
	}

	var payload insightPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Insight{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamSchema, err)
	}

	if !payload.Stance.IsValid() {
		return domain.Insight{}, fmt.Errorf("%w: unrecognized stance %q", apperr.ErrUpstreamSchema, payload.Stance)
	}

	in := domain.Insight{
		Topic:                     topic.Topic,
		AnalysisSummary:           payload.AnalysisSummary,
		Stance:                    payload.Stance,
		RationaleLong:             payload.RationaleLong,
		RationaleShort:            payload.RationaleShort,
		RationaleNeutral:          payload.RationaleNeutral,
		RisksAndWatchouts:         normalizeEmpty(payload.RisksAndWatchouts),
		KeyQuestionsForUser:       normalizeEmpty(payload.KeyQuestionsForUser),
		SuggestedInstrumentsLong:  normalizeEmpty(payload.SuggestedInstrumentsLong),
		SuggestedInstrumentsShort: normalizeEmpty(payload.SuggestedInstrumentsShort),
		UsefulResources:           payload.UsefulResources,
	}

	if err := g.store.UpsertInsight(ctx, &in); err != nil {
		return domain.Insight{}, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	return in, nil
}

// normalizeEmpty collapses a zero-length list to nil, so an empty
// JSON array from the model and a genuinely absent field persist
// identically, per spec.md §4.7's "normalize missing list fields to
// absent."
func normalizeEmpty(list []string) []string {
	if len(list) == 0 {
		return nil
	}

	return list
}
