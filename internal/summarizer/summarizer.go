// Package summarizer implements the Summarizer of spec.md §4.6: given a
// period and a set of sources, produce up to twenty salient topic
// summaries from the messages in that window.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/llm"
)

const maxTopicsPerSummary = 20

// Store is the subset of the storage layer the Summarizer depends on.
type Store interface {
	MessagesInWindow(ctx context.Context, since, until time.Time) ([]domain.Message, error)
	SaveTopicSummaries(ctx context.Context, period domain.Period, topics []domain.TopicSummary) error
}

// Options bounds the Summarizer's retry/timeout behavior.
type Options struct {
	// MaxMessageChars truncates each message's text in the prompt.
	MaxMessageChars int
	// RetryBackoff is the pause before the Summarizer's one retry on a
	// transient LLM failure.
	RetryBackoff time.Duration
	// WallClockCap bounds the whole request via context.WithTimeout.
	WallClockCap time.Duration
}

// Request is one Summarizer invocation.
type Request struct {
	RequestID string
	Period    domain.Period
	Sources   []string
}

// Response is the Summarizer's result. NoMessagesFound short-circuits
// step 3 of spec.md §4.6 — no LLM call is issued for an empty window.
type Response struct {
	Topics          []domain.TopicSummary
	NoMessagesFound bool
}

// Summarizer implements the seven-step procedure of spec.md §4.6.
type Summarizer struct {
	store  Store
	client llm.Client
	opts   Options
	logger *zerolog.Logger
}

// New creates a Summarizer.
func New(store Store, client llm.Client, opts Options, logger *zerolog.Logger) *Summarizer {
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = 1000
	}

	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}

	if opts.WallClockCap <= 0 {
		opts.WallClockCap = 5 * time.Minute
	}

	return &Summarizer{store: store, client: client, opts: opts, logger: logger}
}

type summarizeResponse struct {
	Topics []topicPayload `json:"topics"`
}

type topicPayload struct {
	Topic      string  `json:"topic"`
	Metatopic  string  `json:"metatopic"`
	Importance int     `json:"importance"`
	Summary    string  `json:"summary"`
	MessageIDs []int64 `json:"message_ids"`
}

// Summarize runs the seven-step procedure against req.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.WallClockCap)
	defer cancel()

	// Step 1: resolve window.
	until := time.Now()

	span, ok := req.Period.Duration()
	if !ok {
		return Response{}, fmt.Errorf("%w: unrecognized period %q", apperr.ErrValidation, req.Period)
	}

	since := until.Add(-span)

	// Step 2: load messages.
	all, err := s.store.MessagesInWindow(ctx, since, until)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	messages := filterBySources(all, req.Sources)

	// Step 3: empty-window short circuit, no LLM call issued.
	if len(messages) == 0 {
		return Response{NoMessagesFound: true}, nil
	}

	// Step 4: build prompt.
	byNumericID, prompt := buildSummaryPrompt(messages, s.opts.MaxMessageChars)

	// Step 5: call the model, with one retry on a transient failure.
	raw, err := s.client.CompleteStructured(ctx, llm.Request{Prompt: prompt, SchemaName: "summarize_response"})
	if err != nil {
		select {
		case <-time.After(s.opts.RetryBackoff):
		case <-ctx.Done():
			return Response{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamTransient, ctx.Err())
		}

		raw, err = s.client.CompleteStructured(ctx, llm.Request{Prompt: prompt, SchemaName: "summarize_response"})
		if err != nil {
			return Response{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamTransient, err)
		}
	}

	var resp summarizeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		// One retry on a schema violation before giving up with 502.
		raw, err = s.client.CompleteStructured(ctx, llm.Request{Prompt: prompt, SchemaName: "summarize_response"})
		if err != nil {
			return Response{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamTransient, err)
		}

		resp = summarizeResponse{}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return Response{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamSchema, err)
		}
	}

	// Step 6: validate importance range and message_id membership;
	// filter invalid members; drop topics left with zero members.
	topics := validateAndFilter(resp.Topics, byNumericID)
	if len(topics) > maxTopicsPerSummary {
		topics = topics[:maxTopicsPerSummary]
	}

	// Step 7: persist.
	if err := s.store.SaveTopicSummaries(ctx, req.Period, topics); err != nil {
		return Response{}, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	return Response{Topics: topics}, nil
}

func filterBySources(all []domain.Message, sources []string) []domain.Message {
	if len(sources) == 0 {
		return all
	}

	want := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		want[s] = struct{}{}
	}

	out := make([]domain.Message, 0, len(all))

	for _, m := range all {
		if _, ok := want[m.ChannelID]; ok {
			out = append(out, m)
		}
	}

	return out
}

func validateAndFilter(payloads []topicPayload, validIDs map[int64]struct{}) []domain.TopicSummary {
	out := make([]domain.TopicSummary, 0, len(payloads))

	for _, p := range payloads {
		if p.Importance < 1 || p.Importance > 10 {
			continue
		}

		members := make([]int64, 0, len(p.MessageIDs))

		for _, id := range p.MessageIDs {
			if _, ok := validIDs[id]; ok {
				members = append(members, id)
			}
		}

		if len(members) == 0 {
			continue
		}

		out = append(out, domain.TopicSummary{
			Topic:      p.Topic,
			Metatopic:  p.Metatopic,
			Importance: p.Importance,
			Summary:    p.Summary,
			MessageIDs: members,
		})
	}

	return out
}

// parseNumericID converts a Message's platform MessageID (a decimal
// string for Telegram messages) to the int64 id the model references.
func parseNumericID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}
