// Package clusterer implements the Clusterer of spec.md §4.5: a single
// LLM call that partitions a set of channels into labeled topic groups.
package clusterer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/llm"
)

// ProgressSink receives the Clusterer's three coarse progress events.
type ProgressSink interface {
	Emit(requestID string, event domain.ProgressEvent)
	Complete(requestID string, event domain.ProgressEvent)
}

// Clusterer groups channels into labeled topics via a single
// schema-validated LLM call, retrying once on a partition violation.
type Clusterer struct {
	client   llm.Client
	progress ProgressSink
	logger   *zerolog.Logger
}

// New creates a Clusterer.
func New(client llm.Client, progress ProgressSink, logger *zerolog.Logger) *Clusterer {
	return &Clusterer{client: client, progress: progress, logger: logger}
}

// clusterResponse is the strict JSON schema described to the model:
// every input channel id must appear in exactly one group.
type clusterResponse struct {
	Groups []domain.ChannelTopicGroup `json:"groups"`
}

// Cluster partitions channels into topic groups for requestID, emitting
// "Analyzing channels" / "Processing AI response" / "Clustering
// complete!" progress events along the way.
func (c *Clusterer) Cluster(ctx context.Context, requestID string, channels []domain.Channel) ([]domain.ChannelTopicGroup, error) {
	total := len(channels)

	c.emit(requestID, 0, total, "Analyzing channels", "")

	prompt := buildClusterPrompt(channels)

	groups, err := c.callAndValidate(ctx, prompt, channels)
	if err != nil && apperr.Is(err, apperr.ErrUpstreamSchema) {
		// One retry on schema/partition violation, per spec.md §4.5.
		groups, err = c.callAndValidate(ctx, prompt, channels)
	}

	if err != nil {
		c.progress.Complete(requestID, domain.ProgressEvent{
			ProcessedChannels: 0,
			TotalChannels:     total,
			CurrentChannel:    "Clustering failed",
			Error:             err.Error(),
		})

		return nil, err
	}

	c.emit(requestID, total, total, "Processing AI response", "")

	c.progress.Complete(requestID, domain.ProgressEvent{
		ProcessedChannels: total,
		TotalChannels:     total,
		CurrentChannel:    "Clustering complete!",
	})

	return groups, nil
}

func (c *Clusterer) callAndValidate(ctx context.Context, prompt string, channels []domain.Channel) ([]domain.ChannelTopicGroup, error) {
	raw, err := c.client.CompleteStructured(ctx, llm.Request{Prompt: prompt, SchemaName: "cluster_response"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamTransient, err)
	}

	var resp clusterResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamSchema, err)
	}

	if !isCompletePartition(channels, resp.Groups) {
		return nil, fmt.Errorf("%w: response is not a complete partition of the input channels", apperr.ErrUpstreamSchema)
	}

	return resp.Groups, nil
}

// isCompletePartition reports whether every id in channels appears in
// exactly one group of groups (spec.md §8 scenario 4).
func isCompletePartition(channels []domain.Channel, groups []domain.ChannelTopicGroup) bool {
	seen := make(map[string]int, len(channels))

	for _, g := range groups {
		for _, ch := range g.Channels {
			seen[ch.ID]++
		}
	}

	if len(seen) != len(channels) {
		return false
	}

	for _, ch := range channels {
		if seen[ch.ID] != 1 {
			return false
		}
	}

	return true
}

func (c *Clusterer) emit(requestID string, processed, total int, current, errMsg string) {
	if c.progress == nil {
		return
	}

	c.progress.Emit(requestID, domain.ProgressEvent{
		ProcessedChannels: processed,
		TotalChannels:     total,
		CurrentChannel:    current,
		Error:             errMsg,
	})
}
