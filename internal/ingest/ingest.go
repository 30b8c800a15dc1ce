// Package ingest implements the Channel Ingestor: for a set of channel
// URLs and a time window, it fans out fetches with bounded
// concurrency, persists messages, walks each message's outbound links
// through the Link Resolver, and emits progress to the Progress Bus.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/linkresolver"
)

// FetchedMessage is one message returned by a ChannelClient, before it
// has been assigned a surrogate Store ID.
type FetchedMessage struct {
	MessageID string
	Timestamp time.Time
	Text      string
}

// ChannelClient is the `fetch_channel_messages` boundary of spec.md
// §4.4: given a channel URL and a time window, return its messages in
// timestamp order.
type ChannelClient interface {
	FetchChannelMessages(ctx context.Context, channelURL string, since, until time.Time) ([]FetchedMessage, error)
}

// Store is the subset of the storage layer the Ingestor depends on.
type Store interface {
	UpsertSource(ctx context.Context, s *domain.Source) (string, error)
	UpsertMessage(ctx context.Context, m *domain.Message) (id string, ok bool, err error)
}

// LinkResolver resolves a single URL to a short textual summary.
type LinkResolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// ProgressSink receives progress notifications for one request_id.
type ProgressSink interface {
	Emit(requestID string, event domain.ProgressEvent)
	Complete(requestID string, event domain.ProgressEvent)
}

// Request is one Channel Ingestor invocation.
type Request struct {
	RequestID  string
	SourceURLs []string
	Since      time.Time
	Until      time.Time
}

// Options bounds the Ingestor's concurrency.
type Options struct {
	// SourceConcurrency caps how many sources are fetched in parallel.
	SourceConcurrency int
	// LinkConcurrency caps how many outbound link resolutions a single
	// message's links run with; the Link Resolver itself enforces the
	// global cap across the whole process.
	LinkConcurrency int
}

// Ingestor is the Channel Ingestor component of spec.md §4.4.
type Ingestor struct {
	store    Store
	client   ChannelClient
	resolver LinkResolver
	progress ProgressSink
	logger   *zerolog.Logger
	opts     Options
}

// New creates an Ingestor.
func New(store Store, client ChannelClient, resolver LinkResolver, progress ProgressSink, opts Options, logger *zerolog.Logger) *Ingestor {
	if opts.SourceConcurrency <= 0 {
		opts.SourceConcurrency = 4
	}

	if opts.LinkConcurrency <= 0 {
		opts.LinkConcurrency = 4
	}

	return &Ingestor{store: store, client: client, resolver: resolver, progress: progress, opts: opts, logger: logger}
}

// Run executes the Ingestor algorithm of spec.md §4.4 for req,
// returning once every source has been drained (or failed) and the
// terminal progress event has been emitted.
func (ing *Ingestor) Run(ctx context.Context, req Request) error {
	total := len(req.SourceURLs)

	sourceIDs := make(map[string]string, total)

	for _, raw := range req.SourceURLs {
		canonical := canonicalizeURL(raw)

		id, err := ing.store.UpsertSource(ctx, &domain.Source{URL: canonical, Kind: "telegram"})
		if err != nil {
			if ing.logger != nil {
				ing.logger.Error().Err(err).Str("url", canonical).Msg("failed to upsert source")
			}

			continue
		}

		sourceIDs[canonical] = id
	}

	ing.progress.Emit(req.RequestID, domain.ProgressEvent{
		ProcessedChannels: 0,
		TotalChannels:     total,
		CurrentChannel:    "Initializing",
	})

	var (
		processed int32
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, ing.opts.SourceConcurrency)
	)

	for i, raw := range req.SourceURLs {
		canonical := canonicalizeURL(raw)
		index := i + 1

		wg.Add(1)

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Done()
			continue
		}

		go func(sourceURL string, n int) {
			defer wg.Done()
			defer func() { <-sem }()

			errMsg := ing.processSource(ctx, req, sourceURL)

			mu.Lock()
			processed++
			p := processed
			mu.Unlock()

			event := domain.ProgressEvent{
				ProcessedChannels: int(p),
				TotalChannels:     total,
				CurrentChannel:    fmt.Sprintf("Processing %d/%d: %s", n, total, sourceURL),
			}
			if errMsg != "" {
				event.Error = errMsg
			}

			ing.progress.Emit(req.RequestID, event)
		}(canonical, index)
	}

	wg.Wait()

	ing.progress.Complete(req.RequestID, domain.ProgressEvent{
		ProcessedChannels: total,
		TotalChannels:     total,
		CurrentChannel:    "Clustering complete!",
	})

	return nil
}

// processSource fetches and persists one source's messages. Per-source
// failures never abort the batch; the caller advances the processed
// counter regardless and reports the error text in the progress event.
func (ing *Ingestor) processSource(ctx context.Context, req Request, sourceURL string) string {
	fetched, err := ing.client.FetchChannelMessages(ctx, sourceURL, req.Since, req.Until)
	if err != nil {
		if ing.logger != nil {
			ing.logger.Warn().Err(err).Str("url", sourceURL).Msg("failed to fetch channel messages")
		}

		return err.Error()
	}

	for _, fm := range fetched {
		ing.persistMessage(ctx, sourceURL, fm)
	}

	return ""
}

func (ing *Ingestor) persistMessage(ctx context.Context, sourceURL string, fm FetchedMessage) {
	msg := &domain.Message{
		Kind:      "telegram",
		ChannelID: sourceURL,
		MessageID: fm.MessageID,
		SourceURL: sourceURL,
		Timestamp: fm.Timestamp,
		Text:      fm.Text,
	}

	urls := linkresolver.ExtractURLs(fm.Text)
	if len(urls) > 0 {
		msg.ResolvedLinks = ing.resolveLinks(ctx, urls)
	}

	if _, _, err := ing.store.UpsertMessage(ctx, msg); err != nil && ing.logger != nil {
		ing.logger.Error().Err(err).Str("channel", sourceURL).Str("message_id", fm.MessageID).Msg("failed to persist message")
	}
}

func (ing *Ingestor) resolveLinks(ctx context.Context, urls []string) []domain.ResolvedLink {
	type result struct {
		idx     int
		summary string
	}

	results := make([]domain.ResolvedLink, len(urls))
	out := make(chan result, len(urls))
	sem := make(chan struct{}, ing.opts.LinkConcurrency)

	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)

		sem <- struct{}{}

		go func(idx int, linkURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := ing.resolver.Resolve(ctx, linkURL)
			if err != nil && ing.logger != nil {
				ing.logger.Debug().Err(err).Str("url", linkURL).Msg("link resolution failed")
			}

			out <- result{idx: idx, summary: summary}
		}(i, u)
	}

	wg.Wait()
	close(out)

	for r := range out {
		results[r.idx] = domain.ResolvedLink{URL: urls[r.idx], Summary: r.summary}
	}

	return results
}

func canonicalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.Fragment = ""
	u.RawQuery = ""

	return u.String()
}
