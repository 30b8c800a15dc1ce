// Package linkresolver produces a short textual summary for a URL,
// memoized via the Store, with at-most-one in-flight resolution per
// URL across the whole process.
package linkresolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
)

// Store is the subset of the storage layer the Link Resolver depends
// on, narrowed to an interface so tests can substitute a fake. Its
// method set matches internal/storage.DB directly.
type Store interface {
	GetLinkSummary(ctx context.Context, url string) (*domain.LinkSummary, error)
	UpsertLinkSummary(ctx context.Context, url, summary string) error
	IncrementLinkAttempt(ctx context.Context, url string) (attempts int, err error)
	LinkAttemptCount(ctx context.Context, url string) (attempts int, err error)
}

// Fetcher abstracts downloading and summarizing a URL's content, so
// tests can substitute a canned responder instead of making real HTTP
// calls.
type Fetcher interface {
	Resolve(ctx context.Context, url string) (summary string, err error)
}

const defaultMaxAttempts = 3

// Resolver is the Link Resolver component of spec.md §4.3.
type Resolver struct {
	store       Store
	fetcher     Fetcher
	logger      *zerolog.Logger
	sem         chan struct{}
	group       singleflight.Group
	maxAttempts int
}

// Options configures a Resolver's bounded concurrency and retry cap.
type Options struct {
	Concurrency int
	MaxAttempts int
}

// New creates a Resolver backed by store, using fetcher to perform
// actual external resolutions.
func New(store Store, fetcher Fetcher, opts Options, logger *zerolog.Logger) *Resolver {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Resolver{
		store:       store,
		fetcher:     fetcher,
		logger:      logger,
		sem:         make(chan struct{}, concurrency),
		maxAttempts: maxAttempts,
	}
}

// Resolve returns a short textual summary for url. On a cache hit it
// returns immediately. On a miss it either starts a new external
// resolution or joins one already in flight for the same URL; the
// first completer writes the Store entry and every joiner reads the
// same result. A failed resolution yields an empty string and is never
// cached, but counts against url's attempt cap — once the cap is
// exceeded, Resolve returns an empty string without attempting a new
// fetch.
func (r *Resolver) Resolve(ctx context.Context, url string) (string, error) {
	cached, err := r.store.GetLinkSummary(ctx, url)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", fmt.Errorf("get link summary: %w", err)
	}

	if cached != nil {
		return cached.SummaryText, nil
	}

	attempts, err := r.store.LinkAttemptCount(ctx, url)
	if err != nil {
		return "", fmt.Errorf("get link attempt count: %w", err)
	}

	if attempts >= r.maxAttempts {
		return "", nil
	}

	result, err, _ := r.group.Do(url, func() (interface{}, error) {
		return r.resolveOnce(ctx, url)
	})
	if err != nil {
		return "", nil //nolint:nilerr // resolver failures map to empty string, never surfaced to callers
	}

	return result.(string), nil
}

func (r *Resolver) resolveOnce(ctx context.Context, url string) (string, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	summary, err := r.fetcher.Resolve(ctx, url)
	if err != nil {
		if _, attemptErr := r.store.IncrementLinkAttempt(ctx, url); attemptErr != nil && r.logger != nil {
			r.logger.Warn().Err(attemptErr).Str("url", url).Msg("failed to record link resolution attempt")
		}

		if r.logger != nil {
			r.logger.Debug().Err(err).Str("url", url).Msg("link resolution failed")
		}

		return "", fmt.Errorf("%w: %w", apperr.ErrUpstreamTransient, err)
	}

	if err := r.store.UpsertLinkSummary(ctx, url, summary); err != nil {
		return "", fmt.Errorf("upsert link summary: %w", err)
	}

	return summary, nil
}

// httpFetcher is the production Fetcher: download then summarize.
type httpFetcher struct {
	web      *WebFetcher
	maxChars int
	timeout  time.Duration
}

// NewHTTPFetcher creates a Fetcher that downloads a URL over HTTP and
// extracts a short summary from the returned HTML.
func NewHTTPFetcher(web *WebFetcher, maxChars int, timeout time.Duration) Fetcher {
	return &httpFetcher{web: web, maxChars: maxChars, timeout: timeout}
}

func (f *httpFetcher) Resolve(ctx context.Context, url string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	body, err := f.web.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	return summarizeHTML(body, url, f.maxChars), nil
}
