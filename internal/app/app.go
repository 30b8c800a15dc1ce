// Package app wires every component into a runnable server, the way
// the teacher's internal/app/app.go composes its per-mode runners from
// a single App holding cfg/database/logger. This spec has one mode
// (serve the HTTP API), so App is narrower: it builds the Store, Link
// Resolver, Ingestor, Clusterer, Summarizer, Insights Generator, and
// Progress Bus, then hands the result to api.Server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/channelintel/backend/internal/api"
	"github.com/channelintel/backend/internal/clusterer"
	"github.com/channelintel/backend/internal/config"
	"github.com/channelintel/backend/internal/ingest"
	"github.com/channelintel/backend/internal/insights"
	"github.com/channelintel/backend/internal/linkresolver"
	"github.com/channelintel/backend/internal/llm"
	"github.com/channelintel/backend/internal/progressbus"
	"github.com/channelintel/backend/internal/storage"
	"github.com/channelintel/backend/internal/summarizer"
)

// App holds every long-lived dependency the serve command needs.
type App struct {
	cfg    *config.Config
	db     *storage.DB
	logger *zerolog.Logger

	bus           *progressbus.Bus
	server        *api.Server
	channelClient *swappableChannelClient
}

// New connects to Postgres, runs migrations, and wires every component
// described in spec.md §4 into an http.Handler. The Telegram client, if
// configured, is started by the caller via RunTelegram in its own
// goroutine alongside Serve, since gotd/td's Client.Run blocks for the life of the
// connection and must own the authenticated RPC handle the Ingestor
// borrows.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	db, err := storage.New(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("run migrations: %w", err)
	}

	bus := progressbus.New(cfg.ProgressQueueSize, cfg.ProgressGracePeriod, logger)
	progressbus.MustRegister(prometheus.DefaultRegisterer)

	llmClient := newLLMClient(cfg, logger)
	resolver := newLinkResolver(cfg, db, logger)

	channelClient := &swappableChannelClient{}
	channelClient.store(noopChannelClient{})

	ingestor := ingest.New(db, channelClient, resolver, bus, ingest.Options{
		SourceConcurrency: cfg.ChannelFetchConcurrency,
		LinkConcurrency:   cfg.LinkResolverConcurrency,
	}, logger)

	clust := clusterer.New(llmClient, bus, logger)

	summ := summarizer.New(db, llmClient, summarizer.Options{
		MaxMessageChars: cfg.MaxMessageChars,
		RetryBackoff:    cfg.SummarizerRetryBackoff,
		WallClockCap:    cfg.SummarizerTimeout,
	}, logger)

	gen := insights.New(db, llmClient, logger)

	srv := api.New(db, ingestor, clust, summ, gen, bus, api.Limits{
		MaxSourcesPerRequest: cfg.MaxSourcesPerRequest,
		MaxMessageChars:      cfg.MaxMessageChars,
		MaxTopicsPerSummary:  cfg.MaxTopicsPerSummary,
	}, logger)

	return &App{cfg: cfg, db: db, logger: logger, bus: bus, server: srv, channelClient: channelClient}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.db.Close()
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Routes()
}

// Serve starts the HTTP server on cfg.HTTPPort and blocks until ctx is
// canceled or the server fails.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Int("port", a.cfg.HTTPPort).Msg("http server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	}
}

// RunTelegram authenticates a gotd/td client as a bot (when
// ENABLE_TELEGRAM_BOT and credentials are configured) and blocks for
// the life of the connection, the same shape as the teacher's
// telegramreader.Reader.Run. It must be started in its own goroutine
// before the Ingestor can successfully fetch a channel; until it
// authenticates, the Ingestor's ChannelClient returns
// errTelegramNotConfigured for every source.
func (a *App) RunTelegram(ctx context.Context) error {
	if !a.cfg.EnableTelegramBot || a.cfg.TelegramAPIID == 0 || a.cfg.TelegramAPIHash == "" {
		a.logger.Info().Msg("telegram client disabled, channel ingestion will fail until configured")

		return nil
	}

	client := telegram.NewClient(a.cfg.TelegramAPIID, a.cfg.TelegramAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{Path: a.cfg.TGSessionPath},
	})

	return client.Run(ctx, func(ctx context.Context) error {
		if _, err := client.Auth().Bot(ctx, a.cfg.TelegramBotToken); err != nil {
			return fmt.Errorf("bot auth: %w", err)
		}

		a.logger.Info().Msg("telegram client authenticated")

		a.channelClient.store(ingest.NewTelegramClient(client, a.logger))

		<-ctx.Done()

		return ctx.Err()
	})
}

// errTelegramNotConfigured is returned by every fetch attempted before
// a Telegram session has authenticated.
var errTelegramNotConfigured = errors.New("telegram client not configured")

// swappableChannelClient lets RunTelegram replace the Ingestor's
// ChannelClient once authentication completes, without the Ingestor
// needing to know that the real client starts its life unavailable.
type swappableChannelClient struct {
	current atomic.Value
}

func (c *swappableChannelClient) store(client ingest.ChannelClient) {
	c.current.Store(client)
}

func (c *swappableChannelClient) FetchChannelMessages(ctx context.Context, channelURL string, since, until time.Time) ([]ingest.FetchedMessage, error) {
	client, _ := c.current.Load().(ingest.ChannelClient)
	if client == nil {
		return nil, errTelegramNotConfigured
	}

	return client.FetchChannelMessages(ctx, channelURL, since, until)
}

func newLLMClient(cfg *config.Config, logger *zerolog.Logger) llm.Client {
	if cfg.LLMAPIKey == "" {
		logger.Warn().Msg("LLM_API_KEY not set, using mock LLM client")

		return llm.NewMockClient()
	}

	return llm.NewOpenAIClient(llm.OpenAIOptions{
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		RPS:         float64(cfg.LLMConcurrency),
		CallTimeout: cfg.LLMCallTimeout,
	}, logger)
}

func newLinkResolver(cfg *config.Config, db *storage.DB, logger *zerolog.Logger) *linkresolver.Resolver {
	web := linkresolver.NewWebFetcher(cfg.WebFetchRPS, cfg.LinkResolveTimeout)
	fetcher := linkresolver.NewHTTPFetcher(web, cfg.MaxContentLength, cfg.LinkResolveTimeout)

	return linkresolver.New(db, fetcher, linkresolver.Options{
		Concurrency: cfg.LinkResolverConcurrency,
		MaxAttempts: cfg.LinkResolverMaxAttempts,
	}, logger)
}

// noopChannelClient rejects every fetch, used when no Telegram
// credentials are configured; the Ingestor reports it as a per-source
// failure rather than the process failing to start, per spec.md §4.4's
// "per-source failures do not abort the batch".
type noopChannelClient struct{}

func (noopChannelClient) FetchChannelMessages(_ context.Context, _ string, _, _ time.Time) ([]ingest.FetchedMessage, error) {
	return nil, errTelegramNotConfigured
}
