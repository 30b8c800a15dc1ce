// Package api implements the HTTP API glue component of spec.md §4.8:
// request parsing/validation, request-id allocation for long-running
// operations, and the SSE bridge from the Progress Bus. Routing is a
// plain net/http.ServeMux with a hand-rolled middleware chain —
// grounded on the teacher's internal/platform/observability/health.go
// (ServeMux + promhttp.Handler) and internal/research/handler.go
// (dispatch + metrics/logging wrapper), not a third-party router.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/ingest"
	"github.com/channelintel/backend/internal/summarizer"
)

// Store is the subset of the storage layer the HTTP API depends on
// directly (beyond what the Ingestor/Clusterer/Summarizer/Insights
// components already wrap).
type Store interface {
	ListSources(ctx context.Context) ([]domain.Source, error)
	UpsertSource(ctx context.Context, s *domain.Source) (string, error)
	GetMessageByID(ctx context.Context, id string) (*domain.Message, error)
	TopicSummariesForPeriod(ctx context.Context, period domain.Period) ([]domain.TopicSummary, error)
	SaveFeedback(ctx context.Context, email, message, kind string) error
	SaveSubscriber(ctx context.Context, email, source string) error
}

// Ingestor is the Channel Ingestor boundary the API launches
// in the background for /save-telegram-channels.
type Ingestor interface {
	Run(ctx context.Context, req ingest.Request) error
}

// Clusterer is the Clusterer boundary.
type Clusterer interface {
	Cluster(ctx context.Context, requestID string, channels []domain.Channel) ([]domain.ChannelTopicGroup, error)
}

// Summarizer is the Summarizer boundary.
type Summarizer interface {
	Summarize(ctx context.Context, req summarizer.Request) (summarizer.Response, error)
}

// InsightsGenerator is the Insights Generator boundary.
type InsightsGenerator interface {
	Generate(ctx context.Context, topic domain.TopicSummary) (domain.Insight, error)
}

// ProgressBus is the subset of progressbus.Bus the SSE handler needs.
type ProgressBus interface {
	Subscribe(requestID string) (<-chan domain.ProgressEvent, func())
	Snapshot(requestID string) (domain.ProgressEvent, bool)
}

// Limits bounds per-endpoint request sizes, per spec.md §4.8.
type Limits struct {
	MaxSourcesPerRequest int
	MaxMessageChars      int
	MaxTopicsPerSummary  int
}

// Server wires every HTTP API dependency together.
type Server struct {
	store      Store
	ingestor   Ingestor
	clusterer  Clusterer
	summarizer Summarizer
	insights   InsightsGenerator
	bus        ProgressBus
	limits     Limits
	logger     *zerolog.Logger
}

// New creates a Server.
func New(store Store, ingestor Ingestor, clusterer Clusterer, summarizer Summarizer, insights InsightsGenerator, bus ProgressBus, limits Limits, logger *zerolog.Logger) *Server {
	if limits.MaxSourcesPerRequest <= 0 {
		limits.MaxSourcesPerRequest = 50
	}

	if limits.MaxMessageChars <= 0 {
		limits.MaxMessageChars = 1000
	}

	if limits.MaxTopicsPerSummary <= 0 {
		limits.MaxTopicsPerSummary = 20
	}

	return &Server{
		store:      store,
		ingestor:   ingestor,
		clusterer:  clusterer,
		summarizer: summarizer,
		insights:   insights,
		bus:        bus,
		limits:     limits,
		logger:     logger,
	}
}

// Routes builds the ServeMux and wraps it in the middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /sources", s.handleListSources)
	mux.HandleFunc("GET /summaries", s.handleSummaries)
	mux.HandleFunc("POST /insights", s.handleInsights)
	mux.HandleFunc("GET /message/{id}", s.handleGetMessage)
	mux.HandleFunc("POST /upload-telegram-export", s.handleUploadExport)
	mux.HandleFunc("POST /cluster-channels", s.handleClusterChannels)
	mux.HandleFunc("POST /save-telegram-channels", s.handleSaveTelegramChannels)
	mux.HandleFunc("GET /channel-progress", s.handleChannelProgress)
	mux.HandleFunc("POST /feedback", s.handleFeedback)
	mux.HandleFunc("POST /subscribe", s.handleSubscribe)

	var handler http.Handler = mux
	handler = withRecover(s.logger, handler)
	handler = withAccessLog(s.logger, handler)
	handler = withRequestID(handler)

	return handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListSources(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))

		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
