package api

import (
	"net/http"
	"strings"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/summarizer"
)

type summariesResponse struct {
	Topics          []topicSummaryDTO `json:"topics"`
	NoMessagesFound bool              `json:"noMessagesFound,omitempty"`
}

// handleSummaries implements GET /summaries?period=&sources=, per
// spec.md §4.6/§6: resolve the requested window, filter to the given
// sources (all sources if omitted), and run the Summarizer.
func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	period := domain.Period(r.URL.Query().Get("period"))
	if _, ok := period.Duration(); !ok {
		writeError(w, apperr.ErrValidation)
		return
	}

	var sources []string
	if raw := r.URL.Query().Get("sources"); raw != "" {
		for _, src := range strings.Split(raw, ",") {
			if src = strings.TrimSpace(src); src != "" {
				sources = append(sources, src)
			}
		}
	}

	if len(sources) > s.limits.MaxSourcesPerRequest {
		writeError(w, apperr.ErrValidation)
		return
	}

	resp, err := s.summarizer.Summarize(r.Context(), summarizer.Request{
		RequestID: requestIDFrom(r.Context()),
		Period:    period,
		Sources:   sources,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summariesResponse{
		Topics:          topicSummariesToDTO(resp.Topics),
		NoMessagesFound: resp.NoMessagesFound,
	})
}
