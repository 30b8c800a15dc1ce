package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/ingest"
)

type saveTelegramChannelsRequest struct {
	Channels []channelDTO  `json:"channels"`
	Period   domain.Period `json:"period"`
}

type saveTelegramChannelsResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// handleSaveTelegramChannels implements POST /save-telegram-channels:
// sources are upserted synchronously so the returned count is exact,
// then the Channel Ingestor's fetch-and-persist pass is launched in
// the background under the same request id, since it is a
// potentially slow multi-source operation the client tracks via
// GET /channel-progress rather than waiting on in this response.
func (s *Server) handleSaveTelegramChannels(w http.ResponseWriter, r *http.Request) {
	var req saveTelegramChannelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Channels) == 0 {
		writeError(w, apperr.ErrValidation)
		return
	}

	span, ok := req.Period.Duration()
	if !ok {
		writeError(w, apperr.ErrValidation)
		return
	}

	urls := make([]string, 0, len(req.Channels))

	for _, c := range req.Channels {
		url := c.URL
		if url == "" {
			url = c.ID
		}

		if _, err := s.store.UpsertSource(r.Context(), &domain.Source{URL: url, Name: c.Name, Kind: "telegram"}); err != nil {
			writeError(w, err)
			return
		}

		urls = append(urls, url)
	}

	requestID := requestIDFrom(r.Context())
	until := time.Now()
	since := until.Add(-span)

	go func() {
		ctx := context.WithoutCancel(r.Context())

		if err := s.ingestor.Run(ctx, ingest.Request{RequestID: requestID, SourceURLs: urls, Since: since, Until: until}); err != nil {
			if s.logger != nil {
				s.logger.Error().Err(err).Str("request_id", requestID).Msg("background channel ingest failed")
			}
		}
	}()

	writeJSON(w, http.StatusOK, saveTelegramChannelsResponse{Success: true, Count: len(urls)})
}
