package api

import (
	"encoding/json"
	"net/http"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
)

type insightsRequest struct {
	Topics []topicSummaryDTO `json:"topics"`
}

type insightsResponse struct {
	Topics []topicSummaryDTO `json:"topics"`
}

// handleInsights implements POST /insights: generate an Insight for
// the one TopicSummary in the request body and return it attached.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Topics) == 0 {
		writeError(w, apperr.ErrValidation)
		return
	}

	topic := domain.TopicSummary{
		ID:         req.Topics[0].ID,
		Topic:      req.Topics[0].Topic,
		Metatopic:  req.Topics[0].Metatopic,
		Importance: req.Topics[0].Importance,
		Summary:    req.Topics[0].Summary,
		MessageIDs: req.Topics[0].MessageIDs,
	}

	insight, err := s.insights.Generate(r.Context(), topic)
	if err != nil {
		writeError(w, err)
		return
	}

	topic.Insight = &insight

	writeJSON(w, http.StatusOK, insightsResponse{Topics: []topicSummaryDTO{topicSummaryToDTO(topic)}})
}
