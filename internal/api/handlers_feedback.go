package api

import (
	"encoding/json"
	"net/http"

	"github.com/channelintel/backend/internal/apperr"
)

var validFeedbackTypes = map[string]struct{}{
	"feedback": {},
	"question": {},
	"bug":      {},
}

type feedbackRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// handleFeedback implements POST /feedback.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, apperr.ErrValidation)
		return
	}

	if _, ok := validFeedbackTypes[req.Type]; !ok {
		writeError(w, apperr.ErrValidation)
		return
	}

	if err := s.store.SaveFeedback(r.Context(), req.Email, req.Message, req.Type); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type subscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source,omitempty"`
}

// handleSubscribe implements POST /subscribe. A duplicate email is not
// an error: the Store's SaveSubscriber upserts with ON CONFLICT DO
// NOTHING per spec.md §8 scenario 6.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, apperr.ErrValidation)
		return
	}

	if err := s.store.SaveSubscriber(r.Context(), req.Email, req.Source); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
