package api

import (
	"net/http"
	"time"

	"github.com/channelintel/backend/internal/apperr"
)

type messageResponse struct {
	Source  string    `json:"source"`
	Date    time.Time `json:"date"`
	Content string    `json:"content"`
}

// handleGetMessage implements GET /message/{id}.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.ErrValidation)
		return
	}

	msg, err := s.store.GetMessageByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Source:  msg.SourceURL,
		Date:    msg.Timestamp,
		Content: msg.Text,
	})
}
