package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/channelintel/backend/internal/apperr"
)

// statusFor maps a sentinel apperr value to its HTTP status code, per
// spec.md §7's error-handling table.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUpstreamTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrUpstreamSchema):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrStorage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
