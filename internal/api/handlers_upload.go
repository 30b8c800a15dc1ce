package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
)

const maxUploadBytes = 32 << 20 // 32MiB, generous for a Telegram data export.

// exportChannel mirrors one entry of Telegram's data-export channel
// list: an id, a display name, an optional url, and a "left the
// channel" flag.
type exportChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Left bool   `json:"left,omitempty"`
}

type uploadExportResponse struct {
	Success  bool         `json:"success"`
	Channels []channelDTO `json:"channels"`
}

type channelDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Left bool   `json:"left,omitempty"`
}

// handleUploadExport implements POST /upload-telegram-export: a
// multipart `file` field holding the export's channel list as JSON.
func (s *Server) handleUploadExport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.ErrValidation)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.ErrValidation)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, apperr.ErrValidation)
		return
	}

	var exported []exportChannel
	if err := json.Unmarshal(raw, &exported); err != nil {
		writeError(w, apperr.ErrValidation)
		return
	}

	channels := make([]channelDTO, 0, len(exported))
	for _, c := range exported {
		if c.ID == "" {
			continue
		}

		channels = append(channels, channelDTO{ID: c.ID, Name: c.Name, URL: c.URL, Left: c.Left})
	}

	writeJSON(w, http.StatusOK, uploadExportResponse{Success: true, Channels: channels})
}

func channelDTOsToDomain(in []channelDTO) []domain.Channel {
	out := make([]domain.Channel, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Channel{ID: c.ID, Name: c.Name, URL: c.URL, Left: c.Left})
	}

	return out
}
