package api

import "net/http"

type sourceDTO struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Name       string `json:"name"`
	SourceType string `json:"source_type"`
}

type sourcesResponse struct {
	Sources map[string][]sourceDTO `json:"sources"`
}

// handleListSources implements GET /sources: every known Source,
// grouped by Category into the shape spec.md §6 names.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	grouped := make(map[string][]sourceDTO)

	for _, src := range sources {
		category := src.Category
		if category == "" {
			category = "uncategorized"
		}

		grouped[category] = append(grouped[category], sourceDTO{
			ID:         src.ID,
			URL:        src.URL,
			Name:       src.Name,
			SourceType: src.Kind,
		})
	}

	writeJSON(w, http.StatusOK, sourcesResponse{Sources: grouped})
}
