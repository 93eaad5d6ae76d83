package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"driftline/internal/domain"
)

// watermarkJSON is the wire form of a per-source watermark. An empty
// folder_ts means the source has never been loaded.
type watermarkJSON struct {
	Source    string    `json:"source"`
	FolderTS  string    `json:"folder_ts"`
	UpdatedAt time.Time `json:"updated_at"`
}

func watermarkToAPI(m *domain.Watermark) watermarkJSON {
	return watermarkJSON{Source: m.Source, FolderTS: m.FolderTS, UpdatedAt: m.UpdatedAt}
}

type watermarkListJSON struct {
	Watermarks []watermarkJSON `json:"watermarks"`
}

type resetWatermarkJSON struct {
	FolderTS string `json:"folder_ts"`
}

func (h *Handler) listWatermarks(w http.ResponseWriter, r *http.Request) {
	marks, err := h.watermarks.List(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := watermarkListJSON{Watermarks: make([]watermarkJSON, 0, len(marks))}
	for i := range marks {
		resp.Watermarks = append(resp.Watermarks, watermarkToAPI(&marks[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getWatermark(w http.ResponseWriter, r *http.Request) {
	mark, err := h.watermarks.Get(r.Context(), chi.URLParam(r, "source"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, watermarkToAPI(mark))
}

// resetWatermark rewinds a source. An empty folder_ts clears the watermark,
// so the next scan reloads every folder.
func (h *Handler) resetWatermark(w http.ResponseWriter, r *http.Request) {
	var body resetWatermarkJSON
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	mark, err := h.watermarks.Reset(r.Context(), chi.URLParam(r, "source"), body.FolderTS)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, watermarkToAPI(mark))
}
