package ui

import "net/http"

func (h *Handler) WatermarksList(w http.ResponseWriter, r *http.Request) {
	items, err := h.Watermarks.List(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	rows := make([]watermarkRowData, 0, len(items))
	for i := range items {
		wm := items[i]
		rows = append(rows, watermarkRowData{
			Filter:   wm.Source + " " + wm.FolderTS,
			Source:   wm.Source,
			URL:      "/ui/datasets/" + wm.Source,
			FolderTS: folderTSOrDash(wm.FolderTS),
			Updated:  formatTime(wm.UpdatedAt),
		})
	}

	renderHTML(w, http.StatusOK, watermarksListPage(principalFromContext(r.Context()), rows))
}
