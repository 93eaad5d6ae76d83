package ui

import (
	"errors"
	"net/http"

	"driftline/internal/domain"
)

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	datasets, totalDatasets, err := h.Datasets.List(r.Context(), domain.PageRequest{MaxResults: 8})
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	runs, totalRuns, _ := h.Runs.List(r.Context(), domain.RunFilter{Page: domain.PageRequest{MaxResults: 8}})
	watermarks, _ := h.Watermarks.List(r.Context())

	paused := 0
	for i := range datasets {
		if datasets[i].Paused {
			paused++
		}
	}
	failed := 0
	for i := range runs {
		if runs[i].Status == domain.RunStatusFailed {
			failed++
		}
	}

	datasetRows := make([]overviewDatasetRow, 0, len(datasets))
	for i := range datasets {
		d := datasets[i]
		datasetRows = append(datasetRows, overviewDatasetRow{
			Name:     d.Name,
			URL:      "/ui/datasets/" + d.Name,
			Table:    d.TableName(),
			Schedule: strOrDash(d.ScheduleCron),
			Paused:   d.Paused,
		})
	}
	runRows := make([]overviewRunRow, 0, len(runs))
	for i := range runs {
		run := runs[i]
		runRows = append(runRows, overviewRunRow{
			ID:      run.ID,
			URL:     "/ui/runs/" + run.ID,
			Dataset: run.DatasetName,
			Status:  run.Status,
			Started: formatTimePtr(run.StartedAt),
		})
	}
	watermarkRows := make([]overviewWatermarkRow, 0, len(watermarks))
	for i := range watermarks {
		wm := watermarks[i]
		watermarkRows = append(watermarkRows, overviewWatermarkRow{
			Source:   wm.Source,
			URL:      "/ui/datasets/" + wm.Source,
			FolderTS: folderTSOrDash(wm.FolderTS),
			Updated:  formatTime(wm.UpdatedAt),
		})
	}

	renderHTML(w, http.StatusOK, overviewPage(principalFromContext(r.Context()), overviewPageData{
		TotalDatasets:  totalDatasets,
		PausedDatasets: paused,
		TotalRuns:      totalRuns,
		RecentFailed:   failed,
		Datasets:       datasetRows,
		Runs:           runRows,
		Watermarks:     watermarkRows,
	}))
}

func strOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func folderTSOrDash(ts string) string {
	if ts == "" {
		return "-"
	}
	return ts
}

func keyColumnsLabel(columns []string) string {
	if len(columns) == 0 {
		return "-"
	}
	out := columns[0]
	for i := 1; i < len(columns); i++ {
		out += ", " + columns[i]
	}
	return out
}

func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	title := "Unexpected Error"
	message := "An unexpected error occurred while loading this page."

	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	if errors.As(err, &notFound) {
		status = http.StatusNotFound
		title = "Not Found"
		message = notFound.Error()
	} else if errors.As(err, &accessDenied) {
		status = http.StatusForbidden
		title = "Access Denied"
		message = accessDenied.Error()
	} else if errors.As(err, &validation) {
		status = http.StatusBadRequest
		title = "Invalid Request"
		message = validation.Error()
	} else if errors.As(err, &conflict) {
		status = http.StatusConflict
		title = "Conflict"
		message = conflict.Error()
	}

	_ = r
	renderHTML(w, status, errorPage(title, message))
}
