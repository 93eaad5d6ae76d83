package ui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"driftline/internal/domain"
)

var runStatusFilters = []string{
	domain.RunStatusPending,
	domain.RunStatusRunning,
	domain.RunStatusSuccess,
	domain.RunStatusFailed,
	domain.RunStatusSkipped,
	domain.RunStatusCancelled,
}

func (h *Handler) RunsList(w http.ResponseWriter, r *http.Request) {
	pageReq := pageFromRequest(r, 30)
	filter := domain.RunFilter{Page: pageReq}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" {
		filter.Status = &status
	}
	datasetName := strings.TrimSpace(r.URL.Query().Get("dataset"))
	if datasetName != "" {
		filter.DatasetName = &datasetName
	}

	items, total, err := h.Runs.List(r.Context(), filter)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	rows := make([]runListRowData, 0, len(items))
	for i := range items {
		run := items[i]
		rows = append(rows, runListRowData{
			Filter:   run.DatasetName + " " + run.Status + " " + run.FolderTS,
			ID:       run.ID,
			URL:      "/ui/runs/" + run.ID,
			Dataset:  run.DatasetName,
			FolderTS: run.FolderTS,
			Status:   run.Status,
			Trigger:  run.TriggerType,
			Started:  formatTimePtr(run.StartedAt),
			Finished: formatTimePtr(run.FinishedAt),
		})
	}

	renderHTML(w, http.StatusOK, runsListPage(principalFromContext(r.Context()), runsListPageData{
		Rows:           rows,
		SelectedStatus: status,
		Dataset:        datasetName,
		Page:           pageReq,
		Total:          total,
	}))
}

func (h *Handler) RunsDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	run, err := h.Runs.Get(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	events, _ := h.Runs.Events(r.Context(), id)

	eventRows := make([]runEventRowData, 0, len(events))
	for i := range events {
		ev := events[i]
		eventRows = append(eventRows, runEventRowData{
			Step:    ev.Step,
			Level:   ev.Level,
			Message: ev.Message,
			At:      formatTime(ev.At),
		})
	}

	renderHTML(w, http.StatusOK, runDetailPage(runDetailPageData{
		Principal:    principalFromContext(r.Context()),
		ID:           run.ID,
		Dataset:      run.DatasetName,
		DatasetURL:   "/ui/datasets/" + run.DatasetName,
		ObjectKey:    run.ObjectKey,
		FolderTS:     run.FolderTS,
		Status:       run.Status,
		Trigger:      run.TriggerType,
		TriggeredBy:  run.TriggeredBy,
		RowsLoaded:   fmt.Sprintf("%d", run.RowsLoaded),
		RowsDropped:  fmt.Sprintf("%d", run.RowsDropped),
		RetryAttempt: fmt.Sprintf("%d", run.RetryAttempt),
		ErrorMessage: strOrDash(run.ErrorMessage),
		Started:      formatTimePtr(run.StartedAt),
		Finished:     formatTimePtr(run.FinishedAt),
		Events:       eventRows,
	}))
}
