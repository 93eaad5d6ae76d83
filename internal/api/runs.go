package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"driftline/internal/domain"
)

// runJSON is the wire form of a processing run.
type runJSON struct {
	ID           string     `json:"id"`
	Dataset      string     `json:"dataset"`
	ObjectKey    string     `json:"object_key"`
	FolderTS     string     `json:"folder_ts"`
	Status       string     `json:"status"`
	TriggerType  string     `json:"trigger_type"`
	TriggeredBy  string     `json:"triggered_by"`
	RowsLoaded   int64      `json:"rows_loaded"`
	RowsDropped  int64      `json:"rows_dropped"`
	RetryAttempt int        `json:"retry_attempt"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func runToAPI(run *domain.Run) runJSON {
	return runJSON{
		ID:           run.ID,
		Dataset:      run.DatasetName,
		ObjectKey:    run.ObjectKey,
		FolderTS:     run.FolderTS,
		Status:       run.Status,
		TriggerType:  run.TriggerType,
		TriggeredBy:  run.TriggeredBy,
		RowsLoaded:   run.RowsLoaded,
		RowsDropped:  run.RowsDropped,
		RetryAttempt: run.RetryAttempt,
		ErrorMessage: run.ErrorMessage,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		CreatedAt:    run.CreatedAt,
	}
}

type runListJSON struct {
	Runs          []runJSON `json:"runs"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

type runEventJSON struct {
	ID      string    `json:"id"`
	Step    string    `json:"step"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type runEventListJSON struct {
	Events []runEventJSON `json:"events"`
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	filter := domain.RunFilter{
		DatasetName: optQuery(r, "dataset"),
		Status:      optQuery(r, "status"),
		Page:        pageFromQuery(r),
	}
	runs, total, err := h.runs.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := runListJSON{Runs: make([]runJSON, 0, len(runs))}
	for i := range runs {
		resp.Runs = append(resp.Runs, runToAPI(&runs[i]))
	}
	resp.NextPageToken = domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runToAPI(run))
}

func (h *Handler) listRunEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.runs.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := runEventListJSON{Events: make([]runEventJSON, 0, len(events))}
	for _, ev := range events {
		resp.Events = append(resp.Events, runEventJSON{
			ID:      ev.ID,
			Step:    ev.Step,
			Level:   ev.Level,
			Message: ev.Message,
			At:      ev.At,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
