package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"driftline/internal/declarative"
	"driftline/internal/domain"
)

// datasetJSON is the wire form of a dataset registration.
type datasetJSON struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Table           string    `json:"table"`
	Bucket          string    `json:"bucket"`
	Prefix          string    `json:"prefix"`
	KeyColumns      []string  `json:"key_columns"`
	ScheduleCron    *string   `json:"schedule_cron,omitempty"`
	TransformHook   *string   `json:"transform_hook,omitempty"`
	Paused          bool      `json:"paused"`
	NotifyOnSuccess bool      `json:"notify_on_success"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func datasetToAPI(d *domain.Dataset) datasetJSON {
	return datasetJSON{
		ID:              d.ID,
		Name:            d.Name,
		Table:           d.TableName(),
		Bucket:          d.Bucket,
		Prefix:          d.LandingPrefix(),
		KeyColumns:      d.KeyColumns,
		ScheduleCron:    d.ScheduleCron,
		TransformHook:   d.TransformHook,
		Paused:          d.Paused,
		NotifyOnSuccess: d.NotifyOnSuccess,
		CreatedBy:       d.CreatedBy,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type datasetListJSON struct {
	Datasets      []datasetJSON `json:"datasets"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type createDatasetJSON struct {
	Name            string   `json:"name"`
	Table           string   `json:"table"`
	Bucket          string   `json:"bucket"`
	Prefix          string   `json:"prefix"`
	KeyColumns      []string `json:"key_columns"`
	ScheduleCron    *string  `json:"schedule_cron"`
	TransformHook   *string  `json:"transform_hook"`
	Paused          bool     `json:"paused"`
	NotifyOnSuccess bool     `json:"notify_on_success"`
}

type updateDatasetJSON struct {
	Table           *string   `json:"table"`
	Bucket          *string   `json:"bucket"`
	Prefix          *string   `json:"prefix"`
	KeyColumns      *[]string `json:"key_columns"`
	ScheduleCron    *string   `json:"schedule_cron"`
	TransformHook   *string   `json:"transform_hook"`
	Paused          *bool     `json:"paused"`
	NotifyOnSuccess *bool     `json:"notify_on_success"`
}

func (h *Handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	datasets, total, err := h.datasets.List(r.Context(), page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := datasetListJSON{Datasets: make([]datasetJSON, 0, len(datasets))}
	for i := range datasets {
		resp.Datasets = append(resp.Datasets, datasetToAPI(&datasets[i]))
	}
	resp.NextPageToken = domain.NextPageToken(page.Offset(), page.Limit(), total)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createDataset(w http.ResponseWriter, r *http.Request) {
	var body createDatasetJSON
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	ds, err := h.datasets.Create(r.Context(), domain.CreateDatasetRequest{
		Name:            body.Name,
		Table:           body.Table,
		Bucket:          body.Bucket,
		Prefix:          body.Prefix,
		KeyColumns:      body.KeyColumns,
		ScheduleCron:    body.ScheduleCron,
		TransformHook:   body.TransformHook,
		Paused:          body.Paused,
		NotifyOnSuccess: body.NotifyOnSuccess,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, datasetToAPI(ds))
}

func (h *Handler) getDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.datasets.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetToAPI(ds))
}

func (h *Handler) updateDataset(w http.ResponseWriter, r *http.Request) {
	var body updateDatasetJSON
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	ds, err := h.datasets.Update(r.Context(), chi.URLParam(r, "name"), domain.UpdateDatasetRequest{
		Table:           body.Table,
		Bucket:          body.Bucket,
		Prefix:          body.Prefix,
		KeyColumns:      body.KeyColumns,
		ScheduleCron:    body.ScheduleCron,
		TransformHook:   body.TransformHook,
		Paused:          body.Paused,
		NotifyOnSuccess: body.NotifyOnSuccess,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetToAPI(ds))
}

func (h *Handler) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.datasets.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type applyResultsJSON struct {
	Results []declarative.ApplyResult `json:"results"`
}

// applyDatasets upserts the YAML documents in the request body. Per-document
// failures are reported in the results, not as a request failure.
func (h *Handler) applyDatasets(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body: %v", err)
		return
	}

	docs, err := declarative.Parse(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse: %v", err)
		return
	}
	if len(docs) == 0 {
		writeError(w, http.StatusBadRequest, "no dataset documents in request body")
		return
	}

	results := declarative.Apply(r.Context(), h.datasets, docs)
	writeJSON(w, http.StatusOK, applyResultsJSON{Results: results})
}

// triggerDataset scans one dataset on demand. force=true reloads folders the
// watermark already covers.
func (h *Handler) triggerDataset(w http.ResponseWriter, r *http.Request) {
	scan, err := h.ingest.TriggerDataset(r.Context(), chi.URLParam(r, "name"), boolQuery(r, "force"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, scan)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	report, err := h.ingest.Scan(r.Context(), domain.TriggerTypeManual)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, report)
}
