package ui

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"driftline/internal/domain"
)

func (h *Handler) DatasetsList(w http.ResponseWriter, r *http.Request) {
	pageReq := pageFromRequest(r, 30)
	items, total, err := h.Datasets.List(r.Context(), pageReq)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	rows := make([]datasetListRowData, 0, len(items))
	for i := range items {
		d := items[i]
		state := "active"
		if d.Paused {
			state = "paused"
		}
		rows = append(rows, datasetListRowData{
			Filter:   d.Name + " " + d.TableName() + " " + state,
			Name:     d.Name,
			URL:      "/ui/datasets/" + d.Name,
			Table:    d.TableName(),
			Location: "s3://" + d.Bucket + "/" + d.LandingPrefix(),
			Schedule: strOrDash(d.ScheduleCron),
			Paused:   d.Paused,
			Updated:  formatTime(d.UpdatedAt),
		})
	}

	renderHTML(w, http.StatusOK, datasetsListPage(principalFromContext(r.Context()), rows, pageReq, total))
}

func (h *Handler) DatasetsDetail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "datasetName")
	ds, err := h.Datasets.Get(r.Context(), name)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	wm, _ := h.Watermarks.Get(r.Context(), name)
	runs, _, _ := h.Runs.List(r.Context(), domain.RunFilter{
		DatasetName: &name,
		Page:        domain.PageRequest{MaxResults: 20},
	})

	runRows := make([]datasetRunRowData, 0, len(runs))
	for i := range runs {
		run := runs[i]
		runRows = append(runRows, datasetRunRowData{
			ID:       run.ID,
			URL:      "/ui/runs/" + run.ID,
			FolderTS: run.FolderTS,
			Status:   run.Status,
			Trigger:  run.TriggerType,
			Rows:     fmt.Sprintf("%d", run.RowsLoaded),
			Started:  formatTimePtr(run.StartedAt),
			Finished: formatTimePtr(run.FinishedAt),
		})
	}

	d := datasetDetailPageData{
		Principal:     principalFromContext(r.Context()),
		Name:          ds.Name,
		Table:         ds.TableName(),
		Location:      "s3://" + ds.Bucket + "/" + ds.LandingPrefix(),
		KeyColumns:    keyColumnsLabel(ds.KeyColumns),
		Schedule:      strOrDash(ds.ScheduleCron),
		Paused:        ds.Paused,
		Transformed:   ds.TransformHook != nil && *ds.TransformHook != "",
		CreatedBy:     ds.CreatedBy,
		Created:       formatTime(ds.CreatedAt),
		Notice:        r.URL.Query().Get("notice"),
		TriggerURL:    "/ui/datasets/" + ds.Name + "/trigger",
		Runs:          runRows,
		CSRFFieldFunc: csrfFieldProvider(r),
	}
	if wm != nil {
		d.WatermarkTS = folderTSOrDash(wm.FolderTS)
		d.WatermarkAt = formatTime(wm.UpdatedAt)
	} else {
		d.WatermarkTS = "-"
		d.WatermarkAt = "-"
	}

	renderHTML(w, http.StatusOK, datasetDetailPage(d))
}

func (h *Handler) DatasetsTrigger(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "datasetName")
	if err := r.ParseForm(); err != nil {
		renderHTML(w, http.StatusBadRequest, errorPage("Invalid Request", "Unable to parse form."))
		return
	}
	force := formBool(r.Form, "force")

	scan, err := h.Ingest.TriggerDataset(r.Context(), name, force)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	notice := "No new folders behind the watermark."
	if scan.Dispatched > 0 {
		notice = fmt.Sprintf("Dispatched %d file run(s) across %d folder(s).", scan.Dispatched, scan.Folders-scan.Skipped)
	}
	http.Redirect(w, r, "/ui/datasets/"+name+"?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}
