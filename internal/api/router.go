package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mount attaches the API to r: health, spec and docs endpoints at the root,
// and the versioned resource routes under /v1 behind the auth middleware.
// auth may be nil (tests); production wiring passes the authenticator.
func (h *Handler) Mount(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/healthz", h.health)
	r.Get("/openapi.json", h.openapiJSON)
	r.Get("/docs", h.docs)

	r.Route("/v1", func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}

		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", h.listDatasets)
			r.Post("/", h.createDataset)
			r.Post("/apply", h.applyDatasets)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.getDataset)
				r.Patch("/", h.updateDataset)
				r.Delete("/", h.deleteDataset)
				r.Post("/trigger", h.triggerDataset)
			})
		})

		r.Post("/scan", h.scan)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.listRuns)
			r.Get("/{id}", h.getRun)
			r.Get("/{id}/events", h.listRunEvents)
		})

		r.Route("/watermarks", func(r chi.Router) {
			r.Get("/", h.listWatermarks)
			r.Get("/{source}", h.getWatermark)
			r.Post("/{source}/reset", h.resetWatermark)
		})

		r.Route("/keys", func(r chi.Router) {
			r.Get("/", h.listAPIKeys)
			r.Post("/", h.createAPIKey)
			r.Delete("/{id}", h.deleteAPIKey)
		})

		r.Get("/audit", h.listAuditEntries)

		r.Post("/validate", h.validateFile)
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
