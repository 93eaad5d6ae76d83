package ui

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"driftline/internal/ui/assets"
)

func MountRoutes(r chi.Router, h *Handler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.LoginSubmit)
	r.Post("/logout", h.Logout)

	staticFS, err := fs.Sub(assets.StaticFS(), "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/ui/static/", http.FileServer(http.FS(staticFS))))
	}

	r.Group(func(r chi.Router) {
		r.Use(h.CookieHeaderBridge)
		r.Use(authMiddleware)
		r.Use(h.EnsureCSRFToken)
		r.Use(h.RequireCSRF)
		r.Get("/", h.Home)
		r.Get("/datasets", h.DatasetsList)
		r.Get("/datasets/{datasetName}", h.DatasetsDetail)
		r.Post("/datasets/{datasetName}/trigger", h.DatasetsTrigger)
		r.Get("/runs", h.RunsList)
		r.Get("/runs/{runID}", h.RunsDetail)
		r.Get("/watermarks", h.WatermarksList)
	})
}
