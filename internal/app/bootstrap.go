package app

import (
	"context"
	"log/slog"

	"driftline/internal/declarative"
	"driftline/internal/service"
)

// applyDatasetDir upserts every dataset definition found under dir.
// Best-effort: a bad file or a rejected document is logged and skipped so one
// broken definition cannot keep the server from starting.
func applyDatasetDir(ctx context.Context, dir string, datasets *service.DatasetService, logger *slog.Logger) {
	docs, err := declarative.LoadDirectory(dir)
	if err != nil {
		logger.Warn("load dataset definitions failed", "dir", dir, "error", err)
		return
	}
	if len(docs) == 0 {
		return
	}

	applied := 0
	for _, res := range declarative.Apply(ctx, datasets, docs) {
		if res.Error != "" {
			logger.Warn("apply dataset definition failed", "dataset", res.Name, "error", res.Error)
			continue
		}
		applied++
		logger.Info("dataset definition applied", "dataset", res.Name, "action", res.Action)
	}
	logger.Info("declarative datasets applied", "dir", dir, "applied", applied, "total", len(docs))
}
