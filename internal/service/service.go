// Package service wires the metastore to the transport layer: dataset
// registration, run history, watermark control, API keys and audit.
// The load pipeline itself lives in the ingest subpackage.
package service

import (
	"context"

	"driftline/internal/domain"
)

// callerName returns the authenticated principal's name, or "anonymous".
func callerName(ctx context.Context) string {
	if p, ok := domain.PrincipalFromContext(ctx); ok && p.Name != "" {
		return p.Name
	}
	return "anonymous"
}

// requireAdmin rejects callers without the admin flag.
func requireAdmin(ctx context.Context) error {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrAccessDenied("authentication required")
	}
	if !p.IsAdmin {
		return domain.ErrAccessDenied("admin privileges required")
	}
	return nil
}
