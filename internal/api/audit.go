package api

import (
	"net/http"
	"time"

	"driftline/internal/domain"
)

// auditEntryJSON is the wire form of an audit record.
type auditEntryJSON struct {
	ID            string    `json:"id"`
	PrincipalName string    `json:"principal_name"`
	Action        string    `json:"action"`
	ResourceType  *string   `json:"resource_type,omitempty"`
	ResourceName  *string   `json:"resource_name,omitempty"`
	Status        string    `json:"status"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	DurationMs    *int64    `json:"duration_ms,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type auditListJSON struct {
	Entries       []auditEntryJSON `json:"entries"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

func (h *Handler) listAuditEntries(w http.ResponseWriter, r *http.Request) {
	since, err := timeQuery(r, "since")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	filter := domain.AuditFilter{
		PrincipalName: optQuery(r, "principal"),
		Action:        optQuery(r, "action"),
		Status:        optQuery(r, "status"),
		Since:         since,
		Page:          pageFromQuery(r),
	}

	entries, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := auditListJSON{Entries: make([]auditEntryJSON, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, auditEntryJSON{
			ID:            e.ID,
			PrincipalName: e.PrincipalName,
			Action:        e.Action,
			ResourceType:  e.ResourceType,
			ResourceName:  e.ResourceName,
			Status:        e.Status,
			ErrorMessage:  e.ErrorMessage,
			DurationMs:    e.DurationMs,
			CreatedAt:     e.CreatedAt,
		})
	}
	resp.NextPageToken = domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total)
	writeJSON(w, http.StatusOK, resp)
}
