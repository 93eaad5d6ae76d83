package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"driftline/internal/domain"
)

// apiKeyJSON is the wire form of an API key record. The raw key appears only
// in the creation response.
type apiKeyJSON struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyPrefix string     `json:"key_prefix"`
	CreatedBy string     `json:"created_by"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func apiKeyToAPI(k *domain.APIKey) apiKeyJSON {
	return apiKeyJSON{
		ID:        k.ID,
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix,
		CreatedBy: k.CreatedBy,
		ExpiresAt: k.ExpiresAt,
		CreatedAt: k.CreatedAt,
	}
}

type apiKeyListJSON struct {
	Keys          []apiKeyJSON `json:"keys"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

type createAPIKeyJSON struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type createdAPIKeyJSON struct {
	Key    string     `json:"key"` // shown once, never retrievable again
	APIKey apiKeyJSON `json:"api_key"`
}

func (h *Handler) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	keys, total, err := h.keys.List(r.Context(), page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := apiKeyListJSON{Keys: make([]apiKeyJSON, 0, len(keys))}
	for i := range keys {
		resp.Keys = append(resp.Keys, apiKeyToAPI(&keys[i]))
	}
	resp.NextPageToken = domain.NextPageToken(page.Offset(), page.Limit(), total)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createAPIKey(w http.ResponseWriter, r *http.Request) {
	var body createAPIKeyJSON
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	rawKey, key, err := h.keys.Create(r.Context(), domain.CreateAPIKeyRequest{
		Name:      body.Name,
		ExpiresAt: body.ExpiresAt,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdAPIKeyJSON{Key: rawKey, APIKey: apiKeyToAPI(key)})
}

func (h *Handler) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
