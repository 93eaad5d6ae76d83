package api

import (
	"net/http"
	"strconv"
	"time"

	"driftline/internal/domain"
)

// pageFromQuery reads max_results and page_token query parameters.
// Invalid max_results values fall back to the default page size.
func pageFromQuery(r *http.Request) domain.PageRequest {
	page := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.MaxResults = n
		}
	}
	return page
}

// optQuery returns a pointer to the query parameter value, or nil when absent.
func optQuery(r *http.Request, key string) *string {
	if !r.URL.Query().Has(key) {
		return nil
	}
	v := r.URL.Query().Get(key)
	return &v
}

// timeQuery parses an RFC 3339 query parameter. Returns nil when absent.
func timeQuery(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, domain.ErrValidation("%s: %q is not an RFC 3339 timestamp", key, v)
	}
	return &t, nil
}

// boolQuery parses a boolean query parameter; absent or unparsable is false.
func boolQuery(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
