package domain

import (
	"encoding/base64"
	"strconv"
)

// Page size bounds shared by every list endpoint (datasets, runs, keys,
// audit). Requests outside the range are clamped, not rejected.
const (
	DefaultMaxResults = 100
	MaxMaxResults     = 1000
)

// PageRequest carries the max_results / page_token pair from a list call.
// The token is opaque to callers; internally it is a URL-safe base64 offset.
type PageRequest struct {
	MaxResults int
	PageToken  string
}

// Offset decodes the page token. Empty, malformed, or negative tokens all
// restart at the first page rather than erroring, so a stale token degrades
// gracefully.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	decoded, err := base64.RawURLEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Limit clamps the requested page size into [1, MaxMaxResults], defaulting
// when unset.
func (p PageRequest) Limit() int {
	switch {
	case p.MaxResults <= 0:
		return DefaultMaxResults
	case p.MaxResults > MaxMaxResults:
		return MaxMaxResults
	default:
		return p.MaxResults
	}
}

// EncodePageToken renders an offset as an opaque token. Offset zero means
// the first page and needs no token.
func EncodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// NextPageToken returns the token for the page after the current one, or ""
// when the current page already reaches the total.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if int64(next) >= total {
		return ""
	}
	return EncodePageToken(next)
}
