package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// FetchAllPages follows next_page_token until the listing is exhausted and
// returns the concatenated items found under listKey. baseQuery is never
// mutated.
func FetchAllPages(client *Client, method, path, listKey string, baseQuery url.Values) ([]any, error) {
	var items []any
	pageToken := ""

	for {
		query := url.Values{}
		for k, v := range baseQuery {
			query[k] = v
		}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		resp, err := client.Do(method, path, query, nil)
		if err != nil {
			return nil, err
		}
		if err := CheckError(resp); err != nil {
			return nil, err
		}
		body, err := ReadBody(resp)
		if err != nil {
			return nil, err
		}

		var page map[string]any
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		if list, ok := page[listKey].([]any); ok {
			items = append(items, list...)
		}

		next, _ := page["next_page_token"].(string)
		if next == "" {
			return items, nil
		}
		pageToken = next
	}
}

// fetchList retrieves one page of a listing, or every page when all is set.
func fetchList(client *Client, path, listKey string, query url.Values, all bool) ([]any, error) {
	if all {
		return FetchAllPages(client, http.MethodGet, path, listKey, query)
	}
	page, err := fetchJSON(client, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	items, _ := page[listKey].([]any)
	return items, nil
}
