package cli

import (
	"fmt"
	"net/url"
	"strings"
)

// validateHostURL accepts only a bare http(s) origin. Paths, queries, and
// fragments are rejected so the client's own /v1 prefixing cannot double up.
func validateHostURL(host string) error {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return fmt.Errorf("invalid host: URL is empty")
	}
	u, err := url.Parse(trimmed)
	switch {
	case err != nil:
		return fmt.Errorf("invalid host %q: %w", host, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("invalid host %q: scheme must be http or https", host)
	case u.Host == "":
		return fmt.Errorf("invalid host %q: missing host name", host)
	case u.Path != "" && u.Path != "/":
		return fmt.Errorf("invalid host %q: must not carry a path", host)
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("invalid host %q: must not carry a query or fragment", host)
	}
	return nil
}
