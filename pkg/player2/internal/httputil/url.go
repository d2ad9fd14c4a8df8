// ABOUTME: Base URL normalization and endpoint joining for the Player2 API
// ABOUTME: Rejects non-HTTP schemes; keeps version segments like /v1 intact

package httputil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrEmptyBaseURL is returned when no base URL is configured.
var ErrEmptyBaseURL = errors.New("base URL is empty")

// NormalizeBaseURL trims whitespace and trailing slashes and checks that
// the URL is absolute http(s). Unlike some APIs the version segment is part
// of the base here, so "/v1" is preserved.
func NormalizeBaseURL(baseURL string) (string, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return "", ErrEmptyBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base URL %q: missing host", baseURL)
	}

	return baseURL, nil
}

// JoinPath appends path to base with exactly one slash between them.
func JoinPath(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
