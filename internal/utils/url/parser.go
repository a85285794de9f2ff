package urlutil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// PageURL returns the URL of results page n (zero-based). Page 0 is the start
// URL verbatim; later pages append start=n*pageSize to the query string.
func PageURL(startURL string, n, pageSize int) string {
	if n <= 0 {
		return startURL
	}
	sep := "?"
	if strings.Contains(startURL, "?") {
		sep = "&"
	}
	return startURL + sep + "start=" + strconv.Itoa(n*pageSize)
}

// ViewJobURL builds the canonical posting URL for a job id on base.
func ViewJobURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/viewjob?jk=" + url.QueryEscape(id)
}

// Origin returns scheme://host of rawURL, or "" when it has no host.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
