// Package headers parses the "Name: value" strings given with --header and
// CRAWL_HEADERS.
package headers

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"
)

// reserved headers are managed by the engines. Cookies come from operator
// sessions instead.
var reserved = map[string]string{
	"Host":           "set from the URL",
	"Content-Length": "set by the transport",
	"Connection":     "set by the transport",
	"Cookie":         "use 'jobcrawl sessions import'",
}

// ParseHeaders converts "Name: value" strings into a map keyed by canonical
// header name. Blank entries are skipped. Malformed and reserved entries are
// reported together; the valid ones are still returned.
func ParseHeaders(h []string) (map[string]string, error) {
	m := make(map[string]string)
	var errs []error
	for _, hdr := range h {
		if strings.TrimSpace(hdr) == "" {
			continue
		}
		name, value, ok := strings.Cut(hdr, ":")
		name = strings.TrimSpace(name)
		if !ok || !validName(name) {
			errs = append(errs, fmt.Errorf("malformed header %q, want \"Name: value\"", hdr))
			continue
		}
		name = textproto.CanonicalMIMEHeaderKey(name)
		if why, ok := reserved[name]; ok {
			errs = append(errs, fmt.Errorf("header %s cannot be overridden (%s)", name, why))
			continue
		}
		m[name] = strings.TrimSpace(value)
	}
	return m, errors.Join(errs...)
}

// validName reports whether name is an RFC 7230 token.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r > 0x7e || r <= ' ' || strings.ContainsRune(`"(),/:;<=>?@[\]{}`, r) {
			return false
		}
	}
	return true
}
