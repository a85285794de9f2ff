package auth

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// ParseJSONCookies reads a JSON array of cookies as exported by browser
// extensions or DevTools.
func ParseJSONCookies(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	if err := json.NewDecoder(r).Decode(&cookies); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return cookies, nil
}

// ParseNetscapeCookies reads a Netscape/curl cookies.txt file:
// domain, include-subdomains, path, secure, expiry (unix seconds), name, value.
func ParseNetscapeCookies(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			fields = strings.Fields(line)
		}
		if len(fields) < 7 {
			continue
		}

		cookie := Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    strings.Join(fields[6:], " "),
			HTTPOnly: httpOnly,
		}
		if exp, err := strconv.ParseInt(fields[4], 10, 64); err == nil && exp > 0 {
			cookie.Expires = float64(exp)
		}
		cookies = append(cookies, cookie)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}

// NewImportedSession builds a session from imported cookies. The session
// expires with its earliest-expiring cookie.
func NewImportedSession(name, url string, cookies []Cookie, now time.Time) (*SessionData, error) {
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies imported")
	}
	session := &SessionData{
		Name:      name,
		URL:       url,
		Cookies:   cookies,
		Headers:   make(map[string]string),
		CreatedAt: now,
	}
	var earliest time.Time
	for _, c := range cookies {
		if c.Expires > 0 {
			expiry := time.Unix(int64(c.Expires), 0)
			if earliest.IsZero() || expiry.Before(earliest) {
				earliest = expiry
			}
		}
	}
	session.ExpiresAt = earliest
	return session, nil
}

// CookieDomain returns the default cookie domain for a site URL
// ("https://cr.indeed.com/jobs" gives ".cr.indeed.com").
func CookieDomain(siteURL string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(siteURL, "https://"), "http://")
	host := strings.SplitN(rest, "/", 2)[0]
	host = strings.SplitN(host, ":", 2)[0]
	if host == "" {
		return ""
	}
	return "." + host
}
