package dynamic

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/jobcrawl/internal/auth"
	"github.com/law-makers/jobcrawl/internal/engine"
)

func TestFindChromePrefersEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit check differs on windows")
	}
	bin := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("CHROME_PATH", bin)

	assert.Equal(t, bin, FindChrome(zerolog.Nop()))
}

func TestFindChromeIgnoresNonExecutableEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit check differs on windows")
	}
	bin := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(bin, []byte("not a browser"), 0o644))
	t.Setenv("CHROME_PATH", bin)

	assert.NotEqual(t, bin, FindChrome(zerolog.Nop()))
}

func TestRequestHeaders(t *testing.T) {
	h := requestHeaders(nil, nil)
	assert.Equal(t, engine.AcceptLanguage, h["Accept-Language"])

	session := &auth.SessionData{Headers: map[string]string{"Referer": "https://cr.indeed.com/", "Accept-Language": "es"}}
	h = requestHeaders(map[string]string{"Accept-Language": "en-US"}, session)
	assert.Equal(t, "en-US", h["Accept-Language"])
	assert.Equal(t, "https://cr.indeed.com/", h["Referer"])
}

func TestCookieParams(t *testing.T) {
	assert.Empty(t, cookieParams(nil))

	session := &auth.SessionData{Cookies: []auth.Cookie{
		{Name: "CTK", Value: "abc", Domain: ".indeed.com", Path: "/", Secure: true, Expires: 1767225600},
		{Name: "cf_clearance", Value: "xyz", Domain: ".indeed.com", Path: "/", HTTPOnly: true, SameSite: "None"},
	}}
	params := cookieParams(session)
	require.Len(t, params, 2)

	assert.Equal(t, "CTK", params[0].Name)
	assert.Equal(t, ".indeed.com", params[0].Domain)
	assert.True(t, params[0].Secure)
	require.NotNil(t, params[0].Expires)
	assert.Equal(t, int64(1767225600), params[0].Expires.Time().Unix())

	assert.True(t, params[1].HTTPOnly)
	assert.Equal(t, network.CookieSameSiteNone, params[1].SameSite)
	assert.Nil(t, params[1].Expires, "session cookies stay session cookies")
}

// TestLiveSession needs a local Chrome; set JOBCRAWL_TEST_CHROME=1 to run it.
func TestLiveSession(t *testing.T) {
	if os.Getenv("JOBCRAWL_TEST_CHROME") == "" {
		t.Skip("JOBCRAWL_TEST_CHROME not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := NewSession(ctx, Options{Headless: true, Timeout: 20 * time.Second, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Navigate(ctx, `data:text/html,<html><body><h1 id="t">Hola</h1></body></html>`))
	text, err := s.RenderedText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Hola")

	var webdriver bool
	require.NoError(t, s.Evaluate(ctx, `navigator.webdriver === undefined`, &webdriver))
	assert.True(t, webdriver)

	require.NoError(t, s.WaitVisible(ctx, "#t", 5*time.Second))
	err = s.WaitVisible(ctx, "#missing", 500*time.Millisecond)
	assert.Error(t, err)

	png, err := s.Screenshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}
