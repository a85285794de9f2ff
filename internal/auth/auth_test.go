package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func sampleSession(name string) *SessionData {
	return &SessionData{
		Name:      name,
		URL:       "https://cr.indeed.com/jobs",
		Cookies:   []Cookie{{Name: "CTK", Value: "abc", Domain: ".indeed.com", Path: "/"}},
		CreatedAt: time.Now(),
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewStore(WithDir(t.TempDir()), FileOnly())

	require.NoError(t, s.Save(sampleSession("beta")))
	require.NoError(t, s.Save(sampleSession("alpha")))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	got, err := s.Load("alpha")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Cookies[0].Value)

	require.NoError(t, s.Delete("alpha"))
	require.NoError(t, s.Delete("alpha"), "deleting twice is fine")
	_, err = s.Load("alpha")
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(s.Backend(), "file:"))
}

func TestStoreRejectsBadNames(t *testing.T) {
	s := NewStore(WithDir(t.TempDir()), FileOnly())
	assert.Error(t, s.Save(sampleSession("")))
	assert.Error(t, s.Save(sampleSession("../escape")))
	_, err := s.Load("")
	assert.Error(t, err)
}

func TestExpiredSessionFailsToLoad(t *testing.T) {
	s := NewStore(WithDir(t.TempDir()), FileOnly())
	old := sampleSession("old")
	old.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Save(old))

	_, err := s.Load("old")
	assert.ErrorContains(t, err, "expired")
}

func TestKeyringStoreKeepsManifest(t *testing.T) {
	keyring.MockInit()
	s := NewStore()
	s.probe = func() bool { return false }

	require.NoError(t, s.Save(sampleSession("op")))
	require.NoError(t, s.Save(sampleSession("op")))
	require.NoError(t, s.Save(sampleSession("backup")))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"backup", "op"}, names)

	got, err := s.Load("op")
	require.NoError(t, err)
	assert.Equal(t, "op", got.Name)

	require.NoError(t, s.Delete("op"))
	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"backup"}, names)
	assert.Equal(t, "keyring:"+KeyringService, s.Backend())
}

func TestHTTPCookies(t *testing.T) {
	s := &SessionData{Cookies: []Cookie{
		{Name: "a", Value: "1", Expires: 0},
		{Name: "b", Value: "2", Expires: 1893456000, Secure: true, HTTPOnly: true},
	}}
	hc := s.HTTPCookies()
	require.Len(t, hc, 2)
	assert.True(t, hc[0].Expires.IsZero())
	assert.Equal(t, int64(1893456000), hc[1].Expires.Unix())
	assert.True(t, hc[1].Secure)
	assert.True(t, hc[1].HttpOnly)
}

func TestParseNetscapeCookies(t *testing.T) {
	input := "# Netscape HTTP Cookie File\n" +
		".indeed.com\tTRUE\t/\tTRUE\t1893456000\tCTK\tabc123\n" +
		"#HttpOnly_.indeed.com\tTRUE\t/\tFALSE\t0\tINDEED_CSRF_TOKEN\txyz\n" +
		"malformed line\n"
	cookies, err := ParseNetscapeCookies(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	assert.Equal(t, "CTK", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, float64(1893456000), cookies[0].Expires)

	assert.Equal(t, "INDEED_CSRF_TOKEN", cookies[1].Name)
	assert.True(t, cookies[1].HTTPOnly)
	assert.Zero(t, cookies[1].Expires)
}

func TestParseJSONCookies(t *testing.T) {
	cookies, err := ParseJSONCookies(strings.NewReader(`[{"name":"CTK","value":"v","domain":".indeed.com","path":"/","expires":100}]`))
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "CTK", cookies[0].Name)

	_, err = ParseJSONCookies(strings.NewReader(`{not json`))
	assert.Error(t, err)
}

func TestNewImportedSessionUsesEarliestExpiry(t *testing.T) {
	now := time.Now()
	_, err := NewImportedSession("x", "https://cr.indeed.com", nil, now)
	assert.Error(t, err)

	s, err := NewImportedSession("x", "https://cr.indeed.com", []Cookie{
		{Name: "a", Expires: 2000000000},
		{Name: "b", Expires: 1900000000},
		{Name: "c"},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1900000000), s.ExpiresAt.Unix())
}

func TestCookieDomain(t *testing.T) {
	assert.Equal(t, ".cr.indeed.com", CookieDomain("https://cr.indeed.com/jobs?q=x"))
	assert.Equal(t, ".localhost", CookieDomain("http://localhost:8080/"))
	assert.Equal(t, "", CookieDomain(""))
}

func TestSessionFromCookies(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	s := sessionFromCookies(CaptureOptions{Name: "op", URL: "https://cr.indeed.com"}, []*network.Cookie{
		{Name: "CTK", Value: "1", Expires: 1900000000, SameSite: network.CookieSameSiteLax},
		{Name: "tmp", Value: "2"},
	}, now)
	require.Len(t, s.Cookies, 2)
	assert.Equal(t, "Lax", s.Cookies[0].SameSite)
	assert.Equal(t, int64(1900000000), s.ExpiresAt.Unix())
	assert.Equal(t, now, s.CreatedAt)
}
