package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/jobcrawl/internal/auth"
	"github.com/law-makers/jobcrawl/internal/config"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/static"
	"github.com/law-makers/jobcrawl/internal/runctx"
)

const startURL = "https://cr.indeed.com/jobs?q=&l=costa+rica"

func resultsPage(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><h1>Empleos en Costa Rica</h1>`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="job_seen_beacon"><h2 class="jobTitle"><a data-jk="%[1]s" href="/rc/clk?jk=%[1]s"><span title="Puesto %[1]s">Puesto %[1]s</span></a></h2><span data-testid="company-name">Empresa %[1]s</span><div class="job-snippet">Tiempo completo</div></div>`, id)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func writeCapture(t *testing.T, dir string, n int, url, doc string) {
	t.Helper()
	base := filepath.Join(dir, fmt.Sprintf("debug_page%d", n))
	require.NoError(t, os.WriteFile(base+".html", []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(base+".json", []byte(fmt.Sprintf(`{"url": %q, "page": %d}`, url, n)), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.DebugDir = filepath.Join(dir, "debug")
	cfg.Formats = []string{"csv", "jsonl"}
	cfg.OperatorPrompt = false
	cfg.Enrich = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	a.Sessions = auth.NewStore(auth.WithDir(t.TempDir()), auth.FileOnly())
	return a
}

func TestReplayCapturedPages(t *testing.T) {
	captures := t.TempDir()
	writeCapture(t, captures, 0, startURL, resultsPage("a1", "a2", "a3", "a4"))
	writeCapture(t, captures, 1, startURL+"&start=10",
		`<html><body><h1>Just a moment...</h1><p>Checking your browser</p></body></html>`)
	writeCapture(t, captures, 2, startURL+"&start=20", resultsPage("a3", "a4", "b1", "b2"))

	cfg := testConfig(t)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "jobcrawl.prom")
	a := newTestApp(t, cfg)

	res, err := a.Replay(context.Background(), captures)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Pages)
	require.Len(t, res.Records, 6)
	assert.Equal(t, 2, res.Duplicates, "cards repeated across captures are skipped")
	for _, r := range res.Records {
		assert.Equal(t, "indeed_cr", r.Source)
		assert.True(t, r.HasTag("Costa Rica"))
	}

	csv, err := os.ReadFile(filepath.Join(cfg.OutputDir, "indeed_jobs.csv"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(csv)), "\n"), 7)

	jsonl, err := os.ReadFile(filepath.Join(cfg.OutputDir, "indeed_jobs.jsonl"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(jsonl)), "\n"), 6)

	prom, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `jobcrawl_pages_total{outcome="ok"} 2`)

	_, err = os.Stat(cfg.DebugDir)
	assert.True(t, os.IsNotExist(err), "replay does not write diagnostics")
}

func TestReplayEmptyDirectory(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	_, err := a.Replay(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestOpenSessionHTTPEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine = config.EngineHTTP
	cfg.Proxies = []string{"http://127.0.0.1:3128", "http://127.0.0.1:3129"}
	a := newTestApp(t, cfg)

	s, proxyURL, err := a.OpenSession(context.Background(), a.Logger)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "static", s.Name())
	assert.Equal(t, "http://127.0.0.1:3128", proxyURL)

	s2, proxyURL, err := a.OpenSession(context.Background(), a.Logger)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, "http://127.0.0.1:3129", proxyURL, "proxies rotate per session")
}

func TestOpenSessionMissingOperatorSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine = config.EngineHTTP
	cfg.SessionName = "operador"
	a := newTestApp(t, cfg)

	_, _, err := a.OpenSession(context.Background(), a.Logger)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrSessionNotFound))
	assert.True(t, engine.IsSessionFailure(err))
}

func TestOpenSessionUsesStoredCookies(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine = config.EngineHTTP
	cfg.SessionName = "operador"
	a := newTestApp(t, cfg)
	require.NoError(t, a.Sessions.Save(&auth.SessionData{
		Name:    "operador",
		URL:     "https://cr.indeed.com/",
		Cookies: []auth.Cookie{{Name: "CTK", Value: "abc", Domain: ".indeed.com", Path: "/"}},
	}))

	s, _, err := a.OpenSession(context.Background(), a.Logger)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestNewRejectsMissingSelectorsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.SelectorsFile = filepath.Join(t.TempDir(), "selectors.yaml")
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestDiagnoseCapturesAndAnalyzes(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	archive := static.NewArchive().Add(startURL, resultsPage("a1", "a2", "a3", "a4"))
	run := a.NewRun(runctx.WithClock(runctx.NewFakeClock(time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC))))

	d, err := a.Diagnose(context.Background(), static.New(archive), run, startURL)
	require.NoError(t, err)
	assert.NoError(t, d.GateErr)
	assert.Equal(t, 4, d.Report.Cards)
	assert.True(t, d.Report.HasJobs())

	for _, path := range []string{d.Files.HTML, d.Files.Meta, filepath.Join(cfg.DebugDir, "debug_page0_pretty.html")} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
}

func TestDiagnoseReportsChallenge(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChallengeAttempts = 1
	a := newTestApp(t, cfg)
	archive := static.NewArchive().Add(startURL, `<html><body><h1>Just a moment...</h1><p>Checking your browser</p></body></html>`)
	run := a.NewRun(runctx.WithClock(runctx.NewFakeClock(time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC))))

	d, err := a.Diagnose(context.Background(), static.New(archive), run, startURL)
	require.NoError(t, err)
	assert.True(t, errors.Is(d.GateErr, engine.ErrChallengeUnresolved))
	assert.False(t, d.Report.HasJobs())
}

func TestDiagnoseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(resultsPage("a1", "a2", "a3", "a4")), 0o644))
	a := newTestApp(t, testConfig(t))

	d, err := a.DiagnoseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Report.Cards)
	assert.Contains(t, d.Pretty, "job_seen_beacon")
}
