package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/jobcrawl/internal/diagnostics"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/challenge"
	"github.com/law-makers/jobcrawl/internal/engine/extract"
	"github.com/law-makers/jobcrawl/internal/engine/selector"
	"github.com/law-makers/jobcrawl/internal/engine/static"
	"github.com/law-makers/jobcrawl/internal/metrics"
	"github.com/law-makers/jobcrawl/internal/runctx"
	"github.com/law-makers/jobcrawl/internal/seen"
	"github.com/law-makers/jobcrawl/pkg/models"
)

const (
	startURL = "https://cr.indeed.com/jobs?q=&l=Costa+Rica"
	page1URL = startURL + "&start=10"
	page2URL = startURL + "&start=20"

	emptyPage     = `<html><body><h1>Empleos en Costa Rica</h1><p>No hay resultados para tu búsqueda.</p></body></html>`
	challengePage = `<html><body><h1>Just a moment...</h1><p>Checking your browser before accessing cr.indeed.com</p></body></html>`
	blockURL      = "https://www.google.com/sorry/index?continue=x"
)

func results(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><h1>Empleos en Costa Rica</h1>`)
	for _, id := range ids {
		if id == "" {
			b.WriteString(`<div class="job_seen_beacon"><span>Sin título</span></div>`)
			continue
		}
		fmt.Fprintf(&b, `<div class="job_seen_beacon"><h2 class="jobTitle"><a data-jk="%[1]s" href="/rc/clk?jk=%[1]s"><span title="Puesto %[1]s">Puesto %[1]s</span></a></h2><div class="job-snippet">Tiempo completo</div></div>`, id)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func detail(id string) string {
	return fmt.Sprintf(`<html><body><div data-testid="inlineHeader-companyName">Empresa %[1]s</div><div id="jobDescriptionText">Descripción completa de %[1]s</div></body></html>`, id)
}

func detailURL(id string) string {
	return "https://cr.indeed.com/rc/clk?jk=" + id
}

type memSink struct {
	recs []*models.JobRecord
	err  error
}

func (m *memSink) Write(_ context.Context, r *models.JobRecord) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, r)
	return nil
}

func (m *memSink) Close() error { return nil }

type recorder struct {
	NopObserver
	pages        []string
	saved        int
	duplicates   []string
	enrichFailed int
	errs         []string
	onSaved      func(n int)
}

func (r *recorder) PageDone(page int, outcome string, listings int) {
	r.pages = append(r.pages, fmt.Sprintf("%d:%s:%d", page, outcome, listings))
}

func (r *recorder) RecordSaved(*models.JobRecord, bool) {
	r.saved++
	if r.onSaved != nil {
		r.onSaved(r.saved)
	}
}

func (r *recorder) Duplicate(scope string)                { r.duplicates = append(r.duplicates, scope) }
func (r *recorder) EnrichFailed(*models.JobRecord, error) { r.enrichFailed++ }
func (r *recorder) Error(kind string, _ error)            { r.errs = append(r.errs, kind) }

type fixture struct {
	archive  *static.Archive
	session  *static.Session
	clock    *runctx.FakeClock
	run      *runctx.Run
	sink     *memSink
	observer *recorder
	dir      string
	gateOpts []challenge.Option
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := runctx.NewFakeClock(time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC))
	archive := static.NewArchive()
	return &fixture{
		archive:  archive,
		session:  static.New(archive),
		clock:    clock,
		run:      runctx.New(runctx.WithClock(clock), runctx.WithSeed(7)),
		sink:     &memSink{},
		observer: &recorder{},
		dir:      t.TempDir(),
	}
}

func (f *fixture) driver(opts ...Option) *Driver {
	cascade := selector.New(selector.DefaultTable())
	cfg := challenge.DefaultConfig()
	cfg.MaxAttempts = 1
	gate := challenge.New(cfg, f.run, f.gateOpts...)
	ex := extract.New(cascade, extract.DefaultOptions(), extract.WithClock(f.clock))
	base := []Option{
		WithSink(f.sink),
		WithObserver(f.observer),
		WithCapturer(diagnostics.NewCapturer(f.dir, cascade, zerolog.Nop())),
	}
	return New(f.session, gate, cascade, ex, f.run, append(base, opts...)...)
}

func titles(recs []*models.JobRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func fixedDelays() Delays {
	return Delays{
		SettleMin:   3 * time.Second,
		SettleMax:   3 * time.Second,
		ScrollPause: 2 * time.Second,
		RecordMin:   time.Second,
		RecordMax:   time.Second,
		PageMin:     5 * time.Second,
		PageMax:     5 * time.Second,
	}
}

func countSleeps(sleeps []time.Duration, d time.Duration) int {
	n := 0
	for _, s := range sleeps {
		if s == d {
			n++
		}
	}
	return n
}

func TestRunWalksPagesInOrder(t *testing.T) {
	f := newFixture(t)
	f.archive.
		Add(startURL, results("a1", "", "a2", "a3", "a4")).
		Add(page1URL, results("b1", "b2", "b3", "b4"))

	res, err := f.driver(WithDelays(fixedDelays())).Run(context.Background(), Options{StartURL: startURL, MaxPages: 2})
	require.NoError(t, err)

	assert.Equal(t, StopMaxPages, res.StopReason)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{
		"Puesto a1", "Puesto a2", "Puesto a3", "Puesto a4",
		"Puesto b1", "Puesto b2", "Puesto b3", "Puesto b4",
	}, titles(res.Records), "the card without a title is skipped")
	assert.Equal(t, res.Records, f.sink.recs)
	assert.Equal(t, 0, res.Records[0].PageIndex)
	assert.Equal(t, 1, res.Records[7].PageIndex)
	assert.Equal(t, "2025-04-14", models.Deref(res.Records[0].ApplicationDeadline))

	assert.Equal(t, []string{startURL, page1URL}, f.session.Navigations())
	assert.Len(t, f.session.ScrollPositions(), 2)
	assert.Equal(t, []string{"0:ok:5", "1:ok:4"}, f.observer.pages)

	sleeps := f.clock.Sleeps()
	assert.Equal(t, 2, countSleeps(sleeps, 3*time.Second), "one settle delay per page")
	assert.Equal(t, 2, countSleeps(sleeps, 2*time.Second), "one scroll pause per page")
	assert.Equal(t, 1, countSleeps(sleeps, 5*time.Second), "no page delay after the last page")
	assert.Equal(t, 7, countSleeps(sleeps, time.Second), "record delays between cards")
}

func TestRunDefaultDelaysStayInBounds(t *testing.T) {
	f := newFixture(t)
	f.archive.Add(startURL, results("a1", "a2", "a3", "a4"))

	_, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 1})
	require.NoError(t, err)

	sleeps := f.clock.Sleeps()
	require.Len(t, sleeps, 5)
	assert.GreaterOrEqual(t, sleeps[0], 3*time.Second)
	assert.LessOrEqual(t, sleeps[0], 5*time.Second)
	assert.Equal(t, 2*time.Second, sleeps[1])
	for _, s := range sleeps[2:] {
		assert.GreaterOrEqual(t, s, 500*time.Millisecond)
		assert.LessOrEqual(t, s, 1500*time.Millisecond)
	}
}

func TestRunStopsAtMaxRecordsAcrossPages(t *testing.T) {
	f := newFixture(t)
	f.archive.
		Add(startURL, results("a1", "a2", "a3", "a4")).
		Add(page1URL, results("b1", "b2", "b3", "b4")).
		Add(page2URL, results("c1", "c2", "c3", "c4"))

	res, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 3, MaxRecords: 6})
	require.NoError(t, err)

	assert.Equal(t, StopMaxRecords, res.StopReason)
	assert.Len(t, res.Records, 6)
	assert.Len(t, f.sink.recs, 6)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{startURL, page1URL}, f.session.Navigations())
}

func TestRunNoListingsCapturesDiagnostics(t *testing.T) {
	f := newFixture(t)
	f.archive.
		Add(startURL, results("a1", "a2", "a3", "a4")).
		Add(page1URL, emptyPage)

	res, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 3})
	require.NoError(t, err, "an empty page ends the run normally")

	assert.Equal(t, StopNoListings, res.StopReason)
	assert.Len(t, res.Records, 4)
	assert.Equal(t, []string{"0:ok:4", "1:no_listings:0"}, f.observer.pages)

	assert.FileExists(t, filepath.Join(f.dir, "debug_page1.html"))
	assert.FileExists(t, filepath.Join(f.dir, "debug_page1.png"))
	data, err := os.ReadFile(filepath.Join(f.dir, "debug_page1.json"))
	require.NoError(t, err)
	var meta diagnostics.Meta
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, page1URL, meta.URL)
	assert.Equal(t, "no_listings", meta.Reason)
	assert.Equal(t, "genuine", meta.State)
	assert.Equal(t, f.run.ID, meta.RunID)
}

func TestRunNavigationErrorKeepsRecords(t *testing.T) {
	f := newFixture(t)
	f.archive.Add(startURL, results("a1", "a2", "a3", "a4"))

	res, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 3})
	require.Error(t, err)

	assert.ErrorIs(t, err, engine.ErrPageLoad)
	assert.False(t, engine.IsSessionFailure(err))
	assert.Equal(t, StopPageError, res.StopReason)
	assert.Len(t, res.Records, 4)
	assert.Equal(t, 1, res.Pages)
}

func TestRunHardBlockStopsWithoutReload(t *testing.T) {
	f := newFixture(t)
	f.archive.
		Add(startURL, results("a1", "a2", "a3", "a4")).
		Redirect(page1URL, blockURL).
		Add(blockURL, `<html><body>Our systems have detected unusual traffic.</body></html>`)

	res, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 3})
	require.Error(t, err)

	assert.ErrorIs(t, err, engine.ErrHardBlock)
	assert.Equal(t, StopBlocked, res.StopReason)
	assert.Len(t, res.Records, 4)
	assert.Zero(t, f.session.Reloads())
	assert.Equal(t, blockURL, res.LastURL)
	assert.FileExists(t, filepath.Join(f.dir, "debug_page1.html"))
}

func TestRunUnresolvedChallengeIsSessionFailure(t *testing.T) {
	f := newFixture(t)
	f.archive.Add(startURL, challengePage)

	res, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 2})
	require.Error(t, err)

	assert.True(t, engine.IsSessionFailure(err))
	assert.ErrorIs(t, err, engine.ErrChallengeUnresolved)
	assert.Equal(t, StopSessionFailure, res.StopReason)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, f.session.Reloads())
}

func TestRunOperatorClearsChallenge(t *testing.T) {
	f := newFixture(t)
	f.archive.Add(startURL, challengePage, challengePage, results("a1", "a2", "a3", "a4"))
	asked := 0
	f.gateOpts = []challenge.Option{challenge.WithOperator(challenge.OperatorFunc(func(ctx context.Context, _ string) (bool, error) {
		asked++
		return true, f.session.Reload(ctx)
	}))}

	res, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, asked)
	assert.Len(t, res.Records, 4)
}

func TestRunSkipsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.archive.
		Add(startURL, results("a1", "a2", "a3", "a4")).
		Add(page1URL, results("a3", "a4", "b1", "b2", "b3"))

	res, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, []string{
		"Puesto a1", "Puesto a2", "Puesto a3", "Puesto a4",
		"Puesto b1", "Puesto b2", "Puesto b3",
	}, titles(res.Records))
	assert.Equal(t, []string{"run", "run"}, f.observer.duplicates)
}

func TestRunSeenStoreSpansRuns(t *testing.T) {
	f := newFixture(t)
	f.archive.Add(startURL, results("a1", "a2", "a3", "a4"))
	store := seen.NewMemory()
	d := f.driver(WithSeenStore(store))

	first, err := d.Run(context.Background(), Options{StartURL: startURL, MaxPages: 1})
	require.NoError(t, err)
	assert.Len(t, first.Records, 4)
	assert.Equal(t, 4, store.Len())

	second, err := d.Run(context.Background(), Options{StartURL: startURL, MaxPages: 1})
	require.NoError(t, err)
	assert.Empty(t, second.Records)
	assert.Equal(t, 4, second.Duplicates)
	assert.Equal(t, StopMaxPages, second.StopReason)
}

func TestRunEnrichmentFailureKeepsListing(t *testing.T) {
	f := newFixture(t)
	f.archive.
		Add(startURL, results("a1", "a2", "a3", "a4")).
		Add(detailURL("a1"), detail("a1")).
		Add(detailURL("a2"), detail("a2")).
		Add(detailURL("a3"), detail("a3"))
	m := metrics.New()

	res, err := f.driver(WithObserver(Observers{f.observer, m})).
		Run(context.Background(), Options{StartURL: startURL, MaxPages: 1, Enrich: true})
	require.NoError(t, err)

	require.Len(t, res.Records, 4)
	assert.Equal(t, 3, res.Enriched)
	assert.Equal(t, 1, res.EnrichFailures)
	assert.Equal(t, 1, f.observer.enrichFailed)

	assert.Equal(t, "Descripción completa de a1", models.Deref(res.Records[0].Description))
	assert.Equal(t, "Empresa a1", models.Deref(res.Records[0].Company))
	assert.Equal(t, "Tiempo completo", models.Deref(res.Records[3].Description))
	assert.Nil(t, res.Records[3].Company)

	cur, err := f.session.CurrentURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, startURL, cur, "the session is back on the results page")

	path := filepath.Join(f.dir, "jobcrawl.prom")
	require.NoError(t, m.WriteToTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `jobcrawl_records_total{enriched="true"} 3`)
	assert.Contains(t, string(data), `jobcrawl_enrich_failures_total 1`)
}

func TestRunCancellationReturnsAccumulated(t *testing.T) {
	f := newFixture(t)
	f.archive.
		Add(startURL, results("a1", "a2", "a3", "a4")).
		Add(page1URL, results("b1", "b2", "b3", "b4"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.observer.onSaved = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	res, err := f.driver().Run(ctx, Options{StartURL: startURL, MaxPages: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCancelled, res.StopReason)
	assert.Len(t, res.Records, 2)
	assert.Len(t, f.sink.recs, 2)
	assert.Equal(t, []string{startURL}, f.session.Navigations(), "no navigation after cancel")
}

func TestRunSinkFailureDoesNotStopRun(t *testing.T) {
	f := newFixture(t)
	f.archive.Add(startURL, results("a1", "a2", "a3", "a4"))
	f.sink.err = errors.New("disk full")

	res, err := f.driver().Run(context.Background(), Options{StartURL: startURL, MaxPages: 1})
	require.NoError(t, err)
	assert.Len(t, res.Records, 4)
	assert.Equal(t, []string{"sink", "sink", "sink", "sink"}, f.observer.errs)
}

func TestRunRequiresStartURL(t *testing.T) {
	f := newFixture(t)
	_, err := f.driver().Run(context.Background(), Options{MaxPages: 1})
	var ee *engine.EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, engine.ErrCodeValidation, ee.Code)
	assert.Empty(t, f.session.Navigations())
}
