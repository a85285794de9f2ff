package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteToTextfile(t *testing.T) {
	m := New()
	m.IncPages("ok")
	m.IncPages("ok")
	m.IncPages("no_listings")
	m.IncRecords(true)
	m.IncRecords(false)
	m.IncRecords(false)
	m.IncDuplicates("run")
	m.IncEnrichFailures()
	m.IncGateTransition("unknown", "challenge")
	m.IncErrors("sink")
	m.Finish("max_pages", 1742032800, 95.5)

	path := filepath.Join(t.TempDir(), "textfile", "jobcrawl.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `jobcrawl_pages_total{outcome="ok"} 2`)
	assert.Contains(t, out, `jobcrawl_pages_total{outcome="no_listings"} 1`)
	assert.Contains(t, out, `jobcrawl_records_total{enriched="false"} 2`)
	assert.Contains(t, out, `jobcrawl_records_total{enriched="true"} 1`)
	assert.Contains(t, out, `jobcrawl_duplicates_total{scope="run"} 1`)
	assert.Contains(t, out, `jobcrawl_enrich_failures_total 1`)
	assert.Contains(t, out, `jobcrawl_gate_transitions_total{from="unknown",to="challenge"} 1`)
	assert.Contains(t, out, `jobcrawl_errors_total{type="sink"} 1`)
	assert.Contains(t, out, `jobcrawl_stop_reason{reason="max_pages"} 1`)
	assert.Contains(t, out, `jobcrawl_run_duration_seconds 95.5`)

	assert.NoFileExists(t, path+".tmp")
}

func TestFinishKeepsOneStopReason(t *testing.T) {
	m := New()
	m.Finish("blocked", 1, 1)
	m.Finish("max_records", 2, 1)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "jobcrawl_stop_reason" {
			continue
		}
		require.Len(t, f.GetMetric(), 1)
		assert.Equal(t, "max_records", f.GetMetric()[0].GetLabel()[0].GetValue())
		return
	}
	t.Fatal("stop reason gauge not gathered")
}

func TestRunsDoNotShareRegistries(t *testing.T) {
	a, b := New(), New()
	a.IncPages("ok")

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.NotEqual(t, "jobcrawl_pages_total", f.GetName())
	}
}
