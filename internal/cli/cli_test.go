package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/jobcrawl/internal/app"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/pagination"
	"github.com/law-makers/jobcrawl/pkg/models"
)

func TestExitCode(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want int
	}{
		{"ok", context.Background(), nil, ExitOK},
		{"plain error", context.Background(), errors.New("boom"), ExitError},
		{"bad flags", context.Background(), usageError{errors.New("unknown flag: --nope")}, ExitUsage},
		{"no browser", context.Background(),
			engine.NewEngineError(engine.ErrCodeSessionError, "no chrome", engine.ErrBrowserNotFound), ExitSessionFailure},
		{"challenge", context.Background(),
			engine.NewEngineError(engine.ErrCodeChallengeUnresolved, "still verifying", engine.ErrChallengeUnresolved), ExitSessionFailure},
		{"interrupted", cancelled, errors.New("anything"), ExitInterrupted},
		{"wrapped cancel", context.Background(), fmt.Errorf("page 2: %w", context.Canceled), ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.ctx, tt.err))
		})
	}
}

func TestScrapeOutcome(t *testing.T) {
	pageErr := engine.NewEngineError(engine.ErrCodePageLoad, "page 3 failed", engine.ErrPageLoad)
	some := pagination.Result{Records: []*models.JobRecord{models.NewJobRecord("indeed_cr")}}

	assert.NoError(t, scrapeOutcome(some, nil))
	assert.NoError(t, scrapeOutcome(some, pageErr), "records saved before a bad page count as success")
	assert.Error(t, scrapeOutcome(pagination.Result{}, pageErr), "nothing saved is a failure")

	sessionErr := engine.NewEngineError(engine.ErrCodeSessionError, "browser died", engine.ErrSessionStart)
	assert.Error(t, scrapeOutcome(some, sessionErr))
}

func TestImportInteractive(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"CTK", "abc123", "",
		"empty", "",
		"cf_clearance", "xyz", ".indeed.com",
		"",
	}, "\n"))
	var out bytes.Buffer

	cookies, err := importInteractive(in, &out, ".cr.indeed.com")
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	assert.Equal(t, "CTK", cookies[0].Name)
	assert.Equal(t, ".cr.indeed.com", cookies[0].Domain, "blank domain takes the default")
	assert.Equal(t, "cf_clearance", cookies[1].Name)
	assert.Equal(t, ".indeed.com", cookies[1].Domain)
	assert.Contains(t, out.String(), "Skipping cookie with empty value")
}

func TestAppContextRoundTrip(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	assert.Nil(t, GetAppFromCmd(cmd))

	a := &app.Application{}
	SetApp(cmd, a)
	assert.Same(t, a, GetAppFromCmd(cmd))
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"scrape"}, {"replay"}, {"diagnose"}, {"watch"},
		{"sessions", "list"}, {"sessions", "view"}, {"sessions", "delete"},
		{"sessions", "import"}, {"sessions", "capture"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
	watch, _, _ := rootCmd.Find([]string{"watch"})
	assert.NotNil(t, watch.Flags().Lookup("schedule"))
}

func TestWrapText(t *testing.T) {
	text := "Reads the captures written\nby earlier runs.\n\nSteps:\n1. Open the site\n2. Copy the cookies"
	got := wrapText(text, 80)
	assert.Equal(t, "Reads the captures written by earlier runs.\n\nSteps:\n1. Open the site\n2. Copy the cookies", got)

	got = wrapText("one two three four", 9)
	assert.Equal(t, "one two\nthree\nfour", got)
}
