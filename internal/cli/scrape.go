package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/config"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/pagination"
	"github.com/law-makers/jobcrawl/internal/ui"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect job postings from the search results",
	Long: `Opens a browser on the Indeed Costa Rica search results and walks the
result pages, saving one record per posting.

Each posting's detail pane is opened to collect the full description unless
--no-enrich is given. Verification challenges are retried with backoff; when
they do not clear, the operator is asked to solve them in the browser window.

Records are written as they are found, so an interrupted run keeps everything
collected up to that point.`,
	Example: `  # Scrape the first five result pages
  jobcrawl scrape

  # Search for a keyword and keep going until 200 postings are saved
  jobcrawl scrape --url "https://cr.indeed.com/jobs?q=python&l=costa+rica" -p 50 -n 200

  # Fast listing-only pass written as JSON Lines and SQLite
  jobcrawl scrape --no-enrich --format jsonl --sqlite jobs.db

  # Reuse cookies captured with 'jobcrawl sessions capture'
  jobcrawl scrape --session indeed`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	config.RegisterScrapeFlags(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	cfg := a.Config

	log.Info().
		Str("url", cfg.StartURL).
		Int("max_pages", cfg.MaxPages).
		Str("engine", cfg.Engine).
		Msg("Starting scrape")

	var observers []pagination.Observer
	var bar *progressObserver
	if !cfg.Quiet {
		bar = newProgress(os.Stderr, cfg.MaxRecords)
		observers = append(observers, bar)
	}

	res, err := a.Scrape(cmd.Context(), observers...)
	if bar != nil {
		bar.Finish()
	}
	if !cfg.Quiet {
		printSummary(os.Stdout, "Scrape", res)
	}
	return scrapeOutcome(res, err)
}

// scrapeOutcome decides whether a finished run is a failure. A run that
// stopped on a bad page after saving records is a partial success.
func scrapeOutcome(res pagination.Result, err error) error {
	if err == nil {
		return nil
	}
	if engine.IsPageFailure(err) && len(res.Records) > 0 {
		log.Warn().Err(err).Int("records", len(res.Records)).Msg("Run ended early; partial results saved")
		return nil
	}
	return err
}

func printSummary(w io.Writer, title string, res pagination.Result) {
	fmt.Fprintf(w, "\n%s\n%s\n", ui.Bold(title+" summary"), ui.Rule)
	fmt.Fprintln(w, ui.Field("Pages", 12, res.Pages))
	fmt.Fprintln(w, ui.Field("Records", 12, len(res.Records)))
	fmt.Fprintln(w, ui.Field("Enriched", 12, res.Enriched))
	if res.EnrichFailures > 0 {
		fmt.Fprintln(w, ui.Field("Enrich fails", 12, res.EnrichFailures))
	}
	fmt.Fprintln(w, ui.Field("Duplicates", 12, res.Duplicates))
	fmt.Fprintln(w, ui.Field("Stopped", 12, stopText(res.StopReason)))
	if res.LastURL != "" {
		fmt.Fprintln(w, ui.Field("Last page", 12, res.LastURL))
	}
	fmt.Fprintln(w)
}

func stopText(r pagination.StopReason) string {
	switch r {
	case pagination.StopMaxPages:
		return ui.Success("page limit reached")
	case pagination.StopMaxRecords:
		return ui.Success("record limit reached")
	case pagination.StopNoListings:
		return ui.Success("no more listings")
	case pagination.StopBlocked:
		return ui.Error("blocked by verification")
	case pagination.StopSessionFailure:
		return ui.Error("browser session failed")
	case pagination.StopPageError:
		return ui.Warn("page failed to load")
	case pagination.StopCancelled:
		return ui.Warn("interrupted")
	case "":
		return ui.Dim("not started")
	default:
		return string(r)
	}
}
