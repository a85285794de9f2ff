package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/config"
	"github.com/law-makers/jobcrawl/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scrape on a schedule until interrupted",
	Long: `Runs a scrape immediately and then again on every tick of --schedule, a cron
expression or "@every <duration>". A tick that fires while a run is still in
progress is skipped.

Nobody is expected to be at the terminal, so challenges are never handed to
the operator unless --operator-prompt is given. Pair it with --redis so each
run only saves postings not seen before.`,
	Example: `  # Every six hours, saving only new postings
  jobcrawl watch --redis localhost:6379 --sqlite jobs.db

  # Weekday mornings at 7:30
  jobcrawl watch --schedule "30 7 * * 1-5"`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	config.RegisterScrapeFlags(watchCmd)
	watchCmd.Flags().String("schedule", config.DefaultSchedule, `Cron expression or "@every <duration>"`)

	commandAdjusters["jobcrawl watch"] = func(cmd *cobra.Command, cfg *config.Config) error {
		if !cmd.Flags().Changed("operator-prompt") {
			cfg.OperatorPrompt = false
		}
		return nil
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	logger := log.With().Str("component", "watch").Logger()

	job := func(ctx context.Context) error {
		res, err := a.Scrape(ctx)
		logger.Info().
			Int("records", len(res.Records)).
			Int("pages", res.Pages).
			Int("duplicates", res.Duplicates).
			Str("stop_reason", string(res.StopReason)).
			Msg("Scheduled run finished")
		return scrapeOutcome(res, err)
	}

	s, err := scheduler.New(a.Config.Schedule, job, logger)
	if err != nil {
		return usageError{err}
	}
	return s.Run(cmd.Context())
}
